package server

import (
	"inmomarket/internal/service"

	"github.com/gofiber/fiber/v2"
)

// FavoriteStatusResponse reports whether the caller has saved a publication.
type FavoriteStatusResponse struct {
	PublicationID uint                 `json:"publication_id"`
	Favorited     bool                 `json:"favorited"`
	Result        service.ToggleResult `json:"result,omitempty"`
}

// ToggleFavorite handles POST /api/favorites/:publicationId/toggle
func (s *Server) ToggleFavorite(c *fiber.Ctx) error {
	pubID, err := s.parseID(c, "publicationId")
	if err != nil {
		return nil
	}

	result, err := s.favorites.Toggle(c.UserContext(), currentIdentity(c).ID, pubID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(FavoriteStatusResponse{
		PublicationID: pubID,
		Favorited:     result == service.ToggleAdded,
		Result:        result,
	})
}

// GetFavorites handles GET /api/favorites?page=&size=
func (s *Server) GetFavorites(c *fiber.Ctx) error {
	page, err := s.favorites.ListForUser(c.UserContext(), currentIdentity(c).ID, parsePage(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// CheckFavorite handles GET /api/favorites/:publicationId/check
func (s *Server) CheckFavorite(c *fiber.Ctx) error {
	pubID, err := s.parseID(c, "publicationId")
	if err != nil {
		return nil
	}

	ok, err := s.favorites.Exists(c.UserContext(), currentIdentity(c).ID, pubID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(FavoriteStatusResponse{PublicationID: pubID, Favorited: ok})
}

// RemoveFavorite handles DELETE /api/favorites/:publicationId
func (s *Server) RemoveFavorite(c *fiber.Ctx) error {
	pubID, err := s.parseID(c, "publicationId")
	if err != nil {
		return nil
	}

	if err := s.favorites.Remove(c.UserContext(), currentIdentity(c).ID, pubID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetFavoriteStats handles GET /api/favorites/stats
func (s *Server) GetFavoriteStats(c *fiber.Ctx) error {
	stats, err := s.favorites.StatsForUser(c.UserContext(), currentIdentity(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
