package server

import (
	"inmomarket/internal/models"
	"inmomarket/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPublications handles GET /api/publications, optionally narrowed by one filter.
func (s *Server) GetPublications(c *fiber.Ctx) error {
	filter, err := parsePublicationFilter(c)
	if err != nil {
		return respondError(c, err)
	}

	var pubs []models.Publication
	if filter == nil {
		pubs, err = s.publications.ListAll(c.UserContext())
	} else {
		pubs, err = s.publications.ListFiltered(c.UserContext(), filter)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pubs)
}

// GetRecentPublications handles GET /api/publications/recent
func (s *Server) GetRecentPublications(c *fiber.Ctx) error {
	pubs, err := s.publications.ListRecent(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pubs)
}

// GetPopularPublications handles GET /api/publications/popular
func (s *Server) GetPopularPublications(c *fiber.Ctx) error {
	pubs, err := s.publications.ListMostPopular(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pubs)
}

// GetPublication handles GET /api/publications/:id
func (s *Server) GetPublication(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	pub, err := s.publications.GetByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pub)
}

// GetMyPublications handles GET /api/publications/mine
func (s *Server) GetMyPublications(c *fiber.Ctx) error {
	pubs, err := s.publications.ListByUser(c.UserContext(), currentIdentity(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pubs)
}

// GetUserPublications handles GET /api/users/:id/publications
func (s *Server) GetUserPublications(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	pubs, err := s.publications.ListByUser(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pubs)
}

// CreatePublication handles POST /api/publications
func (s *Server) CreatePublication(c *fiber.Ctx) error {
	var in service.PublicationInput
	uploads, err := bindPublication(c, &in)
	if err != nil {
		return respondError(c, err)
	}

	pub, err := s.publications.Create(c.UserContext(), currentIdentity(c), in, uploads)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pub)
}

// UpdatePublication handles PATCH /api/publications/:id. Absent fields are kept.
func (s *Server) UpdatePublication(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var patch service.PublicationPatch
	uploads, err := bindPublication(c, &patch)
	if err != nil {
		return respondError(c, err)
	}

	pub, err := s.publications.Update(c.UserContext(), id, currentIdentity(c), patch, uploads)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pub)
}

// GetPropertyTypes handles GET /api/property-types
func (s *Server) GetPropertyTypes(c *fiber.Ctx) error {
	types, err := s.catalog.PropertyTypes(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(types)
}

// GetLocations handles GET /api/locations
func (s *Server) GetLocations(c *fiber.Ctx) error {
	locations, err := s.catalog.Locations(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(locations)
}
