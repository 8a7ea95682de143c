package server

import (
	"inmomarket/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /api/users/me
func (s *Server) GetProfile(c *fiber.Ctx) error {
	user, err := s.users.GetProfile(c.UserContext(), currentIdentity(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateProfile handles PATCH /api/users/me. The body is JSON, or multipart with
// a "data" JSON part and an optional "profile_picture" file.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var patch service.ProfilePatch
	picture, err := bindProfile(c, &patch)
	if err != nil {
		return respondError(c, err)
	}

	user, err := s.users.UpdateProfile(c.UserContext(), currentIdentity(c).ID, patch, picture)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}
