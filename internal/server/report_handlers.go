package server

import (
	"inmomarket/internal/models"
	"inmomarket/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateReport handles POST /api/reports
func (s *Server) CreateReport(c *fiber.Ctx) error {
	var in service.ReportInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	report, err := s.reports.Create(c.UserContext(), currentIdentity(c).ID, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// GetMyReports handles GET /api/reports/mine
func (s *Server) GetMyReports(c *fiber.Ctx) error {
	page, err := s.reports.ListMine(c.UserContext(), currentIdentity(c).ID, parsePage(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetMyReportFeedback handles GET /api/reports/mine/feedback
func (s *Server) GetMyReportFeedback(c *fiber.Ctx) error {
	page, err := s.reports.ListMineWithFeedback(c.UserContext(), currentIdentity(c).ID, parsePage(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetUnreadFeedbackCount handles GET /api/reports/mine/unread-count
func (s *Server) GetUnreadFeedbackCount(c *fiber.Ctx) error {
	n, err := s.reports.UnreadFeedbackCount(c.UserContext(), currentIdentity(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": n})
}

// MarkReportFeedbackRead handles POST /api/reports/:id/read
func (s *Server) MarkReportFeedbackRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.reports.MarkFeedbackRead(c.UserContext(), id, currentIdentity(c).ID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
