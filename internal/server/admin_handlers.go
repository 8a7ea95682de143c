package server

import (
	"strings"

	"inmomarket/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ResolveReportRequest is the admin decision on a pending report.
type ResolveReportRequest struct {
	Action   string  `json:"action"`
	Feedback *string `json:"feedback"`
}

// GetAdminReports handles GET /api/admin/reports?status=
func (s *Server) GetAdminReports(c *fiber.Ctx) error {
	var status *models.ReportStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, ok := models.ParseReportStatus(raw)
		if !ok {
			return respondError(c, models.NewFieldValidationError(map[string]string{
				"status": "must be one of: pending resolved rejected",
			}))
		}
		status = &parsed
	}

	page, err := s.reports.ListAllAdmin(c.UserContext(), currentIdentity(c), status, parsePage(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetPublicationReports handles GET /api/admin/publications/:id/reports
func (s *Server) GetPublicationReports(c *fiber.Ctx) error {
	pubID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	page, err := s.reports.ListByPublicationAdmin(c.UserContext(), currentIdentity(c), pubID, parsePage(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// ResolveReport handles POST /api/admin/reports/:id/resolve
func (s *Server) ResolveReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req ResolveReportRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	report, err := s.reports.Resolve(c.UserContext(), id, currentIdentity(c), req.Action, req.Feedback)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// GetFeatureFlags handles GET /api/admin/feature-flags
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"rules":     s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(currentIdentity(c).ID),
	})
}
