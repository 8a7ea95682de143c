package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"inmomarket/internal/models"
	"inmomarket/internal/observability"
	"inmomarket/internal/repository"
	"inmomarket/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const maxFeedbackLen = 1000

// ReportInput is a user's complaint about a listing.
type ReportInput struct {
	PublicationID uint   `json:"publication_id" validate:"required"`
	Reason        string `json:"reason" validate:"notblank,min=3,max=100"`
	Description   string `json:"description" validate:"max=500"`
}

type ReportService struct {
	store repository.Store
	now   func() time.Time
}

func NewReportService(store repository.Store) *ReportService {
	return &ReportService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Create files a PENDING report against an existing publication.
func (s *ReportService) Create(ctx context.Context, reporterID uint, in ReportInput) (*models.Report, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if _, err := s.store.Users().GetByID(ctx, reporterID); err != nil {
		return nil, notFoundOr(err, "User", reporterID)
	}
	ok, err := s.store.Publications().Exists(ctx, in.PublicationID)
	if err != nil {
		return nil, storageError(err)
	}
	if !ok {
		return nil, models.NewNotFoundError("Publication", in.PublicationID)
	}

	report := &models.Report{
		ReporterID:    reporterID,
		PublicationID: in.PublicationID,
		Reason:        in.Reason,
		Description:   in.Description,
		ReportDate:    s.now(),
		Status:        models.ReportStatusPending,
	}
	if err := s.store.Reports().Create(ctx, report); err != nil {
		return nil, storageError(err)
	}

	observability.ReportsCreated.Inc()
	slog.InfoContext(ctx, "Report created", "report_id", report.ID, "publication_id", report.PublicationID)
	return report, nil
}

// ListMine pages through the caller's reports, newest first.
func (s *ReportService) ListMine(ctx context.Context, userID uint, req models.PageRequest) (models.Page[models.Report], error) {
	req = req.Normalize()
	items, total, err := s.store.Reports().ListByReporter(ctx, userID, req)
	if err != nil {
		return models.Page[models.Report]{}, storageError(err)
	}
	return models.NewPage(items, req, total), nil
}

// ListMineWithFeedback pages through the caller's resolved or rejected reports carrying admin feedback.
func (s *ReportService) ListMineWithFeedback(ctx context.Context, userID uint, req models.PageRequest) (models.Page[models.Report], error) {
	req = req.Normalize()
	items, total, err := s.store.Reports().ListByReporterWithFeedback(ctx, userID, req)
	if err != nil {
		return models.Page[models.Report]{}, storageError(err)
	}
	return models.NewPage(items, req, total), nil
}

// ListAllAdmin pages through every report, optionally restricted to one status.
func (s *ReportService) ListAllAdmin(ctx context.Context, admin models.Identity, status *models.ReportStatus, req models.PageRequest) (models.Page[models.Report], error) {
	if !admin.IsAdmin() {
		return models.Page[models.Report]{}, models.NewForbiddenError("Admin access required")
	}
	req = req.Normalize()
	items, total, err := s.store.Reports().ListAll(ctx, status, req)
	if err != nil {
		return models.Page[models.Report]{}, storageError(err)
	}
	return models.NewPage(items, req, total), nil
}

func (s *ReportService) ListByPublicationAdmin(ctx context.Context, admin models.Identity, publicationID uint, req models.PageRequest) (models.Page[models.Report], error) {
	if !admin.IsAdmin() {
		return models.Page[models.Report]{}, models.NewForbiddenError("Admin access required")
	}
	ok, err := s.store.Publications().Exists(ctx, publicationID)
	if err != nil {
		return models.Page[models.Report]{}, storageError(err)
	}
	if !ok {
		return models.Page[models.Report]{}, models.NewNotFoundError("Publication", publicationID)
	}
	req = req.Normalize()
	items, total, err := s.store.Reports().ListByPublication(ctx, publicationID, req)
	if err != nil {
		return models.Page[models.Report]{}, storageError(err)
	}
	return models.NewPage(items, req, total), nil
}

// Resolve moves a PENDING report to RESOLVED (APPROVE) or REJECTED (DISMISS).
// New feedback always starts unread.
func (s *ReportService) Resolve(
	ctx context.Context,
	reportID uint,
	admin models.Identity,
	rawAction string,
	feedback *string,
) (report *models.Report, err error) {
	span, ctx := observability.NewSpan(ctx, "ReportService.Resolve",
		attribute.Int64("report.id", int64(reportID)),
		attribute.String("report.action", rawAction),
	)
	defer func() {
		span.SetError(err)
		span.End()
	}()

	if !admin.IsAdmin() {
		return nil, models.NewForbiddenError("Admin access required")
	}
	action, ok := models.ParseReportAction(rawAction)
	if !ok {
		return nil, models.NewFieldValidationError(map[string]string{"action": "must be one of: APPROVE DISMISS"})
	}
	if feedback != nil {
		trimmed := strings.TrimSpace(*feedback)
		if len([]rune(trimmed)) > maxFeedbackLen {
			return nil, models.NewFieldValidationError(map[string]string{"feedback": "must be at most 1000 characters"})
		}
		feedback = &trimmed
		if trimmed == "" {
			feedback = nil
		}
	}

	current, err := s.store.Reports().GetByID(ctx, reportID)
	if err != nil {
		return nil, notFoundOr(err, "Report", reportID)
	}
	if current.Status.IsTerminal() {
		return nil, models.NewInvalidTransitionError("Report has already been " + strings.ToLower(string(current.Status)))
	}

	target := action.TargetStatus()
	updated, err := s.store.Reports().Resolve(ctx, reportID, repository.Resolution{
		Status:     target,
		AdminID:    admin.ID,
		Feedback:   feedback,
		ResolvedAt: s.now(),
	})
	if err != nil {
		return nil, storageError(err)
	}
	if !updated {
		// another admin resolved it between the read and the write
		return nil, models.NewInvalidTransitionError("Report is no longer pending")
	}

	observability.ReportResolutions.WithLabelValues(string(target)).Inc()
	slog.InfoContext(ctx, "Report resolved", "report_id", reportID, "status", target, "admin_id", admin.ID)

	report, err = s.store.Reports().GetByID(ctx, reportID)
	if err != nil {
		return nil, notFoundOr(err, "Report", reportID)
	}
	return report, nil
}

// MarkFeedbackRead acknowledges admin feedback. Only the reporter may do so; repeating it is a no-op.
func (s *ReportService) MarkFeedbackRead(ctx context.Context, reportID, requesterID uint) error {
	report, err := s.store.Reports().GetByID(ctx, reportID)
	if err != nil {
		return notFoundOr(err, "Report", reportID)
	}
	if report.ReporterID != requesterID {
		return models.NewForbiddenError("Only the reporter can acknowledge this feedback")
	}
	if report.FeedbackRead {
		return nil
	}
	return storageError(s.store.Reports().MarkFeedbackRead(ctx, reportID))
}

func (s *ReportService) UnreadFeedbackCount(ctx context.Context, userID uint) (int64, error) {
	n, err := s.store.Reports().CountUnreadFeedback(ctx, userID)
	return n, storageError(err)
}
