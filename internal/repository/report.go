package repository

import (
	"context"
	"time"

	"inmomarket/internal/models"
	"inmomarket/internal/observability"

	"gorm.io/gorm"
)

// Resolution is the terminal decision written onto a pending report.
type Resolution struct {
	Status     models.ReportStatus
	AdminID    uint
	Feedback   *string
	ResolvedAt time.Time
}

// ReportRepository defines the interface for report data operations
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	ListByReporter(ctx context.Context, reporterID uint, page models.PageRequest) ([]models.Report, int64, error)
	ListByReporterWithFeedback(ctx context.Context, reporterID uint, page models.PageRequest) ([]models.Report, int64, error)
	ListAll(ctx context.Context, status *models.ReportStatus, page models.PageRequest) ([]models.Report, int64, error)
	ListByPublication(ctx context.Context, publicationID uint, page models.PageRequest) ([]models.Report, int64, error)
	// Resolve moves a PENDING report to res.Status. It returns false when the report
	// was not pending at the time of the write, including when it does not exist.
	Resolve(ctx context.Context, id uint, res Resolution) (bool, error)
	MarkFeedbackRead(ctx context.Context, id uint) error
	CountUnreadFeedback(ctx context.Context, reporterID uint) (int64, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	defer observability.TrackQuery("insert", "reports")()
	return r.db.WithContext(ctx).Omit("Reporter", "Publication").Create(report).Error
}

func (r *reportRepository) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	defer observability.TrackQuery("select", "reports")()
	var report models.Report
	if err := r.db.WithContext(ctx).Preload("Publication").First(&report, id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) paginate(
	ctx context.Context,
	scope func(*gorm.DB) *gorm.DB,
	order string,
	page models.PageRequest,
) ([]models.Report, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := scope(db.Model(&models.Report{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []models.Report
	err := scope(db).
		Preload("Publication").
		Order(order).
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&reports).Error
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (r *reportRepository) ListByReporter(ctx context.Context, reporterID uint, page models.PageRequest) ([]models.Report, int64, error) {
	defer observability.TrackQuery("select", "reports")()
	return r.paginate(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("reporter_id = ?", reporterID)
	}, "report_date DESC, id DESC", page)
}

// ListByReporterWithFeedback returns the reporter's terminal reports that carry admin feedback.
func (r *reportRepository) ListByReporterWithFeedback(ctx context.Context, reporterID uint, page models.PageRequest) ([]models.Report, int64, error) {
	defer observability.TrackQuery("select", "reports")()
	return r.paginate(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("reporter_id = ?", reporterID).
			Where("status IN ?", []models.ReportStatus{models.ReportStatusResolved, models.ReportStatusRejected}).
			Where("admin_feedback IS NOT NULL")
	}, "resolved_date DESC, id DESC", page)
}

func (r *reportRepository) ListAll(ctx context.Context, status *models.ReportStatus, page models.PageRequest) ([]models.Report, int64, error) {
	defer observability.TrackQuery("select", "reports")()
	return r.paginate(ctx, func(db *gorm.DB) *gorm.DB {
		if status != nil {
			return db.Where("status = ?", *status)
		}
		return db
	}, "report_date DESC, id DESC", page)
}

func (r *reportRepository) ListByPublication(ctx context.Context, publicationID uint, page models.PageRequest) ([]models.Report, int64, error) {
	defer observability.TrackQuery("select", "reports")()
	return r.paginate(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("publication_id = ?", publicationID)
	}, "report_date DESC, id DESC", page)
}

func (r *reportRepository) Resolve(ctx context.Context, id uint, res Resolution) (bool, error) {
	defer observability.TrackQuery("update", "reports")()
	result := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND status = ?", id, models.ReportStatusPending).
		Updates(map[string]interface{}{
			"status":              res.Status,
			"admin_feedback":      res.Feedback,
			"resolved_date":       res.ResolvedAt,
			"resolved_by_user_id": res.AdminID,
			"feedback_read":       false,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *reportRepository) MarkFeedbackRead(ctx context.Context, id uint) error {
	defer observability.TrackQuery("update", "reports")()
	return r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", id).
		Update("feedback_read", true).Error
}

// CountUnreadFeedback counts terminal reports with feedback the reporter has not acknowledged.
func (r *reportRepository) CountUnreadFeedback(ctx context.Context, reporterID uint) (int64, error) {
	defer observability.TrackQuery("select", "reports")()
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("reporter_id = ? AND feedback_read = ?", reporterID, false).
		Where("status IN ?", []models.ReportStatus{models.ReportStatusResolved, models.ReportStatusRejected}).
		Where("admin_feedback IS NOT NULL").
		Count(&count).Error
	return count, err
}
