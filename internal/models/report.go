package models

import (
	"strings"
	"time"
)

// ReportStatus defines lifecycle states for listing reports.
type ReportStatus string

const (
	// ReportStatusPending indicates the report is awaiting review.
	ReportStatusPending ReportStatus = "PENDING"
	// ReportStatusResolved indicates an admin upheld the report.
	ReportStatusResolved ReportStatus = "RESOLVED"
	// ReportStatusRejected indicates an admin dismissed the report.
	ReportStatusRejected ReportStatus = "REJECTED"
)

// IsTerminal reports whether no further transition is allowed.
func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusResolved || s == ReportStatusRejected
}

// ParseReportStatus accepts any letter case.
func ParseReportStatus(raw string) (ReportStatus, bool) {
	switch s := ReportStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case ReportStatusPending, ReportStatusResolved, ReportStatusRejected:
		return s, true
	default:
		return "", false
	}
}

// ReportAction is the decision an admin takes on a pending report.
type ReportAction string

const (
	ReportActionApprove ReportAction = "APPROVE"
	ReportActionDismiss ReportAction = "DISMISS"
)

// ParseReportAction accepts any letter case.
func ParseReportAction(raw string) (ReportAction, bool) {
	switch a := ReportAction(strings.ToUpper(strings.TrimSpace(raw))); a {
	case ReportActionApprove, ReportActionDismiss:
		return a, true
	default:
		return "", false
	}
}

// TargetStatus is the terminal state the action drives a report into.
func (a ReportAction) TargetStatus() ReportStatus {
	if a == ReportActionApprove {
		return ReportStatusResolved
	}
	return ReportStatusRejected
}

// Report is a user complaint against a publication.
type Report struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	ReporterID       uint         `gorm:"not null;index" json:"reporter_id"`
	Reporter         *User        `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
	PublicationID    uint         `gorm:"not null;index" json:"publication_id"`
	Publication      *Publication `gorm:"foreignKey:PublicationID" json:"publication,omitempty"`
	Reason           string       `gorm:"size:100;not null" json:"reason"`
	Description      string       `gorm:"size:500" json:"description,omitempty"`
	ReportDate       time.Time    `gorm:"not null;index" json:"report_date"`
	Status           ReportStatus `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"`
	AdminFeedback    *string      `gorm:"size:1000" json:"admin_feedback,omitempty"`
	ResolvedDate     *time.Time   `json:"resolved_date,omitempty"`
	ResolvedByUserID *uint        `json:"resolved_by_user_id,omitempty"`
	FeedbackRead     bool         `gorm:"not null;default:false" json:"feedback_read"`
}
