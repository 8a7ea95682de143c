package service

import (
	"context"
	"strings"
	"testing"

	"inmomarket/internal/models"
	"inmomarket/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestReportService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewReportService(f.store)
	ctx := context.Background()
	pub := testutil.CreatePublication(t, f.db, f.owner.ID)

	tests := []struct {
		name  string
		in    ReportInput
		field string
	}{
		{"reason too short", ReportInput{PublicationID: pub.ID, Reason: " ab "}, "reason"},
		{"reason blank", ReportInput{PublicationID: pub.ID, Reason: "   "}, "reason"},
		{"reason too long", ReportInput{PublicationID: pub.ID, Reason: strings.Repeat("x", 101)}, "reason"},
		{"description too long", ReportInput{PublicationID: pub.ID, Reason: "Spam", Description: strings.Repeat("d", 501)}, "description"},
		{"missing publication", ReportInput{Reason: "Spam"}, "publication_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, f.other.ID, tt.in)
			appErr := requireCode(t, err, models.CodeValidation)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}

	_, err := svc.Create(ctx, f.other.ID, ReportInput{PublicationID: 9999, Reason: "Spam"})
	requireCode(t, err, models.CodeNotFound)
}

func TestReportService_ResolveTransitions(t *testing.T) {
	f := newFixture(t)
	svc := NewReportService(f.store)
	ctx := context.Background()
	pub := testutil.CreatePublication(t, f.db, f.owner.ID)

	approve, err := svc.Create(ctx, f.other.ID, ReportInput{PublicationID: pub.ID, Reason: "Fotos falsas"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, approve.Status)

	_, err = svc.Resolve(ctx, approve.ID, f.other, "APPROVE", nil)
	requireCode(t, err, models.CodeForbidden)

	_, err = svc.Resolve(ctx, approve.ID, f.admin, "ESCALATE", nil)
	requireCode(t, err, models.CodeValidation)

	_, err = svc.Resolve(ctx, approve.ID, f.admin, "approve", strPtr(strings.Repeat("f", 1001)))
	requireCode(t, err, models.CodeValidation)

	resolved, err := svc.Resolve(ctx, approve.ID, f.admin, "approve", strPtr("Publicación retirada"))
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusResolved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedDate)
	require.NotNil(t, resolved.ResolvedByUserID)
	assert.Equal(t, f.admin.ID, *resolved.ResolvedByUserID)
	assert.False(t, resolved.FeedbackRead)

	for _, action := range []string{"APPROVE", "DISMISS"} {
		_, err = svc.Resolve(ctx, approve.ID, f.admin, action, nil)
		requireCode(t, err, models.CodeInvalidTransition)
	}

	dismiss, err := svc.Create(ctx, f.other.ID, ReportInput{PublicationID: pub.ID, Reason: "Duplicado"})
	require.NoError(t, err)
	rejected, err := svc.Resolve(ctx, dismiss.ID, f.admin, "DISMISS", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusRejected, rejected.Status)
	assert.Nil(t, rejected.AdminFeedback)

	_, err = svc.Resolve(ctx, 9999, f.admin, "DISMISS", nil)
	requireCode(t, err, models.CodeNotFound)
}

func TestReportService_FeedbackScenario(t *testing.T) {
	f := newFixture(t)
	svc := NewReportService(f.store)
	ctx := context.Background()
	pub := testutil.CreatePublication(t, f.db, f.owner.ID)

	report, err := svc.Create(ctx, f.other.ID, ReportInput{PublicationID: pub.ID, Reason: "Precio engañoso"})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, report.ID, f.admin, "DISMISS", strPtr("Revisado, el precio es correcto"))
	require.NoError(t, err)

	unread, err := svc.UnreadFeedbackCount(ctx, f.other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	withFeedback, err := svc.ListMineWithFeedback(ctx, f.other.ID, models.PageRequest{})
	require.NoError(t, err)
	require.Len(t, withFeedback.Items, 1)
	assert.Equal(t, "Revisado, el precio es correcto", *withFeedback.Items[0].AdminFeedback)

	err = svc.MarkFeedbackRead(ctx, report.ID, f.owner.ID)
	requireCode(t, err, models.CodeForbidden)

	require.NoError(t, svc.MarkFeedbackRead(ctx, report.ID, f.other.ID))
	require.NoError(t, svc.MarkFeedbackRead(ctx, report.ID, f.other.ID))

	unread, err = svc.UnreadFeedbackCount(ctx, f.other.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	err = svc.MarkFeedbackRead(ctx, 9999, f.other.ID)
	requireCode(t, err, models.CodeNotFound)
}

func TestReportService_AdminListings(t *testing.T) {
	f := newFixture(t)
	svc := NewReportService(f.store)
	ctx := context.Background()
	p1 := testutil.CreatePublication(t, f.db, f.owner.ID)
	p2 := testutil.CreatePublication(t, f.db, f.owner.ID)

	r1, err := svc.Create(ctx, f.other.ID, ReportInput{PublicationID: p1.ID, Reason: "Spam"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, f.owner.ID, ReportInput{PublicationID: p2.ID, Reason: "Spam"})
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, r1.ID, f.admin, "APPROVE", nil)
	require.NoError(t, err)

	_, err = svc.ListAllAdmin(ctx, f.other, nil, models.PageRequest{})
	requireCode(t, err, models.CodeForbidden)

	all, err := svc.ListAllAdmin(ctx, f.admin, nil, models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.TotalItems)

	pending := models.ReportStatusPending
	onlyPending, err := svc.ListAllAdmin(ctx, f.admin, &pending, models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), onlyPending.TotalItems)

	byPub, err := svc.ListByPublicationAdmin(ctx, f.admin, p1.ID, models.PageRequest{})
	require.NoError(t, err)
	require.Len(t, byPub.Items, 1)
	assert.Equal(t, r1.ID, byPub.Items[0].ID)

	_, err = svc.ListByPublicationAdmin(ctx, f.admin, 9999, models.PageRequest{})
	requireCode(t, err, models.CodeNotFound)

	mine, err := svc.ListMine(ctx, f.other.ID, models.PageRequest{Size: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.TotalItems)
	assert.Equal(t, 5, mine.Size)
}
