package validation

import (
	"errors"
	"testing"

	"inmomarket/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type windowInput struct {
	Day   string `json:"day_of_week" validate:"required,weekday"`
	Start string `json:"start_time" validate:"required,hhmm"`
}

type sampleInput struct {
	Reason  string        `json:"reason" validate:"notblank,min=3,max=100"`
	Rooms   int           `json:"bedrooms" validate:"gte=0"`
	Windows []windowInput `json:"available_times" validate:"dive"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeValidation, appErr.Code)
	return appErr.Fields
}

func TestStruct_Valid(t *testing.T) {
	t.Parallel()
	err := Struct(sampleInput{
		Reason:  "Información incorrecta",
		Rooms:   2,
		Windows: []windowInput{{Day: "monday", Start: "09:30"}},
	})
	assert.NoError(t, err)
}

func TestStruct_PerFieldMessages(t *testing.T) {
	t.Parallel()
	err := Struct(sampleInput{
		Reason:  "ab",
		Rooms:   -1,
		Windows: []windowInput{{Day: "someday", Start: "25:00"}},
	})
	fields := fieldsOf(t, err)

	assert.Equal(t, "must be at least 3 characters", fields["reason"])
	assert.Equal(t, "must be greater than or equal to 0", fields["bedrooms"])
	assert.Equal(t, "must be a day of the week", fields["available_times[0].day_of_week"])
	assert.Equal(t, "must be a time formatted HH:MM", fields["available_times[0].start_time"])
}

func TestStruct_BlankReason(t *testing.T) {
	t.Parallel()
	fields := fieldsOf(t, Struct(sampleInput{Reason: "   "}))
	assert.Equal(t, "is required", fields["reason"])
}

func TestParseHHMM(t *testing.T) {
	t.Parallel()
	m, err := ParseHHMM("08:45")
	require.NoError(t, err)
	assert.Equal(t, 8*60+45, m)

	_, err = ParseHHMM("8h")
	assert.Error(t, err)
}

func TestStruct_ContactFields(t *testing.T) {
	t.Parallel()
	type contact struct {
		Email string `json:"email" validate:"required,email"`
		Phone string `json:"phone_number" validate:"omitempty,e164"`
	}

	assert.NoError(t, Struct(contact{Email: "ana@example.com", Phone: "+573001234567"}))
	assert.NoError(t, Struct(contact{Email: "ana@example.com"}))

	fields := fieldsOf(t, Struct(contact{Email: "not-an-email", Phone: "3001234567"}))
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be a phone number in E.164 format", fields["phone_number"])
}
