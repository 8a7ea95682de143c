package service

import (
	"fmt"
	"strings"

	"inmomarket/internal/models"
	"inmomarket/internal/validation"
)

// AvailabilityInput is one weekly visiting window as submitted by a client.
type AvailabilityInput struct {
	DayOfWeek string `json:"day_of_week" validate:"required,weekday"`
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" validate:"required,hhmm"`
}

type availabilityList struct {
	Windows []AvailabilityInput `json:"available_times" validate:"dive"`
}

// BuildAvailability validates windows and converts them to rows not yet bound to a publication.
// Overlapping windows are accepted.
func BuildAvailability(windows []AvailabilityInput) ([]models.AvailableTime, error) {
	fields := fieldErrors{}
	if err := checkAvailability(fields, windows); err != nil {
		return nil, err
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	out := make([]models.AvailableTime, 0, len(windows))
	for _, w := range windows {
		out = append(out, models.AvailableTime{
			DayOfWeek: models.DayOfWeek(strings.ToUpper(strings.TrimSpace(w.DayOfWeek))),
			StartTime: w.StartTime,
			EndTime:   w.EndTime,
		})
	}
	return out, nil
}

// checkAvailability records format problems and windows whose start is not before their end.
func checkAvailability(fields fieldErrors, windows []AvailabilityInput) error {
	if err := fields.merge(validation.Struct(availabilityList{Windows: windows})); err != nil {
		return err
	}
	for i, w := range windows {
		start, errStart := validation.ParseHHMM(w.StartTime)
		end, errEnd := validation.ParseHHMM(w.EndTime)
		if errStart != nil || errEnd != nil {
			continue
		}
		if start >= end {
			fields.add(fmt.Sprintf("available_times[%d].end_time", i), "must be after start_time")
		}
	}
	return nil
}
