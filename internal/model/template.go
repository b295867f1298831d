package model

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilityTemplate is one weekly recurring availability rule for a
// clinician. Templates are superseded, never mutated, and soft-deactivated
// rather than deleted.
type AvailabilityTemplate struct {
	Base
	ClinicianID           uuid.UUID  `db:"clinician_id" json:"clinician_id"`
	DayOfWeek             int        `db:"day_of_week" json:"day_of_week"`
	WorkStart             string     `db:"work_start" json:"work_start"`
	WorkEnd               string     `db:"work_end" json:"work_end"`
	BreakStart            *string    `db:"break_start" json:"break_start,omitempty"`
	BreakEnd              *string    `db:"break_end" json:"break_end,omitempty"`
	SlotDurationMinutes   int        `db:"slot_duration_minutes" json:"slot_duration_minutes"`
	MaxConcurrentBookings int        `db:"max_concurrent_bookings" json:"max_concurrent_bookings"`
	EffectiveFrom         time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveUntil        *time.Time `db:"effective_until" json:"effective_until,omitempty"`
	Active                bool       `db:"active" json:"active"`
}

// CoversDate reports whether the template's effective window includes date.
// A nil EffectiveUntil means the template is open-ended.
func (t *AvailabilityTemplate) CoversDate(date time.Time) bool {
	day := date.Truncate(24 * time.Hour)
	if day.Before(t.EffectiveFrom.Truncate(24 * time.Hour)) {
		return false
	}
	if t.EffectiveUntil != nil && day.After(t.EffectiveUntil.Truncate(24*time.Hour)) {
		return false
	}
	return true
}

// EffectiveOverlaps reports whether two templates' effective windows
// intersect. Open-ended windows overlap everything after their start.
func (t *AvailabilityTemplate) EffectiveOverlaps(other *AvailabilityTemplate) bool {
	if t.EffectiveUntil != nil && !other.EffectiveFrom.Before(*t.EffectiveUntil) {
		return false
	}
	if other.EffectiveUntil != nil && !t.EffectiveFrom.Before(*other.EffectiveUntil) {
		return false
	}
	return true
}

type CreateTemplateRequest struct {
	ClinicianID           uuid.UUID  `json:"clinician_id" validate:"required"`
	DayOfWeek             int        `json:"day_of_week" validate:"min=0,max=6"`
	WorkStart             string     `json:"work_start" validate:"required"`
	WorkEnd               string     `json:"work_end" validate:"required"`
	BreakStart            *string    `json:"break_start"`
	BreakEnd              *string    `json:"break_end"`
	SlotDurationMinutes   int        `json:"slot_duration_minutes" validate:"required,min=5,max=480"`
	MaxConcurrentBookings int        `json:"max_concurrent_bookings" validate:"omitempty,min=1"`
	EffectiveFrom         time.Time  `json:"effective_from" validate:"required"`
	EffectiveUntil        *time.Time `json:"effective_until"`
}
