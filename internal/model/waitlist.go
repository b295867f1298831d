package model

import (
	"time"

	"github.com/google/uuid"
)

type WaitlistPriority string

const (
	WaitlistPriorityLow    WaitlistPriority = "low"
	WaitlistPriorityNormal WaitlistPriority = "normal"
	WaitlistPriorityHigh   WaitlistPriority = "high"
	WaitlistPriorityUrgent WaitlistPriority = "urgent"
)

// Rank returns the total-order priority tier. Higher sorts first; FIFO within
// a tier.
func (p WaitlistPriority) Rank() int {
	switch p {
	case WaitlistPriorityUrgent:
		return 3
	case WaitlistPriorityHigh:
		return 2
	case WaitlistPriorityNormal:
		return 1
	case WaitlistPriorityLow:
		return 0
	}
	return 0
}

func (p WaitlistPriority) Valid() bool {
	switch p {
	case WaitlistPriorityLow, WaitlistPriorityNormal, WaitlistPriorityHigh, WaitlistPriorityUrgent:
		return true
	}
	return false
}

type WaitlistStatus string

const (
	WaitlistStatusWaiting   WaitlistStatus = "waiting"
	WaitlistStatusNotified  WaitlistStatus = "notified"
	WaitlistStatusAccepted  WaitlistStatus = "accepted"
	WaitlistStatusDeclined  WaitlistStatus = "declined"
	WaitlistStatusExpired   WaitlistStatus = "expired"
	WaitlistStatusConverted WaitlistStatus = "converted"
)

// Active statuses hold the patient's place in the queue. At most one active
// entry may exist per (patient, clinician) pair.
func (s WaitlistStatus) IsActive() bool {
	return s == WaitlistStatusWaiting || s == WaitlistStatusNotified
}

type WaitlistEntry struct {
	Base
	PatientID       uuid.UUID        `db:"patient_id" json:"patient_id"`
	ClinicianID     uuid.UUID        `db:"clinician_id" json:"clinician_id"`
	PreferredStart  *time.Time       `db:"preferred_start" json:"preferred_start,omitempty"`
	PreferredEnd    *time.Time       `db:"preferred_end" json:"preferred_end,omitempty"`
	AppointmentType string           `db:"appointment_type" json:"appointment_type"`
	Priority        WaitlistPriority `db:"priority" json:"priority"`
	Status          WaitlistStatus   `db:"status" json:"status"`
	ExpiresAt       time.Time        `db:"expires_at" json:"expires_at"`
}

// ExpiredBy reports read-time lazy expiry: the entry no longer counts toward
// ordering even before the persisted status transition.
func (e *WaitlistEntry) ExpiredBy(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

type EnqueueWaitlistRequest struct {
	PatientID       uuid.UUID        `json:"patient_id" validate:"required"`
	ClinicianID     uuid.UUID        `json:"clinician_id" validate:"required"`
	PreferredStart  *time.Time       `json:"preferred_start"`
	PreferredEnd    *time.Time       `json:"preferred_end"`
	AppointmentType string           `json:"appointment_type" validate:"required,max=100"`
	Priority        WaitlistPriority `json:"priority" validate:"required,oneof=low normal high urgent"`
	ExpiresAt       time.Time        `json:"expires_at" validate:"required"`
}

type WaitlistPosition struct {
	EntryID  uuid.UUID `json:"entry_id"`
	Position int       `json:"position"`
	QueueLen int       `json:"queue_length"`
}
