package model

import (
	"time"

	"github.com/google/uuid"
)

type CommitmentStatus string

const (
	CommitmentStatusScheduled   CommitmentStatus = "scheduled"
	CommitmentStatusConfirmed   CommitmentStatus = "confirmed"
	CommitmentStatusCheckedIn   CommitmentStatus = "checked_in"
	CommitmentStatusInProgress  CommitmentStatus = "in_progress"
	CommitmentStatusCompleted   CommitmentStatus = "completed"
	CommitmentStatusCancelled   CommitmentStatus = "cancelled"
	CommitmentStatusNoShow      CommitmentStatus = "no_show"
	CommitmentStatusRescheduled CommitmentStatus = "rescheduled"
)

// LiveStatuses are the statuses that hold a clinician's time and participate
// in conflict checks.
var LiveStatuses = []CommitmentStatus{
	CommitmentStatusScheduled,
	CommitmentStatusConfirmed,
	CommitmentStatusCheckedIn,
	CommitmentStatusInProgress,
}

func (s CommitmentStatus) IsLive() bool {
	switch s {
	case CommitmentStatusScheduled, CommitmentStatusConfirmed,
		CommitmentStatusCheckedIn, CommitmentStatusInProgress:
		return true
	}
	return false
}

func (s CommitmentStatus) IsTerminal() bool {
	switch s {
	case CommitmentStatusCompleted, CommitmentStatusCancelled,
		CommitmentStatusNoShow, CommitmentStatusRescheduled:
		return true
	}
	return false
}

type CommitmentType string

const (
	CommitmentTypeAppointment CommitmentType = "appointment"
	CommitmentTypeBlock       CommitmentType = "block"
)

// Commitment is any interval on a clinician's calendar that prevents another
// booking: a patient appointment or a manual block.
type Commitment struct {
	Base
	ClinicianID  uuid.UUID        `db:"clinician_id" json:"clinician_id"`
	SubjectID    uuid.UUID        `db:"subject_id" json:"subject_id"`
	Type         CommitmentType   `db:"commitment_type" json:"commitment_type"`
	StartTime    time.Time        `db:"start_time" json:"start_time"`
	EndTime      time.Time        `db:"end_time" json:"end_time"`
	Status       CommitmentStatus `db:"status" json:"status"`
	Notes        string           `db:"notes" json:"notes,omitempty"`
	CancelReason *string          `db:"cancel_reason" json:"cancel_reason,omitempty"`
}

func (c *Commitment) Interval() TimeInterval {
	return TimeInterval{Start: c.StartTime, End: c.EndTime}
}

type CreateCommitmentRequest struct {
	ClinicianID uuid.UUID `json:"clinician_id" validate:"required"`
	SubjectID   uuid.UUID `json:"subject_id" validate:"required"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Notes       string    `json:"notes" validate:"max=1000"`
}

type RescheduleCommitmentRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Reason    string    `json:"reason" validate:"max=500"`
}

type CancelCommitmentRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type TransitionCommitmentRequest struct {
	Status CommitmentStatus `json:"status" validate:"required,oneof=confirmed checked_in in_progress completed no_show"`
}

type SwapCommitmentsRequest struct {
	CommitmentA uuid.UUID `json:"commitment_a" validate:"required"`
	CommitmentB uuid.UUID `json:"commitment_b" validate:"required"`
}

type BlockRecurrence string

const (
	BlockRecurrenceNone   BlockRecurrence = "none"
	BlockRecurrenceDaily  BlockRecurrence = "daily"
	BlockRecurrenceWeekly BlockRecurrence = "weekly"
)

type BlockSlotRequest struct {
	ClinicianID uuid.UUID       `json:"clinician_id" validate:"required"`
	StartTime   time.Time       `json:"start_time" validate:"required"`
	EndTime     time.Time       `json:"end_time" validate:"required,gtfield=StartTime"`
	Reason      string          `json:"reason" validate:"required,max=500"`
	Recurrence  BlockRecurrence `json:"recurrence" validate:"omitempty,oneof=none daily weekly"`
	Occurrences int             `json:"occurrences" validate:"omitempty,min=1,max=52"`
}

// BlockSlotResult reports batch block creation. Occurrences created before a
// conflicting one are kept, not rolled back.
type BlockSlotResult struct {
	Created      []*Commitment `json:"created"`
	CreatedCount int           `json:"created_count"`
	FailedAt     *TimeInterval `json:"failed_at,omitempty"`
	FailureError string        `json:"failure_error,omitempty"`
}

type CommitmentFilters struct {
	ClinicianID uuid.UUID
	SubjectID   uuid.UUID
	Status      CommitmentStatus
	StartDate   time.Time
	EndDate     time.Time
}
