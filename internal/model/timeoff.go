package model

import (
	"time"

	"github.com/google/uuid"
)

type TimeOffType string

const (
	TimeOffTypeVacation   TimeOffType = "vacation"
	TimeOffTypeSick       TimeOffType = "sick"
	TimeOffTypeConference TimeOffType = "conference"
	TimeOffTypeTraining   TimeOffType = "training"
	TimeOffTypePersonal   TimeOffType = "personal"
	TimeOffTypeBlocked    TimeOffType = "blocked"
)

type TimeOffStatus string

const (
	TimeOffStatusPending   TimeOffStatus = "pending"
	TimeOffStatusApproved  TimeOffStatus = "approved"
	TimeOffStatusRejected  TimeOffStatus = "rejected"
	TimeOffStatusCancelled TimeOffStatus = "cancelled"
)

type TimeOffRecord struct {
	Base
	ClinicianID             uuid.UUID     `db:"clinician_id" json:"clinician_id"`
	StartTime               time.Time     `db:"start_time" json:"start_time"`
	EndTime                 time.Time     `db:"end_time" json:"end_time"`
	Type                    TimeOffType   `db:"time_off_type" json:"time_off_type"`
	Status                  TimeOffStatus `db:"status" json:"status"`
	AllDay                  bool          `db:"all_day" json:"all_day"`
	Reason                  string        `db:"reason" json:"reason,omitempty"`
	AffectedCommitmentCount int           `db:"affected_commitment_count" json:"affected_commitment_count"`
}

func (r *TimeOffRecord) Interval() TimeInterval {
	return TimeInterval{Start: r.StartTime, End: r.EndTime}
}

type CreateTimeOffRequest struct {
	ClinicianID uuid.UUID   `json:"clinician_id" validate:"required"`
	StartTime   time.Time   `json:"start_time" validate:"required"`
	EndTime     time.Time   `json:"end_time" validate:"required,gtfield=StartTime"`
	Type        TimeOffType `json:"time_off_type" validate:"required,oneof=vacation sick conference training personal blocked"`
	AllDay      bool        `json:"all_day"`
	Reason      string      `json:"reason" validate:"max=500"`
}

type TimeOffFilters struct {
	ClinicianID uuid.UUID
	Status      TimeOffStatus
	StartDate   time.Time
	EndDate     time.Time
}
