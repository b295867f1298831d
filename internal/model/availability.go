package model

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusBlocked   SlotStatus = "blocked"
)

type Slot struct {
	Start  time.Time  `json:"start"`
	End    time.Time  `json:"end"`
	Status SlotStatus `json:"status"`
}

func (s Slot) Interval() TimeInterval {
	return TimeInterval{Start: s.Start, End: s.End}
}

// DaySchedule is one calendar date's resolved slot grid. Break-window slots
// are excluded from the grid entirely and do not count toward TotalSlots.
type DaySchedule struct {
	Date           time.Time `json:"date"`
	Working        bool      `json:"working"`
	Slots          []Slot    `json:"slots"`
	TotalSlots     int       `json:"total_slots"`
	AvailableCount int       `json:"available_count"`
	BookedCount    int       `json:"booked_count"`
	BlockedCount   int       `json:"blocked_count"`
}

// AvailabilityReport aggregates a date range for one clinician.
// UtilizationRate is booked/(available+booked); blocked time is not capacity.
type AvailabilityReport struct {
	ClinicianID     uuid.UUID     `json:"clinician_id"`
	From            time.Time     `json:"from"`
	To              time.Time     `json:"to"`
	Days            []DaySchedule `json:"days"`
	TotalSlots      int           `json:"total_slots"`
	AvailableCount  int           `json:"available_count"`
	BookedCount     int           `json:"booked_count"`
	BlockedCount    int           `json:"blocked_count"`
	UtilizationRate float64       `json:"utilization_rate"`
}

// SuggestionConstraints are soft preferences for slot ranking; they weight
// scores, they never filter slots out.
type SuggestionConstraints struct {
	PreferredDays      []time.Weekday `json:"preferred_days,omitempty"`
	PreferredTimeStart *string        `json:"preferred_time_start,omitempty"`
	PreferredTimeEnd   *string        `json:"preferred_time_end,omitempty"`
	DaysAhead          int            `json:"days_ahead"`
	MaxSuggestions     int            `json:"max_suggestions"`
}

type RankedSlot struct {
	Slot  Slot `json:"slot"`
	Score int  `json:"score"`
}
