package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
	// DEAD_LETTERED is terminal: the event has been copied to the
	// dead-letter table and must never be re-selected for delivery.
	OutboxStatusDeadLettered OutboxStatus = "DEAD_LETTERED"
)

// Domain event types published through the outbox.
const (
	EventCommitmentCreated     = "commitment.created"
	EventCommitmentRescheduled = "commitment.rescheduled"
	EventCommitmentCancelled   = "commitment.cancelled"
	EventCommitmentBlocked     = "commitment.blocked"
	EventWaitlistNotified      = "waitlist.notified"
	EventTimeOffApproved       = "timeoff.approved"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	AggregateID  uuid.UUID       `db:"aggregate_id" json:"aggregate_id"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       string          `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
}
