package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
)

// All repository interfaces in one file
type (
	// CommitmentRepository handles appointments and manual blocks
	CommitmentRepository interface {
		Create(ctx context.Context, commitment *model.Commitment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Commitment, error)
		Update(ctx context.Context, commitment *model.Commitment) error
		List(ctx context.Context, filters *model.CommitmentFilters) ([]*model.Commitment, error)
		// GetLiveCommitments returns commitments in live statuses whose
		// intervals intersect [from, to) for the clinician, ordered by start.
		GetLiveCommitments(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]*model.Commitment, error)
	}

	TemplateRepository interface {
		Create(ctx context.Context, tmpl *model.AvailabilityTemplate) error
		Get(ctx context.Context, id uuid.UUID) (*model.AvailabilityTemplate, error)
		Update(ctx context.Context, tmpl *model.AvailabilityTemplate) error
		ListForClinician(ctx context.Context, clinicianID uuid.UUID, activeOnly bool) ([]*model.AvailabilityTemplate, error)
		ListForClinicianDay(ctx context.Context, clinicianID uuid.UUID, dayOfWeek int) ([]*model.AvailabilityTemplate, error)
	}

	TimeOffRepository interface {
		Create(ctx context.Context, record *model.TimeOffRecord) error
		Get(ctx context.Context, id uuid.UUID) (*model.TimeOffRecord, error)
		Update(ctx context.Context, record *model.TimeOffRecord) error
		List(ctx context.Context, filters *model.TimeOffFilters) ([]*model.TimeOffRecord, error)
		// GetApproved returns approved records intersecting [from, to).
		GetApproved(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]*model.TimeOffRecord, error)
	}

	WaitlistRepository interface {
		Create(ctx context.Context, entry *model.WaitlistEntry) error
		Get(ctx context.Context, id uuid.UUID) (*model.WaitlistEntry, error)
		Update(ctx context.Context, entry *model.WaitlistEntry) error
		GetActiveEntry(ctx context.Context, patientID, clinicianID uuid.UUID) (*model.WaitlistEntry, error)
		ListActiveForClinician(ctx context.Context, clinicianID uuid.UUID) ([]*model.WaitlistEntry, error)
		ListExpiredActive(ctx context.Context, cutoff time.Time, limit int) ([]*model.WaitlistEntry, error)
	}

	OutboxRepository interface {
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		Create(ctx context.Context, event *model.OutboxEvent) error
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, err *string) error
		BeginTx(ctx context.Context) (*sql.Tx, error)
		UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, status string, errorMessage *string, retryAt *time.Time) error
		// MoveToDeadLetter copies the event into the dead-letter table
		// and terminalizes the source row atomically.
		MoveToDeadLetter(ctx context.Context, tx *sql.Tx, event *model.OutboxEvent) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
