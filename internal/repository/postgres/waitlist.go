package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/scheduler-api/internal/model"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
)

const uniqueViolation = pq.ErrorCode("23505")

const waitlistColumns = `
	id, patient_id, clinician_id, preferred_start, preferred_end,
	appointment_type, priority, status, expires_at, created_at, updated_at
`

func (r *waitlistRepository) Create(ctx context.Context, entry *model.WaitlistEntry) error {
	query := `
		INSERT INTO waitlist_entries (
			id, patient_id, clinician_id, preferred_start, preferred_end,
			appointment_type, priority, status, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.PatientID,
		entry.ClinicianID,
		entry.PreferredStart,
		entry.PreferredEnd,
		entry.AppointmentType,
		entry.Priority,
		entry.Status,
		entry.ExpiresAt,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		// Backstop for the one-active-entry invariant: the partial unique
		// index uq_waitlist_active on (patient_id, clinician_id)
		// WHERE status IN ('waiting','notified') catches enqueues racing
		// past the service-level check.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperrors.DuplicateActiveEntry(entry.PatientID, entry.ClinicianID)
		}
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}
	return nil
}

func (r *waitlistRepository) Get(ctx context.Context, id uuid.UUID) (*model.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE id = $1`

	var entry model.WaitlistEntry
	err := r.db.GetContext(ctx, &entry, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("waitlist entry", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}
	return &entry, nil
}

func (r *waitlistRepository) Update(ctx context.Context, entry *model.WaitlistEntry) error {
	query := `
		UPDATE waitlist_entries
		SET status = $1, expires_at = $2, updated_at = $3
		WHERE id = $4
	`
	entry.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		entry.Status,
		entry.ExpiresAt,
		entry.UpdatedAt,
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update waitlist entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("waitlist entry", err)
	}

	return nil
}

func (r *waitlistRepository) GetActiveEntry(ctx context.Context, patientID, clinicianID uuid.UUID) (*model.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + `
		FROM waitlist_entries
		WHERE patient_id = $1 AND clinician_id = $2
		AND status IN ('waiting', 'notified')
		LIMIT 1
	`
	var entry model.WaitlistEntry
	err := r.db.GetContext(ctx, &entry, query, patientID, clinicianID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active waitlist entry: %w", err)
	}
	return &entry, nil
}

func (r *waitlistRepository) ListActiveForClinician(ctx context.Context, clinicianID uuid.UUID) ([]*model.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + `
		FROM waitlist_entries
		WHERE clinician_id = $1
		AND status IN ('waiting', 'notified')
		ORDER BY created_at ASC
	`
	var entries []*model.WaitlistEntry
	err := r.db.SelectContext(ctx, &entries, query, clinicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist entries: %w", err)
	}
	return entries, nil
}

func (r *waitlistRepository) ListExpiredActive(ctx context.Context, cutoff time.Time, limit int) ([]*model.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + `
		FROM waitlist_entries
		WHERE status IN ('waiting', 'notified')
		AND expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2
	`
	var entries []*model.WaitlistEntry
	err := r.db.SelectContext(ctx, &entries, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired waitlist entries: %w", err)
	}
	return entries, nil
}
