package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
)

const timeOffColumns = `
	id, clinician_id, start_time, end_time, time_off_type, status,
	all_day, reason, affected_commitment_count, created_at, updated_at
`

func (r *timeOffRepository) Create(ctx context.Context, record *model.TimeOffRecord) error {
	query := `
		INSERT INTO time_off_records (
			id, clinician_id, start_time, end_time, time_off_type, status,
			all_day, reason, affected_commitment_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.ClinicianID,
		record.StartTime,
		record.EndTime,
		record.Type,
		record.Status,
		record.AllDay,
		record.Reason,
		record.AffectedCommitmentCount,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create time-off record: %w", err)
	}
	return nil
}

func (r *timeOffRepository) Get(ctx context.Context, id uuid.UUID) (*model.TimeOffRecord, error) {
	query := `SELECT ` + timeOffColumns + ` FROM time_off_records WHERE id = $1`

	var record model.TimeOffRecord
	err := r.db.GetContext(ctx, &record, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("time-off record", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get time-off record: %w", err)
	}
	return &record, nil
}

func (r *timeOffRepository) Update(ctx context.Context, record *model.TimeOffRecord) error {
	query := `
		UPDATE time_off_records
		SET status = $1, affected_commitment_count = $2, updated_at = $3
		WHERE id = $4
	`
	record.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		record.Status,
		record.AffectedCommitmentCount,
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update time-off record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("time-off record", err)
	}

	return nil
}

func (r *timeOffRepository) List(ctx context.Context, filters *model.TimeOffFilters) ([]*model.TimeOffRecord, error) {
	query := `SELECT ` + timeOffColumns + ` FROM time_off_records WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.ClinicianID != uuid.Nil {
		query += fmt.Sprintf(" AND clinician_id = $%d", argCount)
		args = append(args, filters.ClinicianID)
		argCount++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	if !filters.StartDate.IsZero() {
		query += fmt.Sprintf(" AND end_time > $%d", argCount)
		args = append(args, filters.StartDate)
		argCount++
	}

	if !filters.EndDate.IsZero() {
		query += fmt.Sprintf(" AND start_time < $%d", argCount)
		args = append(args, filters.EndDate)
		argCount++
	}

	query += " ORDER BY start_time ASC"

	var records []*model.TimeOffRecord
	err := r.db.SelectContext(ctx, &records, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list time-off records: %w", err)
	}
	return records, nil
}

func (r *timeOffRepository) GetApproved(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]*model.TimeOffRecord, error) {
	query := `SELECT ` + timeOffColumns + `
		FROM time_off_records
		WHERE clinician_id = $1
		AND status = 'approved'
		AND start_time < $2
		AND end_time > $3
		ORDER BY start_time ASC
	`
	var records []*model.TimeOffRecord
	err := r.db.SelectContext(ctx, &records, query, clinicianID, to, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get approved time-off records: %w", err)
	}
	return records, nil
}
