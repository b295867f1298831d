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

const commitmentColumns = `
	id, clinician_id, subject_id, commitment_type,
	start_time, end_time, status, notes, cancel_reason,
	created_at, updated_at
`

func (r *commitmentRepository) Create(ctx context.Context, commitment *model.Commitment) error {
	query := `
		INSERT INTO commitments (
			id, clinician_id, subject_id, commitment_type,
			start_time, end_time, status, notes, cancel_reason,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if commitment.ID == uuid.Nil {
		commitment.ID = uuid.New()
	}
	commitment.CreatedAt = time.Now()
	commitment.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		commitment.ID,
		commitment.ClinicianID,
		commitment.SubjectID,
		commitment.Type,
		commitment.StartTime,
		commitment.EndTime,
		commitment.Status,
		commitment.Notes,
		commitment.CancelReason,
		commitment.CreatedAt,
		commitment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create commitment: %w", err)
	}
	return nil
}

func (r *commitmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Commitment, error) {
	query := `SELECT ` + commitmentColumns + ` FROM commitments WHERE id = $1`

	var commitment model.Commitment
	err := r.db.GetContext(ctx, &commitment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("commitment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get commitment: %w", err)
	}
	return &commitment, nil
}

func (r *commitmentRepository) Update(ctx context.Context, commitment *model.Commitment) error {
	query := `
		UPDATE commitments
		SET start_time = $1, end_time = $2, status = $3, notes = $4,
			cancel_reason = $5, updated_at = $6
		WHERE id = $7
	`
	commitment.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		commitment.StartTime,
		commitment.EndTime,
		commitment.Status,
		commitment.Notes,
		commitment.CancelReason,
		commitment.UpdatedAt,
		commitment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update commitment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("commitment", err)
	}

	return nil
}

func (r *commitmentRepository) List(ctx context.Context, filters *model.CommitmentFilters) ([]*model.Commitment, error) {
	query := `SELECT ` + commitmentColumns + ` FROM commitments WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.ClinicianID != uuid.Nil {
		query += fmt.Sprintf(" AND clinician_id = $%d", argCount)
		args = append(args, filters.ClinicianID)
		argCount++
	}

	if filters.SubjectID != uuid.Nil {
		query += fmt.Sprintf(" AND subject_id = $%d", argCount)
		args = append(args, filters.SubjectID)
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

	var commitments []*model.Commitment
	err := r.db.SelectContext(ctx, &commitments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list commitments: %w", err)
	}
	return commitments, nil
}

func (r *commitmentRepository) GetLiveCommitments(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]*model.Commitment, error) {
	query := `SELECT ` + commitmentColumns + `
		FROM commitments
		WHERE clinician_id = $1
		AND status = ANY($2)
		AND start_time < $3
		AND end_time > $4
		ORDER BY start_time ASC
	`
	statuses := make([]string, len(model.LiveStatuses))
	for i, s := range model.LiveStatuses {
		statuses[i] = string(s)
	}

	var commitments []*model.Commitment
	err := r.db.SelectContext(ctx, &commitments, query, clinicianID, pq.Array(statuses), to, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get live commitments: %w", err)
	}
	return commitments, nil
}
