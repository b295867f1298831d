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

const templateColumns = `
	id, clinician_id, day_of_week, work_start, work_end,
	break_start, break_end, slot_duration_minutes, max_concurrent_bookings,
	effective_from, effective_until, active, created_at, updated_at
`

func (r *templateRepository) Create(ctx context.Context, tmpl *model.AvailabilityTemplate) error {
	query := `
		INSERT INTO availability_templates (
			id, clinician_id, day_of_week, work_start, work_end,
			break_start, break_end, slot_duration_minutes, max_concurrent_bookings,
			effective_from, effective_until, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if tmpl.ID == uuid.Nil {
		tmpl.ID = uuid.New()
	}
	tmpl.CreatedAt = time.Now()
	tmpl.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		tmpl.ID,
		tmpl.ClinicianID,
		tmpl.DayOfWeek,
		tmpl.WorkStart,
		tmpl.WorkEnd,
		tmpl.BreakStart,
		tmpl.BreakEnd,
		tmpl.SlotDurationMinutes,
		tmpl.MaxConcurrentBookings,
		tmpl.EffectiveFrom,
		tmpl.EffectiveUntil,
		tmpl.Active,
		tmpl.CreatedAt,
		tmpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create availability template: %w", err)
	}
	return nil
}

func (r *templateRepository) Get(ctx context.Context, id uuid.UUID) (*model.AvailabilityTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM availability_templates WHERE id = $1`

	var tmpl model.AvailabilityTemplate
	err := r.db.GetContext(ctx, &tmpl, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("availability template", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability template: %w", err)
	}
	return &tmpl, nil
}

func (r *templateRepository) Update(ctx context.Context, tmpl *model.AvailabilityTemplate) error {
	query := `
		UPDATE availability_templates
		SET effective_until = $1, active = $2, updated_at = $3
		WHERE id = $4
	`
	tmpl.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		tmpl.EffectiveUntil,
		tmpl.Active,
		tmpl.UpdatedAt,
		tmpl.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update availability template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("availability template", err)
	}

	return nil
}

func (r *templateRepository) ListForClinician(ctx context.Context, clinicianID uuid.UUID, activeOnly bool) ([]*model.AvailabilityTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM availability_templates WHERE clinician_id = $1`
	if activeOnly {
		query += " AND active = true"
	}
	query += " ORDER BY day_of_week ASC, effective_from ASC"

	var templates []*model.AvailabilityTemplate
	err := r.db.SelectContext(ctx, &templates, query, clinicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability templates: %w", err)
	}
	return templates, nil
}

func (r *templateRepository) ListForClinicianDay(ctx context.Context, clinicianID uuid.UUID, dayOfWeek int) ([]*model.AvailabilityTemplate, error) {
	query := `SELECT ` + templateColumns + `
		FROM availability_templates
		WHERE clinician_id = $1 AND day_of_week = $2 AND active = true
		ORDER BY effective_from ASC
	`
	var templates []*model.AvailabilityTemplate
	err := r.db.SelectContext(ctx, &templates, query, clinicianID, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability templates: %w", err)
	}
	return templates, nil
}
