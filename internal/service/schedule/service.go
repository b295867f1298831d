package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/internal/timegrid"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
)

// Service administers weekly availability templates. Overlapping effective
// windows for the same clinician and weekday are rejected at creation time,
// never reconciled at query time.
type Service struct {
	repo repository.TemplateRepository
}

func NewService(repo repository.TemplateRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req *model.CreateTemplateRequest) (*model.AvailabilityTemplate, error) {
	if err := validateClocks(req); err != nil {
		return nil, err
	}
	if req.EffectiveUntil != nil && !req.EffectiveFrom.Before(*req.EffectiveUntil) {
		return nil, apperrors.InvalidArgument("effective_until must be after effective_from")
	}

	tmpl := &model.AvailabilityTemplate{
		ClinicianID:           req.ClinicianID,
		DayOfWeek:             req.DayOfWeek,
		WorkStart:             req.WorkStart,
		WorkEnd:               req.WorkEnd,
		BreakStart:            req.BreakStart,
		BreakEnd:              req.BreakEnd,
		SlotDurationMinutes:   req.SlotDurationMinutes,
		MaxConcurrentBookings: req.MaxConcurrentBookings,
		EffectiveFrom:         req.EffectiveFrom,
		EffectiveUntil:        req.EffectiveUntil,
		Active:                true,
	}
	tmpl.ID = uuid.New()

	existing, err := s.repo.ListForClinicianDay(ctx, req.ClinicianID, req.DayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	for _, other := range existing {
		if other.Active && tmpl.EffectiveOverlaps(other) {
			return nil, apperrors.InvalidArgument(fmt.Sprintf(
				"effective window overlaps active template %s for the same weekday", other.ID))
		}
	}

	if err := s.repo.Create(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return tmpl, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.AvailabilityTemplate, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListForClinician(ctx context.Context, clinicianID uuid.UUID, activeOnly bool) ([]*model.AvailabilityTemplate, error) {
	return s.repo.ListForClinician(ctx, clinicianID, activeOnly)
}

// Supersede closes the old template's effective window at the new one's
// start and creates the replacement. The old row survives for audit.
func (s *Service) Supersede(ctx context.Context, oldID uuid.UUID, req *model.CreateTemplateRequest) (*model.AvailabilityTemplate, error) {
	old, err := s.repo.Get(ctx, oldID)
	if err != nil {
		return nil, err
	}
	if !old.Active {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("template %s is not active", oldID))
	}
	if old.ClinicianID != req.ClinicianID || old.DayOfWeek != req.DayOfWeek {
		return nil, apperrors.InvalidArgument("replacement must target the same clinician and weekday")
	}
	if !req.EffectiveFrom.After(old.EffectiveFrom) {
		return nil, apperrors.InvalidArgument("replacement must take effect after the template it supersedes")
	}

	cutoff := req.EffectiveFrom
	old.EffectiveUntil = &cutoff
	if err := s.repo.Update(ctx, old); err != nil {
		return nil, fmt.Errorf("failed to close superseded template: %w", err)
	}

	return s.Create(ctx, req)
}

// Deactivate soft-disables a template; resolved availability stops using it
// immediately.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	tmpl, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !tmpl.Active {
		return apperrors.InvalidArgument(fmt.Sprintf("template %s is already inactive", id))
	}

	tmpl.Active = false
	if err := s.repo.Update(ctx, tmpl); err != nil {
		return fmt.Errorf("failed to deactivate template: %w", err)
	}
	return nil
}

func validateClocks(req *model.CreateTemplateRequest) error {
	workStart, err := timegrid.ToMinutesSinceMidnight(req.WorkStart)
	if err != nil {
		return err
	}
	workEnd, err := timegrid.ToMinutesSinceMidnight(req.WorkEnd)
	if err != nil {
		return err
	}
	if workEnd <= workStart {
		return apperrors.InvalidArgument("work_end must be after work_start")
	}

	if (req.BreakStart == nil) != (req.BreakEnd == nil) {
		return apperrors.InvalidArgument("break_start and break_end must be set together")
	}
	if req.BreakStart != nil {
		breakStart, err := timegrid.ToMinutesSinceMidnight(*req.BreakStart)
		if err != nil {
			return err
		}
		breakEnd, err := timegrid.ToMinutesSinceMidnight(*req.BreakEnd)
		if err != nil {
			return err
		}
		if breakEnd <= breakStart {
			return apperrors.InvalidArgument("break_end must be after break_start")
		}
		if breakStart < workStart || breakEnd > workEnd {
			return apperrors.InvalidArgument("break must fall within working hours")
		}
	}
	return nil
}
