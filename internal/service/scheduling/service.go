package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/conflict"
	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/internal/service/event"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
	"github.com/jwalitptl/scheduler-api/pkg/locker"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
)

// Service is the scheduling facade. Every check-then-write sequence runs
// under the clinician's lock so concurrent bookings for one clinician
// serialize; different clinicians never contend.
type Service struct {
	repo    repository.CommitmentRepository
	locker  locker.Locker
	emitter event.Emitter
	logger  *logger.Logger
	now     func() time.Time
}

func NewService(repo repository.CommitmentRepository, lk locker.Locker, emitter event.Emitter, logger *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		locker:  lk,
		emitter: emitter,
		logger:  logger,
		now:     time.Now,
	}
}

// withClinicianLock serializes fn on the clinician's lock. A fail-fast lock
// miss means another request is mid-write for the same clinician; that
// surfaces as a retryable conflict, not an internal error.
func (s *Service) withClinicianLock(ctx context.Context, clinicianID uuid.UUID, fn func(ctx context.Context) error) error {
	err := s.locker.WithClinicianLock(ctx, clinicianID, fn)
	if errors.Is(err, locker.ErrLockNotAcquired) {
		return apperrors.LockContention(clinicianID)
	}
	return err
}

// Create books a new appointment after a conflict check against every live
// commitment for the clinician.
func (s *Service) Create(ctx context.Context, req *model.CreateCommitmentRequest) (*model.Commitment, error) {
	interval := model.TimeInterval{Start: req.StartTime, End: req.EndTime}
	if err := interval.Validate(); err != nil {
		return nil, apperrors.InvalidArgument(err.Error())
	}

	commitment := &model.Commitment{
		ClinicianID: req.ClinicianID,
		SubjectID:   req.SubjectID,
		Type:        model.CommitmentTypeAppointment,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      model.CommitmentStatusScheduled,
		Notes:       req.Notes,
	}
	commitment.ID = uuid.New()

	err := s.withClinicianLock(ctx, req.ClinicianID, func(ctx context.Context) error {
		if err := s.checkConflicts(ctx, req.ClinicianID, interval); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, commitment); err != nil {
			return fmt.Errorf("failed to create commitment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, model.EventCommitmentCreated, commitment.ID, commitment)
	return commitment, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Commitment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.CommitmentFilters) ([]*model.Commitment, error) {
	return s.repo.List(ctx, filters)
}

// Reschedule moves a commitment to a new interval. The conflict check
// excludes the commitment being moved. Confirmation state resets to
// scheduled; the old interval is preserved as an append-only note.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleCommitmentRequest) (*model.Commitment, error) {
	newInterval := model.TimeInterval{Start: req.StartTime, End: req.EndTime}
	if err := newInterval.Validate(); err != nil {
		return nil, apperrors.InvalidArgument(err.Error())
	}

	commitment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var updated *model.Commitment
	lockErr := s.withClinicianLock(ctx, commitment.ClinicianID, func(ctx context.Context) error {
		// Re-read under the lock; the snapshot above only told us which
		// clinician to lock.
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.IsLive() {
			return apperrors.InvalidArgument(fmt.Sprintf("cannot reschedule a %s commitment", current.Status))
		}

		if err := s.checkConflicts(ctx, current.ClinicianID, newInterval, current.ID); err != nil {
			return err
		}

		auditNote := fmt.Sprintf("rescheduled from %s-%s to %s-%s",
			current.StartTime.Format(time.RFC3339), current.EndTime.Format(time.RFC3339),
			req.StartTime.Format(time.RFC3339), req.EndTime.Format(time.RFC3339))
		if req.Reason != "" {
			auditNote += ": " + req.Reason
		}
		if current.Notes != "" {
			current.Notes += "\n"
		}
		current.Notes += auditNote

		current.StartTime = req.StartTime
		current.EndTime = req.EndTime
		current.Status = model.CommitmentStatusScheduled

		if err := s.repo.Update(ctx, current); err != nil {
			return fmt.Errorf("failed to update commitment: %w", err)
		}
		updated = current
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}

	s.emit(ctx, model.EventCommitmentRescheduled, updated.ID, updated)
	return updated, nil
}

// Cancel transitions to cancelled from any non-terminal state. Cancelling an
// already-cancelled commitment always fails and never re-fires the event.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, req *model.CancelCommitmentRequest) (*model.Commitment, error) {
	if req.Reason == "" {
		return nil, apperrors.InvalidArgument("cancel reason is required")
	}

	commitment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if commitment.Status == model.CommitmentStatusCancelled {
		return nil, apperrors.AlreadyCancelled(id)
	}
	if commitment.Status.IsTerminal() {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("cannot cancel a %s commitment", commitment.Status))
	}

	commitment.Status = model.CommitmentStatusCancelled
	commitment.CancelReason = &req.Reason
	if err := s.repo.Update(ctx, commitment); err != nil {
		return nil, fmt.Errorf("failed to cancel commitment: %w", err)
	}

	s.emit(ctx, model.EventCommitmentCancelled, commitment.ID, commitment)
	return commitment, nil
}

// Transition advances the commitment along its status machine:
// scheduled -> confirmed -> checked_in -> in_progress -> completed, with
// no_show reachable only from scheduled/confirmed at or after start time.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target model.CommitmentStatus) (*model.Commitment, error) {
	commitment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.validateTransition(commitment, target); err != nil {
		return nil, err
	}

	commitment.Status = target
	if err := s.repo.Update(ctx, commitment); err != nil {
		return nil, fmt.Errorf("failed to update commitment: %w", err)
	}
	return commitment, nil
}

func (s *Service) validateTransition(c *model.Commitment, target model.CommitmentStatus) error {
	if c.Status.IsTerminal() {
		return apperrors.InvalidArgument(fmt.Sprintf("commitment is %s, no further transitions", c.Status))
	}

	switch target {
	case model.CommitmentStatusConfirmed:
		if c.Status != model.CommitmentStatusScheduled {
			return invalidTransition(c.Status, target)
		}
	case model.CommitmentStatusCheckedIn:
		if c.Status != model.CommitmentStatusConfirmed {
			return invalidTransition(c.Status, target)
		}
	case model.CommitmentStatusInProgress:
		if c.Status != model.CommitmentStatusCheckedIn {
			return invalidTransition(c.Status, target)
		}
	case model.CommitmentStatusCompleted:
		if c.Status != model.CommitmentStatusInProgress {
			return invalidTransition(c.Status, target)
		}
	case model.CommitmentStatusNoShow:
		if c.Status != model.CommitmentStatusScheduled && c.Status != model.CommitmentStatusConfirmed {
			return invalidTransition(c.Status, target)
		}
		if s.now().Before(c.StartTime) {
			return apperrors.InvalidArgument("cannot mark no_show before the commitment's start time")
		}
	default:
		return apperrors.InvalidArgument(fmt.Sprintf("invalid target status %q", target))
	}
	return nil
}

func invalidTransition(from, to model.CommitmentStatus) error {
	return apperrors.InvalidArgument(fmt.Sprintf("cannot transition from %s to %s", from, to))
}

// SwapTimes exchanges the intervals of two commitments of the same clinician.
// The two skip conflict checks against each other (they are trading slots)
// but each new interval must still clear every third live commitment.
func (s *Service) SwapTimes(ctx context.Context, req *model.SwapCommitmentsRequest) (*model.Commitment, *model.Commitment, error) {
	if req.CommitmentA == req.CommitmentB {
		return nil, nil, apperrors.InvalidArgument("cannot swap a commitment with itself")
	}

	first, err := s.repo.Get(ctx, req.CommitmentA)
	if err != nil {
		return nil, nil, err
	}

	var a, b *model.Commitment
	lockErr := s.withClinicianLock(ctx, first.ClinicianID, func(ctx context.Context) error {
		a, err = s.repo.Get(ctx, req.CommitmentA)
		if err != nil {
			return err
		}
		b, err = s.repo.Get(ctx, req.CommitmentB)
		if err != nil {
			return err
		}

		if a.ClinicianID != b.ClinicianID {
			return apperrors.CrossClinicianSwap()
		}
		if !a.Status.IsLive() || !b.Status.IsLive() {
			return apperrors.InvalidArgument("both commitments must be live to swap")
		}

		newA := b.Interval()
		newB := a.Interval()

		if err := s.checkConflicts(ctx, a.ClinicianID, newA, a.ID, b.ID); err != nil {
			return err
		}
		if err := s.checkConflicts(ctx, a.ClinicianID, newB, a.ID, b.ID); err != nil {
			return err
		}

		a.StartTime, a.EndTime = newA.Start, newA.End
		b.StartTime, b.EndTime = newB.Start, newB.End

		if err := s.repo.Update(ctx, a); err != nil {
			return fmt.Errorf("failed to update commitment %s: %w", a.ID, err)
		}
		if err := s.repo.Update(ctx, b); err != nil {
			return fmt.Errorf("failed to update commitment %s: %w", b.ID, err)
		}
		return nil
	})
	if lockErr != nil {
		return nil, nil, lockErr
	}

	s.emit(ctx, model.EventCommitmentRescheduled, a.ID, a)
	s.emit(ctx, model.EventCommitmentRescheduled, b.ID, b)
	return a, b, nil
}

// BlockSlot creates one or more non-bookable block commitments. Each
// occurrence is an independent write: a conflict at occurrence N keeps the
// N-1 already created and reports the failure point, no rollback.
func (s *Service) BlockSlot(ctx context.Context, req *model.BlockSlotRequest) (*model.BlockSlotResult, error) {
	base := model.TimeInterval{Start: req.StartTime, End: req.EndTime}
	if err := base.Validate(); err != nil {
		return nil, apperrors.InvalidArgument(err.Error())
	}

	occurrences := req.Occurrences
	if occurrences <= 0 || req.Recurrence == model.BlockRecurrenceNone || req.Recurrence == "" {
		occurrences = 1
	}

	var step time.Duration
	switch req.Recurrence {
	case model.BlockRecurrenceDaily:
		step = 24 * time.Hour
	case model.BlockRecurrenceWeekly:
		step = 7 * 24 * time.Hour
	case model.BlockRecurrenceNone, "":
	default:
		return nil, apperrors.InvalidArgument(fmt.Sprintf("invalid recurrence %q", req.Recurrence))
	}

	result := &model.BlockSlotResult{}
	lockErr := s.withClinicianLock(ctx, req.ClinicianID, func(ctx context.Context) error {
		for i := 0; i < occurrences; i++ {
			offset := time.Duration(i) * step
			interval := model.TimeInterval{Start: base.Start.Add(offset), End: base.End.Add(offset)}

			if err := s.checkConflicts(ctx, req.ClinicianID, interval); err != nil {
				result.FailedAt = &interval
				result.FailureError = err.Error()
				return nil
			}

			block := &model.Commitment{
				ClinicianID: req.ClinicianID,
				SubjectID:   req.ClinicianID,
				Type:        model.CommitmentTypeBlock,
				StartTime:   interval.Start,
				EndTime:     interval.End,
				Status:      model.CommitmentStatusScheduled,
				Notes:       req.Reason,
			}
			block.ID = uuid.New()

			if err := s.repo.Create(ctx, block); err != nil {
				result.FailedAt = &interval
				result.FailureError = err.Error()
				return nil
			}

			result.Created = append(result.Created, block)
			result.CreatedCount++
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}

	for _, block := range result.Created {
		s.emit(ctx, model.EventCommitmentBlocked, block.ID, block)
	}
	return result, nil
}

// checkConflicts loads the clinician's live commitments intersecting the
// interval and fails with SchedulingConflict naming each collision.
func (s *Service) checkConflicts(ctx context.Context, clinicianID uuid.UUID, interval model.TimeInterval, exclude ...uuid.UUID) error {
	live, err := s.repo.GetLiveCommitments(ctx, clinicianID, interval.Start, interval.End)
	if err != nil {
		return fmt.Errorf("failed to load live commitments: %w", err)
	}

	colliding := conflict.FindCommitmentConflicts(interval, live, exclude...)
	if len(colliding) == 0 {
		return nil
	}

	conflicts := make([]apperrors.Conflict, 0, len(colliding))
	for _, c := range colliding {
		conflicts = append(conflicts, apperrors.Conflict{
			CommitmentID: c.ID,
			Start:        c.StartTime.Format(time.RFC3339),
			End:          c.EndTime.Format(time.RFC3339),
		})
	}
	return apperrors.SchedulingConflict(conflicts)
}

func (s *Service) emit(ctx context.Context, eventType string, id uuid.UUID, payload interface{}) {
	if err := s.emitter.Emit(ctx, eventType, id, payload); err != nil {
		s.logger.Error(err, "failed to emit event", "event_type", eventType, "commitment_id", id.String())
	}
}
