package timeoff

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/conflict"
	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/internal/service/event"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
)

// Service manages the time-off request lifecycle. Only approved records
// block availability; approval is where the overlap checks happen.
type Service struct {
	repo           repository.TimeOffRepository
	commitmentRepo repository.CommitmentRepository
	emitter        event.Emitter
	logger         *logger.Logger
}

func NewService(repo repository.TimeOffRepository, commitmentRepo repository.CommitmentRepository, emitter event.Emitter, logger *logger.Logger) *Service {
	return &Service{
		repo:           repo,
		commitmentRepo: commitmentRepo,
		emitter:        emitter,
		logger:         logger,
	}
}

// Create files a time-off request. Blocked-type records are administrative
// holds and approve immediately; everything else waits for review.
func (s *Service) Create(ctx context.Context, req *model.CreateTimeOffRequest) (*model.TimeOffRecord, error) {
	interval := model.TimeInterval{Start: req.StartTime, End: req.EndTime}
	if err := interval.Validate(); err != nil {
		return nil, apperrors.InvalidArgument(err.Error())
	}

	record := &model.TimeOffRecord{
		ClinicianID: req.ClinicianID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Type:        req.Type,
		Status:      model.TimeOffStatusPending,
		AllDay:      req.AllDay,
		Reason:      req.Reason,
	}
	record.ID = uuid.New()

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create time-off record: %w", err)
	}

	if req.Type == model.TimeOffTypeBlocked {
		return s.Approve(ctx, record.ID)
	}
	return record, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.TimeOffRecord, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.TimeOffFilters) ([]*model.TimeOffRecord, error) {
	return s.repo.List(ctx, filters)
}

// Approve activates a pending record. It rejects windows already covered by
// another approved record and counts the live commitments the absence will
// disrupt, so reception can rebook them.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*model.TimeOffRecord, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != model.TimeOffStatusPending {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("time-off record is %s, not pending", record.Status))
	}

	approved, err := s.repo.GetApproved(ctx, record.ClinicianID, record.StartTime, record.EndTime)
	if err != nil {
		return nil, fmt.Errorf("failed to load approved records: %w", err)
	}
	for _, other := range approved {
		if other.ID != record.ID && record.Interval().Overlaps(other.Interval()) {
			return nil, apperrors.InvalidArgument(fmt.Sprintf(
				"window overlaps approved time-off %s", other.ID))
		}
	}

	live, err := s.commitmentRepo.GetLiveCommitments(ctx, record.ClinicianID, record.StartTime, record.EndTime)
	if err != nil {
		return nil, fmt.Errorf("failed to load live commitments: %w", err)
	}
	record.AffectedCommitmentCount = len(conflict.FindCommitmentConflicts(record.Interval(), live))

	record.Status = model.TimeOffStatusApproved
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to approve time-off record: %w", err)
	}

	if err := s.emitter.Emit(ctx, model.EventTimeOffApproved, record.ID, record); err != nil {
		s.logger.Error(err, "failed to emit time-off approval", "record_id", record.ID.String())
	}
	return record, nil
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID) (*model.TimeOffRecord, error) {
	return s.transition(ctx, id, model.TimeOffStatusPending, model.TimeOffStatusRejected)
}

// CancelApproved withdraws an approved absence, releasing the window back to
// availability.
func (s *Service) CancelApproved(ctx context.Context, id uuid.UUID) (*model.TimeOffRecord, error) {
	return s.transition(ctx, id, model.TimeOffStatusApproved, model.TimeOffStatusCancelled)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, from, to model.TimeOffStatus) (*model.TimeOffRecord, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != from {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("time-off record is %s, not %s", record.Status, from))
	}

	record.Status = to
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update time-off record: %w", err)
	}
	return record, nil
}
