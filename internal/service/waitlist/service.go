package waitlist

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/internal/service/event"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
)

type Service struct {
	repo    repository.WaitlistRepository
	emitter event.Emitter
	logger  *logger.Logger
	now     func() time.Time
}

func NewService(repo repository.WaitlistRepository, emitter event.Emitter, logger *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		emitter: emitter,
		logger:  logger,
		now:     time.Now,
	}
}

// Enqueue admits a patient to a clinician's waitlist. At most one active
// entry may exist per patient+clinician pair.
func (s *Service) Enqueue(ctx context.Context, req *model.EnqueueWaitlistRequest) (*model.WaitlistEntry, error) {
	if !req.Priority.Valid() {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("invalid priority %q", req.Priority))
	}
	if !req.ExpiresAt.After(s.now()) {
		return nil, apperrors.InvalidArgument("expires_at must be in the future")
	}

	existing, err := s.repo.GetActiveEntry(ctx, req.PatientID, req.ClinicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active entry: %w", err)
	}
	if existing != nil && !existing.ExpiredBy(s.now()) {
		return nil, apperrors.DuplicateActiveEntry(req.PatientID, req.ClinicianID)
	}

	entry := &model.WaitlistEntry{
		PatientID:       req.PatientID,
		ClinicianID:     req.ClinicianID,
		PreferredStart:  req.PreferredStart,
		PreferredEnd:    req.PreferredEnd,
		AppointmentType: req.AppointmentType,
		Priority:        req.Priority,
		Status:          model.WaitlistStatusWaiting,
		ExpiresAt:       req.ExpiresAt,
	}
	entry.ID = uuid.New()
	entry.CreatedAt = s.now()
	entry.UpdatedAt = entry.CreatedAt

	if err := s.repo.Create(ctx, entry); err != nil {
		// The store's partial unique index is the authoritative guard for
		// the one-active-entry invariant; a race past the read above
		// surfaces here as DuplicateActiveEntry.
		if apperrors.Is(err, apperrors.ErrDuplicateActiveEntry) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create waitlist entry: %w", err)
	}

	return entry, nil
}

// DequeueNext returns the highest-ranked waiting entry for the clinician and
// marks it notified, or nil when the queue is empty. Lazily expired entries
// never surface.
func (s *Service) DequeueNext(ctx context.Context, clinicianID uuid.UUID) (*model.WaitlistEntry, error) {
	queue, err := s.orderedWaiting(ctx, clinicianID)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return nil, nil
	}

	next := queue[0]
	next.Status = model.WaitlistStatusNotified
	next.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to mark entry notified: %w", err)
	}

	if err := s.emitter.Emit(ctx, model.EventWaitlistNotified, next.ID, next); err != nil {
		s.logger.Error(err, "failed to emit waitlist notification", "entry_id", next.ID.String())
	}

	return next, nil
}

// PositionOf returns the 1-based rank of a waiting entry in its clinician's
// queue. Position is recomputed on every call; nothing persists it.
func (s *Service) PositionOf(ctx context.Context, entryID uuid.UUID) (*model.WaitlistPosition, error) {
	entry, err := s.repo.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != model.WaitlistStatusWaiting || entry.ExpiredBy(s.now()) {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("entry %s is not waiting", entryID))
	}

	queue, err := s.orderedWaiting(ctx, entry.ClinicianID)
	if err != nil {
		return nil, err
	}

	for i, e := range queue {
		if e.ID == entryID {
			return &model.WaitlistPosition{EntryID: entryID, Position: i + 1, QueueLen: len(queue)}, nil
		}
	}
	return nil, apperrors.NotFound(fmt.Sprintf("waitlist entry %s", entryID), nil)
}

func (s *Service) Accept(ctx context.Context, entryID uuid.UUID) (*model.WaitlistEntry, error) {
	return s.transition(ctx, entryID, model.WaitlistStatusAccepted)
}

func (s *Service) Decline(ctx context.Context, entryID uuid.UUID) (*model.WaitlistEntry, error) {
	return s.transition(ctx, entryID, model.WaitlistStatusDeclined)
}

// Expire persists the expired status. Ordering already ignores the entry the
// moment its deadline passes; this call makes it durable.
func (s *Service) Expire(ctx context.Context, entryID uuid.UUID) (*model.WaitlistEntry, error) {
	return s.transition(ctx, entryID, model.WaitlistStatusExpired)
}

// MarkConverted records that the entry resulted in a booked commitment.
func (s *Service) MarkConverted(ctx context.Context, entryID uuid.UUID) (*model.WaitlistEntry, error) {
	return s.transition(ctx, entryID, model.WaitlistStatusConverted)
}

// ExpireOverdue sweeps lazily expired entries into the persisted expired
// status. Called by the background worker.
func (s *Service) ExpireOverdue(ctx context.Context, batchSize int) (int, error) {
	entries, err := s.repo.ListExpiredActive(ctx, s.now(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired entries: %w", err)
	}

	expired := 0
	for _, entry := range entries {
		entry.Status = model.WaitlistStatusExpired
		entry.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, entry); err != nil {
			s.logger.Error(err, "failed to expire waitlist entry", "entry_id", entry.ID.String())
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *Service) ListForClinician(ctx context.Context, clinicianID uuid.UUID) ([]*model.WaitlistEntry, error) {
	return s.orderedWaiting(ctx, clinicianID)
}

func (s *Service) transition(ctx context.Context, entryID uuid.UUID, status model.WaitlistStatus) (*model.WaitlistEntry, error) {
	entry, err := s.repo.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if !entry.Status.IsActive() {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("entry %s is %s, not active", entryID, entry.Status))
	}

	entry.Status = status
	entry.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to update waitlist entry: %w", err)
	}
	return entry, nil
}

// orderedWaiting loads the clinician's waiting entries, drops lazily expired
// ones, and sorts by (priority rank desc, created_at asc).
func (s *Service) orderedWaiting(ctx context.Context, clinicianID uuid.UUID) ([]*model.WaitlistEntry, error) {
	entries, err := s.repo.ListActiveForClinician(ctx, clinicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}

	now := s.now()
	queue := make([]*model.WaitlistEntry, 0, len(entries))
	for _, e := range entries {
		if e.Status != model.WaitlistStatusWaiting || e.ExpiredBy(now) {
			continue
		}
		queue = append(queue, e)
	}

	sort.SliceStable(queue, func(i, j int) bool {
		ri, rj := queue[i].Priority.Rank(), queue[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return queue[i].CreatedAt.Before(queue[j].CreatedAt)
	})

	return queue, nil
}
