package waitlist

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduler-api/internal/model"
	apperrors "github.com/jwalitptl/scheduler-api/pkg/errors"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
)

type fakeWaitlistRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*model.WaitlistEntry
}

func newFakeWaitlistRepo() *fakeWaitlistRepo {
	return &fakeWaitlistRepo{entries: make(map[uuid.UUID]*model.WaitlistEntry)}
}

func (r *fakeWaitlistRepo) Create(_ context.Context, entry *model.WaitlistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries[entry.ID] = &cp
	return nil
}

func (r *fakeWaitlistRepo) Get(_ context.Context, id uuid.UUID) (*model.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, apperrors.NotFound("waitlist entry", nil)
	}
	cp := *entry
	return &cp, nil
}

func (r *fakeWaitlistRepo) Update(_ context.Context, entry *model.WaitlistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries[entry.ID] = &cp
	return nil
}

func (r *fakeWaitlistRepo) GetActiveEntry(_ context.Context, patientID, clinicianID uuid.UUID) (*model.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.PatientID == patientID && e.ClinicianID == clinicianID && e.Status.IsActive() {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeWaitlistRepo) ListActiveForClinician(_ context.Context, clinicianID uuid.UUID) ([]*model.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.WaitlistEntry
	for _, e := range r.entries {
		if e.ClinicianID == clinicianID && e.Status.IsActive() {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeWaitlistRepo) ListExpiredActive(_ context.Context, cutoff time.Time, limit int) ([]*model.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.WaitlistEntry
	for _, e := range r.entries {
		if e.Status.IsActive() && !e.ExpiresAt.After(cutoff) {
			cp := *e
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeEmitter) Emit(_ context.Context, eventType string, _ uuid.UUID, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	return nil
}

func newTestService(repo *fakeWaitlistRepo, now time.Time) (*Service, *fakeEmitter) {
	emitter := &fakeEmitter{}
	svc := NewService(repo, emitter, logger.NewLogger(nil))
	svc.now = func() time.Time { return now }
	return svc, emitter
}

func enqueue(t *testing.T, svc *Service, clinicianID uuid.UUID, priority model.WaitlistPriority, createdAt time.Time) *model.WaitlistEntry {
	t.Helper()
	entry, err := svc.Enqueue(context.Background(), &model.EnqueueWaitlistRequest{
		PatientID:       uuid.New(),
		ClinicianID:     clinicianID,
		AppointmentType: "consultation",
		Priority:        priority,
		ExpiresAt:       createdAt.Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)

	// Backdate for deterministic FIFO ordering within a tier.
	entry.CreatedAt = createdAt
	require.NoError(t, svc.repo.Update(context.Background(), entry))
	return entry
}

func TestDequeueOrderPriorityThenArrival(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	repo := newFakeWaitlistRepo()
	svc, _ := newTestService(repo, base)
	clinicianID := uuid.New()

	urgent2 := enqueue(t, svc, clinicianID, model.WaitlistPriorityUrgent, base.Add(2*time.Minute))
	normal1 := enqueue(t, svc, clinicianID, model.WaitlistPriorityNormal, base.Add(1*time.Minute))
	urgent1 := enqueue(t, svc, clinicianID, model.WaitlistPriorityUrgent, base.Add(1*time.Minute))
	low0 := enqueue(t, svc, clinicianID, model.WaitlistPriorityLow, base)

	wantOrder := []uuid.UUID{urgent1.ID, urgent2.ID, normal1.ID, low0.ID}
	for i, want := range wantOrder {
		got, err := svc.DequeueNext(context.Background(), clinicianID)
		require.NoError(t, err)
		require.NotNil(t, got, "dequeue %d", i)
		assert.Equal(t, want, got.ID, "dequeue %d", i)
		assert.Equal(t, model.WaitlistStatusNotified, got.Status)
	}

	empty, err := svc.DequeueNext(context.Background(), clinicianID)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestDequeueEmitsNotification(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	repo := newFakeWaitlistRepo()
	svc, emitter := newTestService(repo, base)
	clinicianID := uuid.New()

	enqueue(t, svc, clinicianID, model.WaitlistPriorityNormal, base)

	_, err := svc.DequeueNext(context.Background(), clinicianID)
	require.NoError(t, err)
	assert.Equal(t, []string{model.EventWaitlistNotified}, emitter.events)
}

func TestEnqueueDuplicateActiveEntry(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	repo := newFakeWaitlistRepo()
	svc, _ := newTestService(repo, base)

	req := &model.EnqueueWaitlistRequest{
		PatientID:       uuid.New(),
		ClinicianID:     uuid.New(),
		AppointmentType: "followup",
		Priority:        model.WaitlistPriorityHigh,
		ExpiresAt:       base.Add(24 * time.Hour),
	}

	_, err := svc.Enqueue(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Enqueue(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrDuplicateActiveEntry))
}

// racingWaitlistRepo simulates a concurrent enqueue landing between the
// service's active-entry read and its insert: the read sees nothing, but the
// store's unique index rejects the second row.
type racingWaitlistRepo struct {
	*fakeWaitlistRepo
}

func (r *racingWaitlistRepo) GetActiveEntry(context.Context, uuid.UUID, uuid.UUID) (*model.WaitlistEntry, error) {
	return nil, nil
}

func (r *racingWaitlistRepo) Create(_ context.Context, entry *model.WaitlistEntry) error {
	return apperrors.DuplicateActiveEntry(entry.PatientID, entry.ClinicianID)
}

func TestEnqueueRaceSurfacesDuplicateActiveEntry(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	emitter := &fakeEmitter{}
	svc := NewService(&racingWaitlistRepo{newFakeWaitlistRepo()}, emitter, logger.NewLogger(nil))
	svc.now = func() time.Time { return base }

	_, err := svc.Enqueue(context.Background(), &model.EnqueueWaitlistRequest{
		PatientID:       uuid.New(),
		ClinicianID:     uuid.New(),
		AppointmentType: "followup",
		Priority:        model.WaitlistPriorityHigh,
		ExpiresAt:       base.Add(24 * time.Hour),
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrDuplicateActiveEntry))
}

func TestEnqueueRejectsPastExpiry(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc, _ := newTestService(newFakeWaitlistRepo(), base)

	_, err := svc.Enqueue(context.Background(), &model.EnqueueWaitlistRequest{
		PatientID:       uuid.New(),
		ClinicianID:     uuid.New(),
		AppointmentType: "consultation",
		Priority:        model.WaitlistPriorityNormal,
		ExpiresAt:       base.Add(-time.Hour),
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidArgument))
}

func TestLazyExpiryHidesEntryBeforePersistedTransition(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	repo := newFakeWaitlistRepo()
	svc, _ := newTestService(repo, base)
	clinicianID := uuid.New()

	entry := enqueue(t, svc, clinicianID, model.WaitlistPriorityUrgent, base)

	// Move past the entry's deadline without any explicit expire call.
	svc.now = func() time.Time { return entry.ExpiresAt.Add(time.Minute) }

	got, err := svc.DequeueNext(context.Background(), clinicianID)
	require.NoError(t, err)
	assert.Nil(t, got, "expired entry must not surface")

	// Status in the store is still waiting until Expire persists it.
	stored, err := repo.Get(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WaitlistStatusWaiting, stored.Status)

	expired, err := svc.Expire(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WaitlistStatusExpired, expired.Status)
}

func TestPositionOfRecomputedPerQuery(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	repo := newFakeWaitlistRepo()
	svc, _ := newTestService(repo, base)
	clinicianID := uuid.New()

	first := enqueue(t, svc, clinicianID, model.WaitlistPriorityUrgent, base)
	second := enqueue(t, svc, clinicianID, model.WaitlistPriorityNormal, base.Add(time.Minute))

	pos, err := svc.PositionOf(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, pos.Position)
	assert.Equal(t, 2, pos.QueueLen)

	// The urgent entry leaves the queue; the position must shift on the
	// next query with no write to the second entry.
	_, err = svc.Decline(context.Background(), first.ID)
	require.NoError(t, err)

	pos, err = svc.PositionOf(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pos.Position)
	assert.Equal(t, 1, pos.QueueLen)
}

func TestAcceptDeclineRequireActiveEntry(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	repo := newFakeWaitlistRepo()
	svc, _ := newTestService(repo, base)
	clinicianID := uuid.New()

	entry := enqueue(t, svc, clinicianID, model.WaitlistPriorityNormal, base)

	_, err := svc.Accept(context.Background(), entry.ID)
	require.NoError(t, err)

	_, err = svc.Decline(context.Background(), entry.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidArgument))
}

func TestExpireOverdueSweep(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	repo := newFakeWaitlistRepo()
	svc, _ := newTestService(repo, base)
	clinicianID := uuid.New()

	stale := enqueue(t, svc, clinicianID, model.WaitlistPriorityNormal, base)
	fresh := enqueue(t, svc, clinicianID, model.WaitlistPriorityNormal, base.Add(time.Minute))

	svc.now = func() time.Time { return stale.ExpiresAt.Add(time.Minute) }
	// Keep the fresh entry alive past the sweep time.
	freshStored, err := repo.Get(context.Background(), fresh.ID)
	require.NoError(t, err)
	freshStored.ExpiresAt = stale.ExpiresAt.Add(time.Hour)
	require.NoError(t, repo.Update(context.Background(), freshStored))

	count, err := svc.ExpireOverdue(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	staleStored, err := repo.Get(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WaitlistStatusExpired, staleStored.Status)
}
