package scheduling

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
	"github.com/jwalitptl/scheduler-api/pkg/locker"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

type fakeCommitmentRepo struct {
	mu          sync.Mutex
	commitments map[uuid.UUID]*model.Commitment
}

func newFakeCommitmentRepo() *fakeCommitmentRepo {
	return &fakeCommitmentRepo{commitments: make(map[uuid.UUID]*model.Commitment)}
}

func (r *fakeCommitmentRepo) Create(_ context.Context, c *model.Commitment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.commitments[c.ID] = &cp
	return nil
}

func (r *fakeCommitmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Commitment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.commitments[id]
	if !ok {
		return nil, apperrors.NotFound("commitment", nil)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCommitmentRepo) Update(_ context.Context, c *model.Commitment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commitments[c.ID]; !ok {
		return apperrors.NotFound("commitment", nil)
	}
	cp := *c
	r.commitments[c.ID] = &cp
	return nil
}

func (r *fakeCommitmentRepo) List(_ context.Context, _ *model.CommitmentFilters) ([]*model.Commitment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Commitment
	for _, c := range r.commitments {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeCommitmentRepo) GetLiveCommitments(_ context.Context, clinicianID uuid.UUID, from, to time.Time) ([]*model.Commitment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	window := model.TimeInterval{Start: from, End: to}
	var out []*model.Commitment
	for _, c := range r.commitments {
		if c.ClinicianID == clinicianID && c.Status.IsLive() && window.Overlaps(c.Interval()) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type captureEmitter struct {
	mu     sync.Mutex
	events []string
}

func (e *captureEmitter) Emit(_ context.Context, eventType string, _ uuid.UUID, _ interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, eventType)
	return nil
}

func (e *captureEmitter) count(eventType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, evt := range e.events {
		if evt == eventType {
			n++
		}
	}
	return n
}

func newTestService() (*Service, *fakeCommitmentRepo, *captureEmitter) {
	repo := newFakeCommitmentRepo()
	emitter := &captureEmitter{}
	svc := NewService(repo, locker.NewKeyedMutex(), emitter, logger.NewLogger(nil))
	return svc, repo, emitter
}

func createReq(clinicianID uuid.UUID, startHour, startMin, minutes int) *model.CreateCommitmentRequest {
	start := day.Add(time.Duration(startHour)*time.Hour + time.Duration(startMin)*time.Minute)
	return &model.CreateCommitmentRequest{
		ClinicianID: clinicianID,
		SubjectID:   uuid.New(),
		StartTime:   start,
		EndTime:     start.Add(time.Duration(minutes) * time.Minute),
	}
}

func TestCreateEmitsEvent(t *testing.T) {
	svc, _, emitter := newTestService()
	clinicianID := uuid.New()

	c, err := svc.Create(context.Background(), createReq(clinicianID, 9, 0, 30))
	require.NoError(t, err)
	assert.Equal(t, model.CommitmentStatusScheduled, c.Status)
	assert.Equal(t, 1, emitter.count(model.EventCommitmentCreated))
}

func TestCreateConflictCarriesCollidingInterval(t *testing.T) {
	svc, _, _ := newTestService()
	clinicianID := uuid.New()

	first, err := svc.Create(context.Background(), createReq(clinicianID, 9, 0, 60))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), createReq(clinicianID, 9, 30, 30))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrSchedulingConflict))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Len(t, appErr.Conflicts, 1)
	assert.Equal(t, first.ID, appErr.Conflicts[0].CommitmentID)
}

func TestCreateTouchingEndpointsDoNotConflict(t *testing.T) {
	svc, _, _ := newTestService()
	clinicianID := uuid.New()

	_, err := svc.Create(context.Background(), createReq(clinicianID, 9, 0, 60))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), createReq(clinicianID, 10, 0, 30))
	assert.NoError(t, err)
}

func TestCreateDifferentCliniciansNeverConflict(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), createReq(uuid.New(), 9, 0, 60))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), createReq(uuid.New(), 9, 0, 60))
	assert.NoError(t, err)
}

func TestCreateRejectsInvertedInterval(t *testing.T) {
	svc, _, _ := newTestService()
	req := createReq(uuid.New(), 9, 0, 30)
	req.StartTime, req.EndTime = req.EndTime, req.StartTime

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidArgument))
}

func TestConcurrentCreatesSameSlotOneWins(t *testing.T) {
	svc, repo, _ := newTestService()
	clinicianID := uuid.New()

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, conflicts := 0, 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), createReq(clinicianID, 9, 0, 30))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if apperrors.Is(err, apperrors.ErrSchedulingConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)

	// No two live commitments for the clinician may overlap.
	all, err := repo.List(context.Background(), nil)
	require.NoError(t, err)
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i].Status.IsLive() && all[j].Status.IsLive() {
				assert.False(t, all[i].Interval().Overlaps(all[j].Interval()))
			}
		}
	}
}

func TestRescheduleExcludesSelfAndResetsStatus(t *testing.T) {
	svc, _, emitter := newTestService()
	clinicianID := uuid.New()

	c, err := svc.Create(context.Background(), createReq(clinicianID, 9, 0, 30))
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), c.ID, model.CommitmentStatusConfirmed)
	require.NoError(t, err)

	// Move within its own original window; only the commitment itself
	// overlaps, and it is excluded from its own check.
	moved, err := svc.Reschedule(context.Background(), c.ID, &model.RescheduleCommitmentRequest{
		StartTime: c.StartTime.Add(10 * time.Minute),
		EndTime:   c.EndTime.Add(10 * time.Minute),
		Reason:    "patient request",
	})
	require.NoError(t, err)

	assert.Equal(t, model.CommitmentStatusScheduled, moved.Status, "confirmation resets on reschedule")
	assert.Contains(t, moved.Notes, "rescheduled from")
	assert.Contains(t, moved.Notes, "patient request")
	assert.Equal(t, 1, emitter.count(model.EventCommitmentRescheduled))
}

func TestRescheduleIntoOccupiedSlotFails(t *testing.T) {
	svc, _, _ := newTestService()
	clinicianID := uuid.New()

	_, err := svc.Create(context.Background(), createReq(clinicianID, 9, 0, 30))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), createReq(clinicianID, 11, 0, 30))
	require.NoError(t, err)

	_, err = svc.Reschedule(context.Background(), second.ID, &model.RescheduleCommitmentRequest{
		StartTime: day.Add(9 * time.Hour),
		EndTime:   day.Add(9*time.Hour + 30*time.Minute),
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrSchedulingConflict))
}

func TestCancelIdempotencyGuard(t *testing.T) {
	svc, _, emitter := newTestService()
	clinicianID := uuid.New()

	c, err := svc.Create(context.Background(), createReq(clinicianID, 9, 0, 30))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), c.ID, &model.CancelCommitmentRequest{Reason: "sick"})
	require.NoError(t, err)
	assert.Equal(t, model.CommitmentStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "sick", *cancelled.CancelReason)

	_, err = svc.Cancel(context.Background(), c.ID, &model.CancelCommitmentRequest{Reason: "again"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAlreadyCancelled))
	assert.Equal(t, 1, emitter.count(model.EventCommitmentCancelled), "cancellation event must not double-fire")
}

func TestCancelRequiresReason(t *testing.T) {
	svc, _, _ := newTestService()
	c, err := svc.Create(context.Background(), createReq(uuid.New(), 9, 0, 30))
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), c.ID, &model.CancelCommitmentRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidArgument))
}

func TestCancelledSlotIsBookableAgain(t *testing.T) {
	svc, _, _ := newTestService()
	clinicianID := uuid.New()

	c, err := svc.Create(context.Background(), createReq(clinicianID, 9, 0, 30))
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), c.ID, &model.CancelCommitmentRequest{Reason: "freed up"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), createReq(clinicianID, 9, 0, 30))
	assert.NoError(t, err)
}

func TestTransitionHappyPath(t *testing.T) {
	svc, _, _ := newTestService()
	svc.now = func() time.Time { return day.Add(12 * time.Hour) }

	c, err := svc.Create(context.Background(), createReq(uuid.New(), 9, 0, 30))
	require.NoError(t, err)

	for _, status := range []model.CommitmentStatus{
		model.CommitmentStatusConfirmed,
		model.CommitmentStatusCheckedIn,
		model.CommitmentStatusInProgress,
		model.CommitmentStatusCompleted,
	} {
		c, err = svc.Transition(context.Background(), c.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, c.Status)
	}

	_, err = svc.Transition(context.Background(), c.ID, model.CommitmentStatusConfirmed)
	assert.Error(t, err, "completed is terminal")
}

func TestTransitionSkippingStatesRejected(t *testing.T) {
	svc, _, _ := newTestService()
	c, err := svc.Create(context.Background(), createReq(uuid.New(), 9, 0, 30))
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), c.ID, model.CommitmentStatusInProgress)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidArgument))
}

func TestNoShowOnlyAtOrAfterStartTime(t *testing.T) {
	svc, _, _ := newTestService()
	c, err := svc.Create(context.Background(), createReq(uuid.New(), 9, 0, 30))
	require.NoError(t, err)

	svc.now = func() time.Time { return c.StartTime.Add(-time.Minute) }
	_, err = svc.Transition(context.Background(), c.ID, model.CommitmentStatusNoShow)
	require.Error(t, err)

	svc.now = func() time.Time { return c.StartTime }
	marked, err := svc.Transition(context.Background(), c.ID, model.CommitmentStatusNoShow)
	require.NoError(t, err)
	assert.Equal(t, model.CommitmentStatusNoShow, marked.Status)
}

func TestNoShowOnlyFromScheduledOrConfirmed(t *testing.T) {
	svc, _, _ := newTestService()
	svc.now = func() time.Time { return day.Add(12 * time.Hour) }

	c, err := svc.Create(context.Background(), createReq(uuid.New(), 9, 0, 30))
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), c.ID, model.CommitmentStatusConfirmed)
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), c.ID, model.CommitmentStatusCheckedIn)
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), c.ID, model.CommitmentStatusNoShow)
	require.Error(t, err, "checked_in patients are not no-shows")
}

func TestSwapTimesExchangesIntervals(t *testing.T) {
	svc, _, _ := newTestService()
	clinicianID := uuid.New()

	first, err := svc.Create(context.Background(), createReq(clinicianID, 9, 0, 30))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), createReq(clinicianID, 14, 0, 30))
	require.NoError(t, err)
	// A third live commitment neither swapped interval may touch.
	_, err = svc.Create(context.Background(), createReq(clinicianID, 11, 0, 30))
	require.NoError(t, err)

	a, b, err := svc.SwapTimes(context.Background(), &model.SwapCommitmentsRequest{
		CommitmentA: first.ID,
		CommitmentB: second.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, day.Add(14*time.Hour), a.StartTime)
	assert.Equal(t, day.Add(14*time.Hour+30*time.Minute), a.EndTime)
	assert.Equal(t, day.Add(9*time.Hour), b.StartTime)
	assert.Equal(t, day.Add(9*time.Hour+30*time.Minute), b.EndTime)
}

func TestSwapTimesCrossClinicianRejected(t *testing.T) {
	svc, _, _ := newTestService()

	a, err := svc.Create(context.Background(), createReq(uuid.New(), 9, 0, 30))
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), createReq(uuid.New(), 14, 0, 30))
	require.NoError(t, err)

	_, _, err = svc.SwapTimes(context.Background(), &model.SwapCommitmentsRequest{
		CommitmentA: a.ID,
		CommitmentB: b.ID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCrossClinicianSwap))
}

func TestSwapTimesRevalidatesAgainstThirdCommitments(t *testing.T) {
	svc, repo, _ := newTestService()
	clinicianID := uuid.New()

	a, err := svc.Create(context.Background(), createReq(clinicianID, 9, 0, 30))
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), createReq(clinicianID, 14, 0, 60))
	require.NoError(t, err)

	// Seed a row that overlaps b directly in the store, simulating a write
	// that slipped past the no-overlap guard. The swap must refuse to move
	// a into the contested 14:00-15:00 window.
	third := &model.Commitment{
		ClinicianID: clinicianID,
		SubjectID:   uuid.New(),
		Type:        model.CommitmentTypeAppointment,
		StartTime:   day.Add(14*time.Hour + 30*time.Minute),
		EndTime:     day.Add(15*time.Hour + 30*time.Minute),
		Status:      model.CommitmentStatusScheduled,
	}
	third.ID = uuid.New()
	require.NoError(t, repo.Create(context.Background(), third))

	_, _, err = svc.SwapTimes(context.Background(), &model.SwapCommitmentsRequest{
		CommitmentA: a.ID,
		CommitmentB: b.ID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrSchedulingConflict))
}

func TestBlockSlotSingle(t *testing.T) {
	svc, _, emitter := newTestService()
	clinicianID := uuid.New()

	result, err := svc.BlockSlot(context.Background(), &model.BlockSlotRequest{
		ClinicianID: clinicianID,
		StartTime:   day.Add(12 * time.Hour),
		EndTime:     day.Add(13 * time.Hour),
		Reason:      "admin time",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.CreatedCount)
	assert.Nil(t, result.FailedAt)
	assert.Equal(t, model.CommitmentTypeBlock, result.Created[0].Type)
	assert.Equal(t, 1, emitter.count(model.EventCommitmentBlocked))
}

func TestBlockSlotRecurringPartialFailureKeepsPriorOccurrences(t *testing.T) {
	svc, _, _ := newTestService()
	clinicianID := uuid.New()

	// An appointment two days out collides with the third daily occurrence.
	blocker := createReq(clinicianID, 12, 0, 60)
	blocker.StartTime = blocker.StartTime.Add(48 * time.Hour)
	blocker.EndTime = blocker.EndTime.Add(48 * time.Hour)
	_, err := svc.Create(context.Background(), blocker)
	require.NoError(t, err)

	result, err := svc.BlockSlot(context.Background(), &model.BlockSlotRequest{
		ClinicianID: clinicianID,
		StartTime:   day.Add(12 * time.Hour),
		EndTime:     day.Add(13 * time.Hour),
		Reason:      "lunch hold",
		Recurrence:  model.BlockRecurrenceDaily,
		Occurrences: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.CreatedCount, "first two days created, no rollback")
	require.NotNil(t, result.FailedAt)
	assert.Equal(t, day.Add(48*time.Hour+12*time.Hour), result.FailedAt.Start)
	assert.NotEmpty(t, result.FailureError)
}

func TestBlockedIntervalRejectsBookings(t *testing.T) {
	svc, _, _ := newTestService()
	clinicianID := uuid.New()

	_, err := svc.BlockSlot(context.Background(), &model.BlockSlotRequest{
		ClinicianID: clinicianID,
		StartTime:   day.Add(12 * time.Hour),
		EndTime:     day.Add(13 * time.Hour),
		Reason:      "admin time",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), createReq(clinicianID, 12, 30, 30))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrSchedulingConflict))
}

type contendedLocker struct{}

func (contendedLocker) WithClinicianLock(ctx context.Context, clinicianID uuid.UUID, fn func(ctx context.Context) error) error {
	return locker.ErrLockNotAcquired
}

func TestCreateLockContentionIsRetryableConflict(t *testing.T) {
	repo := newFakeCommitmentRepo()
	svc := NewService(repo, contendedLocker{}, &captureEmitter{}, logger.NewLogger(nil))

	_, err := svc.Create(context.Background(), createReq(uuid.New(), 9, 0, 30))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrLockContention))
	assert.Empty(t, repo.commitments)
}
