package worker

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
	"github.com/jwalitptl/scheduler-api/pkg/metrics"
)

// Collectors register against the default registry, so they are created once
// for the whole package.
var testMetrics = metrics.NewMetrics("scheduler_worker_test", "outbox")

type fakeOutboxRepo struct {
	mu          sync.Mutex
	rows        map[uuid.UUID]*model.OutboxEvent
	deadLetters []uuid.UUID
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{rows: make(map[uuid.UUID]*model.OutboxEvent)}
}

func (r *fakeOutboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *event
	r.rows[event.ID] = &cp
	return nil
}

func (r *fakeOutboxRepo) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return r.GetPendingEventsWithLock(ctx, limit)
}

func (r *fakeOutboxRepo) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []*model.OutboxEvent
	for _, row := range r.rows {
		if len(out) >= limit {
			break
		}
		if row.Status != string(model.OutboxStatusPending) && row.Status != string(model.OutboxStatusFailed) {
			continue
		}
		if row.RetryAt != nil && row.RetryAt.After(now) {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeOutboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	return r.UpdateStatusTx(ctx, nil, id, string(status), errMsg, nil)
}

func (r *fakeOutboxRepo) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, status string, errorMessage *string, retryAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return errors.New("row not found")
	}
	row.Status = status
	row.ErrorMessage = errorMessage
	row.RetryAt = retryAt
	if status == string(model.OutboxStatusFailed) {
		row.RetryCount++
	}
	if status == string(model.OutboxStatusProcessed) {
		now := time.Now()
		row.ProcessedAt = &now
	}
	return nil
}

func (r *fakeOutboxRepo) MoveToDeadLetter(ctx context.Context, tx *sql.Tx, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deadLetters = append(r.deadLetters, event.ID)
	if row, ok := r.rows[event.ID]; ok {
		row.Status = string(model.OutboxStatusDeadLettered)
		row.RetryAt = nil
	}
	return nil
}

func (r *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, row := range r.rows {
		if row.Status == string(model.OutboxStatusProcessed) && row.ProcessedAt != nil && row.ProcessedAt.Before(before) {
			delete(r.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

type failingBroker struct {
	mu       sync.Mutex
	attempts int
}

func (b *failingBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts++
	return errors.New("broker unavailable")
}

func (b *failingBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, nil
}

func (b *failingBroker) Close() error { return nil }

func (b *failingBroker) publishAttempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

func newTestProcessor(repo *fakeOutboxRepo, broker *failingBroker) *OutboxProcessor {
	return NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		// A single publish attempt per poll; the delay only feeds the
		// retry_at backoff, never an in-test sleep.
		RetryAttempts: 1,
		RetryDelay:    time.Minute,
		MaxRetries:    3,
	}, logger.NewLogger(nil), testMetrics)
}

func seedEvent(repo *fakeOutboxRepo, retryCount int) *model.OutboxEvent {
	evt := &model.OutboxEvent{
		ID:          uuid.New(),
		EventType:   model.EventCommitmentCreated,
		AggregateID: uuid.New(),
		Payload:     []byte(`{}`),
		Status:      string(model.OutboxStatusPending),
		RetryCount:  retryCount,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	repo.rows[evt.ID] = evt
	return evt
}

func TestExhaustedRetriesDeadLetterExactlyOnce(t *testing.T) {
	repo := newFakeOutboxRepo()
	broker := &failingBroker{}
	processor := newTestProcessor(repo, broker)

	evt := seedEvent(repo, 2) // next failure exhausts MaxRetries=3

	for i := 0; i < 3; i++ {
		require.NoError(t, processor.processEvents(context.Background()))
	}

	assert.Len(t, repo.deadLetters, 1)
	assert.Equal(t, string(model.OutboxStatusDeadLettered), repo.rows[evt.ID].Status)
	// Only the first poll should have reached the broker.
	assert.Equal(t, 1, broker.publishAttempts())
}

func TestFailureBacksOffBeforeRedelivery(t *testing.T) {
	repo := newFakeOutboxRepo()
	broker := &failingBroker{}
	processor := newTestProcessor(repo, broker)

	evt := seedEvent(repo, 0)

	require.NoError(t, processor.processEvents(context.Background()))

	row := repo.rows[evt.ID]
	assert.Equal(t, string(model.OutboxStatusFailed), row.Status)
	assert.Equal(t, 1, row.RetryCount)
	require.NotNil(t, row.RetryAt)
	assert.True(t, row.RetryAt.After(time.Now()))

	// A poll before retry_at elapses must not re-select the event.
	attempts := broker.publishAttempts()
	require.NoError(t, processor.processEvents(context.Background()))
	assert.Equal(t, attempts, broker.publishAttempts())
}
