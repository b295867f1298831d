package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, aggregate_id, payload, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()
	event.UpdatedAt = time.Now()
	event.Status = string(model.OutboxStatusPending)

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.AggregateID,
		event.Payload,
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		SELECT id, event_type, aggregate_id, payload, status, created_at, updated_at, error_message
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	var events []*model.OutboxEvent
	err := r.db.SelectContext(ctx, &events, query, string(model.OutboxStatusPending), limit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return events, err
}

func (r *outboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	query := `
		UPDATE outbox_events
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	_, err := r.db.ExecContext(ctx, query, status, errMsg, time.Now(), id)
	return err
}

func (r *outboxRepository) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		SELECT id, event_type, aggregate_id, payload, status, error_message, created_at, processed_at, updated_at, retry_count, retry_at
		FROM outbox_events
		WHERE status IN ('PENDING', 'FAILED')
		AND (retry_at IS NULL OR retry_at <= NOW())
		ORDER BY created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`
	var events []*model.OutboxEvent
	err := r.db.SelectContext(ctx, &events, query, limit)
	return events, err
}

func (r *outboxRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

func (r *outboxRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, status string, errorMessage *string, retryAt *time.Time) error {
	query := `
		UPDATE outbox_events
		SET status = $1,
			error_message = $2,
			retry_at = $4,
			retry_count = retry_count + CASE WHEN $1 = 'FAILED' THEN 1 ELSE 0 END,
			processed_at = CASE WHEN $1 = 'PROCESSED' THEN NOW() ELSE processed_at END,
			updated_at = NOW()
		WHERE id = $3
	`
	if tx != nil {
		_, err := tx.ExecContext(ctx, query, status, errorMessage, id, retryAt)
		return err
	}
	_, err := r.db.ExecContext(ctx, query, status, errorMessage, id, retryAt)
	return err
}

// MoveToDeadLetter copies the event to the dead-letter table and marks the
// source row DEAD_LETTERED in the same transaction, so the poller can never
// re-select and re-dead-letter it. When tx is nil the repository opens its
// own transaction.
func (r *outboxRepository) MoveToDeadLetter(ctx context.Context, tx *sql.Tx, evt *model.OutboxEvent) error {
	insertQuery := `
		INSERT INTO outbox_events_deadletter (
			event_id, event_type, aggregate_id, payload, error_message,
			retry_count, last_retry_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	terminalizeQuery := `
		UPDATE outbox_events
		SET status = 'DEAD_LETTERED', retry_at = NULL, updated_at = NOW()
		WHERE id = $1
	`

	ownTx := tx == nil
	if ownTx {
		var err error
		tx, err = r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin dead-letter transaction: %w", err)
		}
		defer tx.Rollback()
	}

	if _, err := tx.ExecContext(ctx, insertQuery, evt.ID, evt.EventType, evt.AggregateID, evt.Payload,
		evt.ErrorMessage, evt.RetryCount, evt.RetryAt); err != nil {
		return fmt.Errorf("failed to insert dead-letter event: %w", err)
	}
	if _, err := tx.ExecContext(ctx, terminalizeQuery, evt.ID); err != nil {
		return fmt.Errorf("failed to terminalize outbox event: %w", err)
	}

	if ownTx {
		return tx.Commit()
	}
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = 'PROCESSED'
		AND processed_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}

	return result.RowsAffected()
}
