package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
	"github.com/jwalitptl/scheduler-api/pkg/messaging"
)

const eventExpiry = 24 * time.Hour

// Emitter records domain events for delivery. The scheduling core decides
// that a notification is warranted; delivery happens elsewhere.
type Emitter interface {
	Emit(ctx context.Context, eventType string, aggregateID uuid.UUID, payload interface{}) error
}

type Service struct {
	outboxRepo repository.OutboxRepository
	broker     messaging.Broker
	logger     *logger.Logger
}

func NewService(outboxRepo repository.OutboxRepository, broker messaging.Broker, logger *logger.Logger) *Service {
	return &Service{
		outboxRepo: outboxRepo,
		broker:     broker,
		logger:     logger,
	}
}

// Emit writes the event to the outbox in the same store as the domain write,
// then attempts immediate publication. The outbox worker picks up anything
// that fails here.
func (s *Service) Emit(ctx context.Context, eventType string, aggregateID uuid.UUID, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	evt := &model.OutboxEvent{
		ID:          uuid.New(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     payloadJSON,
		Status:      string(model.OutboxStatusPending),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.outboxRepo.Create(ctx, evt); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	go s.tryPublish(evt)

	return nil
}

func (s *Service) tryPublish(evt *model.OutboxEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.broker.Publish(ctx, evt.EventType, evt.Payload); err != nil {
		s.logger.Error(err, "immediate event publish failed, leaving for outbox worker",
			"event_id", evt.ID.String(), "event_type", evt.EventType)
		return
	}

	if err := s.outboxRepo.UpdateStatusTx(ctx, nil, evt.ID, string(model.OutboxStatusProcessed), nil, nil); err != nil {
		s.logger.Error(err, "failed to mark event processed", "event_id", evt.ID.String())
	}
}

func (s *Service) CleanupProcessedEvents(ctx context.Context) error {
	cutoff := time.Now().Add(-eventExpiry)
	count, err := s.outboxRepo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup events: %w", err)
	}

	s.logger.Info("cleaned up processed outbox events", "deleted_count", count)
	return nil
}
