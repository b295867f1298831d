package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/scheduler-api/internal/repository"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
)

// OutboxCleanupWorker prunes processed outbox rows past the retention window.
type OutboxCleanupWorker struct {
	repo      repository.OutboxRepository
	retention time.Duration
	interval  time.Duration
	logger    *logger.Logger
}

func NewOutboxCleanupWorker(repo repository.OutboxRepository, retention, interval time.Duration, logger *logger.Logger) *OutboxCleanupWorker {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &OutboxCleanupWorker{
		repo:      repo,
		retention: retention,
		interval:  interval,
		logger:    logger,
	}
}

func (w *OutboxCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Starting outbox cleanup worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down outbox cleanup worker")
			return
		case <-ticker.C:
			deleted, err := w.repo.DeleteProcessedBefore(ctx, time.Now().Add(-w.retention))
			if err != nil {
				w.logger.Error(err, "Failed to clean up outbox events")
				continue
			}
			if deleted > 0 {
				w.logger.Info("Deleted processed outbox events", "count", deleted)
			}
		}
	}
}
