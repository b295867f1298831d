package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/scheduler-api/internal/service/waitlist"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
)

// WaitlistExpiryWorker periodically persists the expired status for waitlist
// entries whose deadline has passed. Queue ordering already ignores them;
// this sweep makes the transition durable.
type WaitlistExpiryWorker struct {
	svc       *waitlist.Service
	batchSize int
	interval  time.Duration
	logger    *logger.Logger
}

func NewWaitlistExpiryWorker(svc *waitlist.Service, batchSize int, interval time.Duration, logger *logger.Logger) *WaitlistExpiryWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &WaitlistExpiryWorker{
		svc:       svc,
		batchSize: batchSize,
		interval:  interval,
		logger:    logger,
	}
}

func (w *WaitlistExpiryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Starting waitlist expiry worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down waitlist expiry worker")
			return
		case <-ticker.C:
			count, err := w.svc.ExpireOverdue(ctx, w.batchSize)
			if err != nil {
				w.logger.Error(err, "Failed to expire waitlist entries")
				continue
			}
			if count > 0 {
				w.logger.Info("Expired waitlist entries", "count", count)
			}
		}
	}
}
