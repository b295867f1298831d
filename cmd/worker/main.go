package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	appconfig "github.com/jwalitptl/scheduler-api/internal/config"
	"github.com/jwalitptl/scheduler-api/internal/notifier"
	"github.com/jwalitptl/scheduler-api/internal/repository/postgres"
	eventService "github.com/jwalitptl/scheduler-api/internal/service/event"
	waitlistService "github.com/jwalitptl/scheduler-api/internal/service/waitlist"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
	"github.com/jwalitptl/scheduler-api/pkg/messaging"
	"github.com/jwalitptl/scheduler-api/pkg/messaging/redis"
	"github.com/jwalitptl/scheduler-api/pkg/metrics"
	"github.com/jwalitptl/scheduler-api/pkg/worker"
)

// Config is read from the environment, prefixed with SCHEDULER_.
type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisURL    string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	OutboxBatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	OutboxPollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	OutboxRetryDelay   time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"5s"`
	OutboxMaxRetries   int           `envconfig:"OUTBOX_MAX_RETRIES" default:"5"`

	WaitlistSweepInterval  time.Duration `envconfig:"WAITLIST_SWEEP_INTERVAL" default:"1m"`
	WaitlistSweepBatchSize int           `envconfig:"WAITLIST_SWEEP_BATCH_SIZE" default:"100"`

	OutboxRetention       time.Duration `envconfig:"OUTBOX_RETENTION" default:"168h"`
	OutboxCleanupInterval time.Duration `envconfig:"OUTBOX_CLEANUP_INTERVAL" default:"1h"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"scheduler@clinic.local"`
	NotifyTo     string `envconfig:"NOTIFY_TO"`

	HealthAddr string `envconfig:"HEALTH_ADDR" default:":8081"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("scheduler", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{URL: cfg.RedisURL}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(postgres.NewBaseRepository(db))
	waitlistRepo := postgres.NewWaitlistRepository(db)

	eventSvc := eventService.NewService(outboxRepo, broker, appLogger)
	waitlistSvc := waitlistService.NewService(waitlistRepo, eventSvc, appLogger)

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.OutboxBatchSize,
		PollInterval:  cfg.OutboxPollInterval,
		RetryAttempts: 3,
		RetryDelay:    cfg.OutboxRetryDelay,
		MaxRetries:    cfg.OutboxMaxRetries,
	}, appLogger, metrics.NewMetrics("scheduler_worker", "outbox"))

	expiry := worker.NewWaitlistExpiryWorker(waitlistSvc, cfg.WaitlistSweepBatchSize, cfg.WaitlistSweepInterval, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanup := worker.NewOutboxCleanupWorker(outboxRepo, cfg.OutboxRetention, cfg.OutboxCleanupInterval, appLogger)

	go processor.Start(ctx)
	go expiry.Start(ctx)
	go cleanup.Start(ctx)

	if cfg.SMTPHost != "" && cfg.NotifyTo != "" {
		mailer := notifier.NewSMTPMailer(appconfig.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		n := notifier.New(messaging.NewBrokerAdapter(broker), mailer, cfg.NotifyTo, appLogger)
		go func() {
			if err := n.Start(ctx); err != nil && err != context.Canceled {
				appLogger.Error(err, "notifier stopped")
			}
		}()
	}

	startHealthServer(cfg.HealthAddr, db, appLogger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	appLogger.Info("Shutting down workers")
	cancel()
}

func startHealthServer(addr string, db *sqlx.DB, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			appLogger.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
}
