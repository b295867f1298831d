package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/scheduler-api/internal/config"
	availabilityHandler "github.com/jwalitptl/scheduler-api/internal/handler/availability"
	commitmentHandler "github.com/jwalitptl/scheduler-api/internal/handler/commitment"
	"github.com/jwalitptl/scheduler-api/internal/handler/health"
	templateHandler "github.com/jwalitptl/scheduler-api/internal/handler/template"
	timeoffHandler "github.com/jwalitptl/scheduler-api/internal/handler/timeoff"
	waitlistHandler "github.com/jwalitptl/scheduler-api/internal/handler/waitlist"
	"github.com/jwalitptl/scheduler-api/internal/middleware"
	"github.com/jwalitptl/scheduler-api/internal/repository/postgres"
	"github.com/jwalitptl/scheduler-api/internal/router"
	availabilityService "github.com/jwalitptl/scheduler-api/internal/service/availability"
	eventService "github.com/jwalitptl/scheduler-api/internal/service/event"
	scheduleService "github.com/jwalitptl/scheduler-api/internal/service/schedule"
	schedulingService "github.com/jwalitptl/scheduler-api/internal/service/scheduling"
	suggestionService "github.com/jwalitptl/scheduler-api/internal/service/suggestion"
	timeoffService "github.com/jwalitptl/scheduler-api/internal/service/timeoff"
	waitlistService "github.com/jwalitptl/scheduler-api/internal/service/waitlist"
	"github.com/jwalitptl/scheduler-api/pkg/auth"
	"github.com/jwalitptl/scheduler-api/pkg/locker"
	"github.com/jwalitptl/scheduler-api/pkg/logger"
	"github.com/jwalitptl/scheduler-api/pkg/messaging/redis"
	"github.com/jwalitptl/scheduler-api/pkg/metrics"
	"github.com/jwalitptl/scheduler-api/pkg/validator"
	"github.com/jwalitptl/scheduler-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	commitmentRepo := postgres.NewCommitmentRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)
	timeOffRepo := postgres.NewTimeOffRepository(db)
	waitlistRepo := postgres.NewWaitlistRepository(db)
	outboxRepo := postgres.NewOutboxRepository(postgres.NewBaseRepository(db))

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}

	redisOpts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse Redis URL")
	}
	clinicianLocker := locker.NewRedisLocker(goredis.NewClient(redisOpts), cfg.Redis.LockTTL)

	eventSvc := eventService.NewService(outboxRepo, broker, appLogger)

	schedulingSvc := schedulingService.NewService(commitmentRepo, clinicianLocker, eventSvc, appLogger)
	availabilitySvc := availabilityService.NewService(templateRepo, timeOffRepo, commitmentRepo)
	suggestionSvc := suggestionService.NewService(availabilitySvc)
	scheduleSvc := scheduleService.NewService(templateRepo)
	timeOffSvc := timeoffService.NewService(timeOffRepo, commitmentRepo, eventSvc, appLogger)
	waitlistSvc := waitlistService.NewService(waitlistRepo, eventSvc, appLogger)

	v := validator.New()
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	r := router.NewRouter(authMiddleware, health.NewHandler(db), router.RouterConfig{
		RateLimit:     rate.Limit(100),
		RateBurst:     200,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "scheduler_api",
	})
	r.Setup(
		commitmentHandler.NewHandler(schedulingSvc, v),
		availabilityHandler.NewHandler(availabilitySvc, suggestionSvc),
		templateHandler.NewHandler(scheduleSvc, v),
		timeoffHandler.NewHandler(timeOffSvc, v),
		waitlistHandler.NewHandler(waitlistSvc, v),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Worker.OutboxBatchSize,
		PollInterval:  cfg.Worker.OutboxPollInterval,
		RetryAttempts: 3,
		RetryDelay:    5 * time.Second,
	}, appLogger, metrics.NewMetrics("scheduler_api", "outbox"))
	go outboxProcessor.Start(workerCtx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
