package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/profilemedia-backend/internal/categories"
	"github.com/angelmondragon/profilemedia-backend/internal/cron"
	"github.com/angelmondragon/profilemedia-backend/internal/media"
	"github.com/angelmondragon/profilemedia-backend/pkg/config"
	"github.com/angelmondragon/profilemedia-backend/pkg/db"
	"github.com/angelmondragon/profilemedia-backend/pkg/logger"
	"github.com/angelmondragon/profilemedia-backend/pkg/metrics"
	"github.com/angelmondragon/profilemedia-backend/pkg/migrate"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox"
	"github.com/angelmondragon/profilemedia-backend/pkg/redis"
)

const (
	serviceKind   = "maintenance-worker"
	lockKeyFormat = "profilemedia:maintenance:lock:%s"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	conn := dbClient.DB()
	index := media.NewIndexRepository(conn)
	store, err := media.NewStore(media.NewRepository(conn), index, categories.NewLedger(nil))
	requireResource(ctx, logg, "media store", err)

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:           logg,
		DB:               dbClient,
		Repository:       outbox.NewRepository(conn),
		RetentionDays:    cfg.Maintenance.OutboxRetentionDays,
		TerminalAttempts: cfg.Outbox.MaxAttempts,
	})
	requireResource(ctx, logg, "outbox retention job", err)

	reconcile, err := cron.NewIndexReconcileJob(cron.IndexReconcileJobParams{
		Logger: logg,
		DB:     dbClient,
		Owners: index,
		Index:  store,
	})
	requireResource(ctx, logg, "index reconcile job", err)

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	requireResource(ctx, logg, "maintenance lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   cron.NewRegistry(retention, reconcile),
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Maintenance.Interval,
		JobTimeout: cfg.Maintenance.JobTimeout,
	})
	requireResource(ctx, logg, "maintenance service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
	})
	logg.Info(runCtx, "starting maintenance worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "maintenance worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "maintenance worker shutting down")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
