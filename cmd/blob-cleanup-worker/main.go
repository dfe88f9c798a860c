package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/profilemedia-backend/internal/blobcleanup"
	"github.com/angelmondragon/profilemedia-backend/internal/media"
	"github.com/angelmondragon/profilemedia-backend/pkg/config"
	"github.com/angelmondragon/profilemedia-backend/pkg/db"
	"github.com/angelmondragon/profilemedia-backend/pkg/logger"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox/dedupe"
	"github.com/angelmondragon/profilemedia-backend/pkg/pubsub"
	"github.com/angelmondragon/profilemedia-backend/pkg/redis"
	"github.com/angelmondragon/profilemedia-backend/pkg/storage"
)

const (
	serviceKind = "blob-cleanup-worker"
	claimTTL    = 7 * 24 * time.Hour
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	_ = godotenv.Load()

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

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	blobStore, err := storage.New(ctx, cfg.Storage, cfg.S3, logg)
	requireResource(ctx, logg, "storage", err)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.Consumer, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	tracker, err := dedupe.NewTracker(redisClient, claimTTL)
	requireResource(ctx, logg, "event claim tracker", err)

	consumer, err := blobcleanup.NewConsumer(blobcleanup.Params{
		Storage:      blobStore,
		Items:        media.NewRepository(dbClient.DB()),
		Tracker:      tracker,
		Decoders:     blobcleanup.NewDecoders(),
		Subscription: pubsubClient.BlobCleanupSubscription(),
		Logger:       logg,
	})
	requireResource(ctx, logg, "blob cleanup consumer", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": serviceKind,
		"env":         cfg.App.Env,
	})
	logg.Info(runCtx, "blob cleanup worker ready")

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "blob cleanup worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
