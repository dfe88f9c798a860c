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

	"github.com/angelmondragon/profilemedia-backend/internal/relay"
	"github.com/angelmondragon/profilemedia-backend/pkg/config"
	"github.com/angelmondragon/profilemedia-backend/pkg/db"
	"github.com/angelmondragon/profilemedia-backend/pkg/logger"
	"github.com/angelmondragon/profilemedia-backend/pkg/metrics"
	"github.com/angelmondragon/profilemedia-backend/pkg/migrate"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox/registry"
	"github.com/angelmondragon/profilemedia-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

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

	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.Producer, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()
	requireResource(ctx, logg, "media topic", pubsubClient.Ping(ctx))

	routes, err := registry.MediaRoutes(cfg.PubSub)
	requireResource(ctx, logg, "event routes", err)

	publisher, err := relay.New(relay.Params{
		Config:  cfg.Outbox,
		DB:      dbClient,
		Rows:    outbox.NewRepository(dbClient.DB()),
		Routes:  routes,
		Sender:  pubsubClient,
		Metrics: metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		Logger:  logg,
	})
	requireResource(ctx, logg, "outbox relay", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"topic":       cfg.PubSub.MediaTopic,
	})
	logg.Info(runCtx, "outbox publisher started")

	if err := publisher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "outbox publisher shut down")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
