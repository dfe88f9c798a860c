package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/profilemedia-backend/api/routes"
	"github.com/angelmondragon/profilemedia-backend/internal/categories"
	"github.com/angelmondragon/profilemedia-backend/internal/media"
	"github.com/angelmondragon/profilemedia-backend/internal/ordering"
	"github.com/angelmondragon/profilemedia-backend/internal/profile"
	"github.com/angelmondragon/profilemedia-backend/internal/uploads"
	"github.com/angelmondragon/profilemedia-backend/pkg/config"
	"github.com/angelmondragon/profilemedia-backend/pkg/db"
	"github.com/angelmondragon/profilemedia-backend/pkg/logger"
	"github.com/angelmondragon/profilemedia-backend/pkg/metrics"
	"github.com/angelmondragon/profilemedia-backend/pkg/migrate"
	"github.com/angelmondragon/profilemedia-backend/pkg/outbox"
	"github.com/angelmondragon/profilemedia-backend/pkg/redis"
	"github.com/angelmondragon/profilemedia-backend/pkg/storage"
)

const (
	serviceKind     = "api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	blobStore, err := storage.New(ctx, cfg.Storage, cfg.S3, logg)
	requireResource(ctx, logg, "storage", err)

	profiles, err := newProfileService(cfg, logg, dbClient, blobStore)
	requireResource(ctx, logg, "profile service", err)

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, profiles, blobStore, promhttp.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func newProfileService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, blobStore storage.Storage) (profile.Service, error) {
	conn := dbClient.DB()
	ledger := categories.NewLedger(nil)

	store, err := media.NewStore(media.NewRepository(conn), media.NewIndexRepository(conn), ledger)
	if err != nil {
		return nil, err
	}
	orderSvc, err := ordering.NewService(store)
	if err != nil {
		return nil, err
	}
	ingestor, err := uploads.NewIngestor(blobStore, cfg.Media, logg)
	if err != nil {
		return nil, err
	}

	return profile.NewService(profile.ServiceParams{
		DB:         dbClient,
		Store:      store,
		Ledger:     ledger,
		Ordering:   orderSvc,
		Uploads:    ingestor,
		References: media.NewReferenceRepository(conn),
		Outbox:     outbox.NewEmitter(outbox.NewRepository(conn), logg),
		Metrics:    metrics.NewProfileMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
	})
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
