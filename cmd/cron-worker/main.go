package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/casesync/casesync-backend/internal/custody"
	"github.com/casesync/casesync-backend/internal/evidence"
	"github.com/casesync/casesync-backend/internal/integrity"
	"github.com/casesync/casesync-backend/pkg/config"
	"github.com/casesync/casesync-backend/pkg/db"
	"github.com/casesync/casesync-backend/pkg/logger"
	"github.com/casesync/casesync-backend/pkg/metrics"
	"github.com/casesync/casesync-backend/pkg/migrate"
	"github.com/casesync/casesync-backend/pkg/outbox"
	"github.com/casesync/casesync-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	custodyService, err := custody.NewService(custody.NewRepository(dbClient.DB()), outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create custody service", err)
		os.Exit(1)
	}

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	integrityMetrics := metrics.NewIntegrityMetrics(prometheus.DefaultRegisterer)

	sweepJob, err := integrity.NewChainSweepJob(integrity.ChainSweepJobParams{
		Logger:    logg,
		Evidence:  evidence.NewRepository(dbClient.DB()),
		Verifier:  custodyService,
		Metrics:   integrityMetrics,
		BatchSize: cfg.Integrity.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create chain sweep job", err)
		os.Exit(1)
	}

	retentionJob, err := integrity.NewOutboxRetentionJob(integrity.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	lock, err := redis.NewMutex(redisClient, redisClient.IntegrityLockKey(), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	service, err := integrity.NewService(integrity.ServiceParams{
		Logger:   logg,
		Registry: integrity.NewRegistry(sweepJob, retentionJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Integrity.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create integrity service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	metricsServer := &http.Server{
		Addr:    ":" + cfg.Integrity.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()
	defer func() {
		if err := metricsServer.Shutdown(context.Background()); err != nil {
			logg.Error(context.Background(), "error shutting down metrics server", err)
		}
	}()

	logg.Info(ctx, "starting integrity worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "integrity worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "integrity worker shutting down gracefully")
}
