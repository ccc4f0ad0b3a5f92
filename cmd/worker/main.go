package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/casesync/casesync-backend/internal/audit"
	"github.com/casesync/casesync-backend/internal/custody"
	"github.com/casesync/casesync-backend/internal/evidence"
	"github.com/casesync/casesync-backend/internal/jobs"
	"github.com/casesync/casesync-backend/internal/locks"
	"github.com/casesync/casesync-backend/pkg/bigquery"
	"github.com/casesync/casesync-backend/pkg/config"
	"github.com/casesync/casesync-backend/pkg/db"
	"github.com/casesync/casesync-backend/pkg/logger"
	"github.com/casesync/casesync-backend/pkg/migrate"
	"github.com/casesync/casesync-backend/pkg/outbox"
	"github.com/casesync/casesync-backend/pkg/outbox/idempotency"
	"github.com/casesync/casesync-backend/pkg/pubsub"
	"github.com/casesync/casesync-backend/pkg/redis"
)

// Consumer dedupe marks outlive any realistic redelivery window.
const consumerIdempotencyTTL = 7 * 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}

	bigqueryClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap bigquery", err)
		os.Exit(1)
	}

	defer func() {
		if err := closeClients(dbClient, redisClient, pubsubClient, bigqueryClient); err != nil {
			logg.Error(context.Background(), "error closing clients", err)
		}
	}()

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	custodyService, err := custody.NewService(custody.NewRepository(dbClient.DB()), outboxService)
	if err != nil {
		logg.Error(ctx, "failed to create custody service", err)
		os.Exit(1)
	}

	locker := locks.NewEvidenceLocker(redisClient)
	evidenceRepo := evidence.NewRepository(dbClient.DB())

	jobService, err := jobs.NewService(dbClient, jobs.NewRepository(dbClient.DB()), evidenceRepo, custodyService, outboxService, locker)
	if err != nil {
		logg.Error(ctx, "failed to create job service", err)
		os.Exit(1)
	}

	idemManager, err := idempotency.NewManager(redisClient, consumerIdempotencyTTL)
	if err != nil {
		logg.Error(ctx, "failed to create idempotency manager", err)
		os.Exit(1)
	}

	completionConsumer, err := jobs.NewConsumer(jobService, pubsubClient.CompletionSubscription(), idemManager, logg)
	if err != nil {
		logg.Error(ctx, "failed to create completion consumer", err)
		os.Exit(1)
	}

	auditExporter, err := audit.NewExporter(bigqueryClient, bigqueryClient.CustodyAuditTable())
	if err != nil {
		logg.Error(ctx, "failed to create audit exporter", err)
		os.Exit(1)
	}

	custodyConsumer, err := audit.NewConsumer(auditExporter, pubsubClient.CustodySubscription(), idemManager, logg)
	if err != nil {
		logg.Error(ctx, "failed to create custody consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:             cfg,
		Logger:             logg,
		DB:                 dbClient,
		Redis:              redisClient,
		PubSub:             pubsubClient,
		BigQuery:           bigqueryClient,
		CompletionConsumer: completionConsumer,
		CustodyConsumer:    custodyConsumer,
	})
	if err != nil {
		logg.Error(ctx, "failed to create worker service", err)
		os.Exit(1)
	}

	logg.Info(logg.WithField(ctx, "env", cfg.App.Env), "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(context.Background(), "worker shut down")
}

func closeClients(dbClient *db.Client, redisClient *redis.Client, pubsubClient *pubsub.Client, bigqueryClient *bigquery.Client) error {
	var errs error
	errs = multierr.Append(errs, dbClient.Close())
	errs = multierr.Append(errs, redisClient.Close())
	errs = multierr.Append(errs, pubsubClient.Close())
	errs = multierr.Append(errs, bigqueryClient.Close())
	return errs
}
