package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/casesync/casesync-backend/api/routes"
	"github.com/casesync/casesync-backend/internal/cases"
	"github.com/casesync/casesync-backend/internal/content"
	"github.com/casesync/casesync-backend/internal/custody"
	"github.com/casesync/casesync-backend/internal/evidence"
	"github.com/casesync/casesync-backend/internal/jobs"
	"github.com/casesync/casesync-backend/internal/locks"
	"github.com/casesync/casesync-backend/internal/principals"
	"github.com/casesync/casesync-backend/pkg/bigquery"
	"github.com/casesync/casesync-backend/pkg/config"
	"github.com/casesync/casesync-backend/pkg/db"
	"github.com/casesync/casesync-backend/pkg/logger"
	"github.com/casesync/casesync-backend/pkg/migrate"
	"github.com/casesync/casesync-backend/pkg/outbox"
	"github.com/casesync/casesync-backend/pkg/redis"
	"github.com/casesync/casesync-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap cloud storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing cloud storage", err)
		}
	}()

	bigqueryClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap bigquery", err)
		os.Exit(1)
	}
	defer func() {
		if err := bigqueryClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing bigquery", err)
		}
	}()

	contentStore, err := content.NewStore(gcsClient.BucketHandle(cfg.GCS.BucketName))
	if err != nil {
		logg.Error(context.Background(), "failed to create content store", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	custodyService, err := custody.NewService(custody.NewRepository(dbClient.DB()), outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create custody service", err)
		os.Exit(1)
	}

	casesClient, err := cases.NewClient(cfg.Cases)
	if err != nil {
		logg.Error(context.Background(), "failed to create case directory client", err)
		os.Exit(1)
	}

	locker := locks.NewEvidenceLocker(redisClient)
	evidenceRepo := evidence.NewRepository(dbClient.DB())

	evidenceService, err := evidence.NewService(dbClient, evidenceRepo, custodyService, casesClient, outboxService, locker)
	if err != nil {
		logg.Error(context.Background(), "failed to create evidence service", err)
		os.Exit(1)
	}

	jobService, err := jobs.NewService(dbClient, jobs.NewRepository(dbClient.DB()), evidenceRepo, custodyService, outboxService, locker)
	if err != nil {
		logg.Error(context.Background(), "failed to create job service", err)
		os.Exit(1)
	}

	principalService, err := principals.NewService(principals.NewRepository(dbClient.DB()), cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create principal service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			gcsClient,
			bigqueryClient,
			principalService,
			contentStore,
			evidenceService,
			custodyService,
			jobService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
