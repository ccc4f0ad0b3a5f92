package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/casesync/casesync-backend/internal/audit"
	"github.com/casesync/casesync-backend/internal/jobs"
	"github.com/casesync/casesync-backend/pkg/bigquery"
	"github.com/casesync/casesync-backend/pkg/config"
	"github.com/casesync/casesync-backend/pkg/db"
	"github.com/casesync/casesync-backend/pkg/logger"
	"github.com/casesync/casesync-backend/pkg/pubsub"
	"github.com/casesync/casesync-backend/pkg/redis"
)

type ServiceParams struct {
	Config             *config.Config
	Logger             *logger.Logger
	DB                 *db.Client
	Redis              *redis.Client
	PubSub             *pubsub.Client
	BigQuery           *bigquery.Client
	CompletionConsumer *jobs.Consumer
	CustodyConsumer    *audit.Consumer
}

type Service struct {
	cfg                *config.Config
	logg               *logger.Logger
	db                 *db.Client
	redis              *redis.Client
	pubsub             *pubsub.Client
	bigquery           *bigquery.Client
	completionConsumer *jobs.Consumer
	custodyConsumer    *audit.Consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.BigQuery == nil {
		return nil, errors.New("bigquery client is required")
	}
	if params.CompletionConsumer == nil {
		return nil, errors.New("completion consumer is required")
	}
	if params.CustodyConsumer == nil {
		return nil, errors.New("custody consumer is required")
	}

	return &Service{
		cfg:                params.Config,
		logg:               params.Logger,
		db:                 params.DB,
		redis:              params.Redis,
		pubsub:             params.PubSub,
		bigquery:           params.BigQuery,
		completionConsumer: params.CompletionConsumer,
		custodyConsumer:    params.CustodyConsumer,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "bigquery", s.bigquery.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.completionConsumer.Run(ctx)
	}()
	go func() {
		errCh <- s.custodyConsumer.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "consumer stopped unexpectedly", err)
			return err
		}
		return err
	}
}
