package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/strikeground/strikeground-backend/pkg/config"
	"github.com/strikeground/strikeground-backend/pkg/db"
	"github.com/strikeground/strikeground-backend/pkg/env"
	"github.com/strikeground/strikeground-backend/pkg/logger"
	"github.com/strikeground/strikeground-backend/pkg/metrics"
	"github.com/strikeground/strikeground-backend/pkg/migrate"
	"github.com/strikeground/strikeground-backend/pkg/outbox"
	"github.com/strikeground/strikeground-backend/pkg/outbox/registry"
	"github.com/strikeground/strikeground-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

func main() {
	drain := flag.Bool("drain", false, "publish until the outbox is empty, then exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind
	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"instance":    env.InstanceID(),
		"drain":       *drain,
	})

	if err := run(ctx, cfg, logg, *drain); err != nil {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, drain bool) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer func() { err = multierr.Append(err, pubsubClient.Close()) }()

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}
	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		PubSub:     pubsubClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Registry:   eventRegistry,
		Metrics:    metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}

	logg.Info(ctx, "starting outbox publisher")
	if drain {
		batches, err := service.Drain(ctx)
		if err != nil {
			return fmt.Errorf("drain after %d batches: %w", batches, err)
		}
		logg.Info(logg.WithField(ctx, "batches", batches), "outbox drained")
		return nil
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Service.MetricsAddr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
