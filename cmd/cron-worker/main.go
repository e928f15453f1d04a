package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/strikeground/strikeground-backend/internal/cron"
	"github.com/strikeground/strikeground-backend/internal/tickets"
	"github.com/strikeground/strikeground-backend/pkg/config"
	"github.com/strikeground/strikeground-backend/pkg/db"
	"github.com/strikeground/strikeground-backend/pkg/env"
	"github.com/strikeground/strikeground-backend/pkg/logger"
	"github.com/strikeground/strikeground-backend/pkg/metrics"
	"github.com/strikeground/strikeground-backend/pkg/migrate"
	"github.com/strikeground/strikeground-backend/pkg/outbox"
	"github.com/strikeground/strikeground-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	jobsFlag := flag.String("jobs", "", "comma separated job names to run (default all)")
	flag.Parse()

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

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker", lockEnv(cfg.App.Env)), cfg.Cron.Interval)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	expiryJob, err := cron.NewTicketExpiryJob(cron.TicketExpiryJobParams{
		Logger:    logg,
		DB:        dbClient,
		Repo:      tickets.NewRepository(dbClient.DB()),
		Outbox:    outbox.NewService(outboxRepo, logg),
		Metrics:   metrics.NewTicketMetrics(prometheus.DefaultRegisterer),
		Grace:     cfg.Tickets.ExpiryGrace,
		BatchSize: cfg.Tickets.ExpiryBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ticket expiry job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outboxRepo,
		Retention:   cfg.Outbox.RetentionDays,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(expiryJob, retentionJob)
	if err == nil {
		registry, err = registry.Select(selectedJobs(*jobsFlag)...)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to build cron registry", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    env.InstanceID(),
	})
	logg.Info(logg.WithField(ctx, "jobs", registry.Names()), "starting cron worker")

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "cron cycle complete")
		return
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.Service.MetricsAddr, prometheus.DefaultGatherer, logg); err != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockEnv(appEnv string) string {
	if appEnv == "" {
		return "local"
	}
	return appEnv
}

func selectedJobs(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
