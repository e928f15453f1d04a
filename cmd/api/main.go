package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strikeground/strikeground-backend/api/routes"
	"github.com/strikeground/strikeground-backend/internal/tickets"
	"github.com/strikeground/strikeground-backend/pkg/config"
	"github.com/strikeground/strikeground-backend/pkg/db"
	"github.com/strikeground/strikeground-backend/pkg/enums"
	"github.com/strikeground/strikeground-backend/pkg/logger"
	"github.com/strikeground/strikeground-backend/pkg/metrics"
	"github.com/strikeground/strikeground-backend/pkg/migrate"
	"github.com/strikeground/strikeground-backend/pkg/outbox"
	"github.com/strikeground/strikeground-backend/pkg/qr"
	"github.com/strikeground/strikeground-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	ticketService, err := buildTicketService(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create tickets service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"instance":      id,
		"signature_alg": cfg.Tickets.SignatureAlgorithm,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Idempotency:    redisClient,
			Tickets:        ticketService,
			MetricsHandler: promhttp.Handler(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api server shutdown failed", err)
		return
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func buildTicketService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (tickets.Service, error) {
	alg, err := enums.ParseSignatureAlgorithm(cfg.Tickets.SignatureAlgorithm)
	if err != nil {
		return nil, err
	}
	signer, err := tickets.NewSigner(alg, cfg.Tickets.SigningSecret)
	if err != nil {
		return nil, err
	}
	history, err := tickets.NewHistoryStore(redisClient, redisClient.ValidationHistoryKey(), cfg.Tickets.HistoryLimit, logg)
	if err != nil {
		return nil, err
	}
	qrOpts := qr.OptionsFromConfig(cfg.QR)
	encoder, err := qr.NewEncoder(qrOpts)
	if err != nil {
		return nil, err
	}

	return tickets.NewService(tickets.ServiceParams{
		Repo:              tickets.NewRepository(dbClient.DB()),
		TransactionRunner: dbClient,
		Outbox:            outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Signer:            signer,
		History:           history,
		QR:                encoder,
		QROptions:         qrOpts,
		Metrics:           metrics.NewTicketMetrics(prometheus.DefaultRegisterer),
		Logger:            logg,
	})
}
