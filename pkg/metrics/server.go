package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strikeground/strikeground-backend/pkg/logger"
)

const serverShutdownTimeout = 5 * time.Second

// Serve exposes the gatherer on addr at /metrics until ctx is done.
// Workers call it in a goroutine; an empty addr disables the listener.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logg *logger.Logger) error {
	if addr == "" {
		return nil
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if logg != nil {
			logg.Info(logg.WithField(ctx, "metrics_addr", addr), "metrics listener started")
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
