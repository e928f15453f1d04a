package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/strikeground/strikeground-backend/api/responses"
	"github.com/strikeground/strikeground-backend/pkg/config"
	"github.com/strikeground/strikeground-backend/pkg/db"
	pkgerrors "github.com/strikeground/strikeground-backend/pkg/errors"
	"github.com/strikeground/strikeground-backend/pkg/logger"
	"github.com/strikeground/strikeground-backend/pkg/redis"
)

const (
	envHeader    = "X-StrikeGround-Env"
	readyTimeout = 2 * time.Second
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the database and redis answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := map[string]string{"database": "ok", "redis": "ok"}
		var failed error
		if dbP == nil {
			checks["database"] = "unconfigured"
		} else if err := dbP.Ping(ctx); err != nil {
			checks["database"] = "down"
			failed = err
		}
		if redisP == nil {
			checks["redis"] = "unconfigured"
		} else if err := redisP.Ping(ctx); err != nil {
			checks["redis"] = "down"
			failed = err
		}

		if failed != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, failed, "dependency check failed").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
