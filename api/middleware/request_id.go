package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/strikeground/strikeground-backend/pkg/logger"
)

const (
	requestIDHeader     = "X-Request-Id"
	correlationIDHeader = "X-Correlation-Id"
	maxRequestIDLength  = 64
)

// RequestID propagates the caller's request id, or the storefront's
// correlation id, and mints a uuid when neither is usable.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := inboundRequestID(r)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func inboundRequestID(r *http.Request) string {
	for _, header := range []string{requestIDHeader, correlationIDHeader} {
		if id := strings.TrimSpace(r.Header.Get(header)); validRequestID(id) {
			return id
		}
	}
	return ""
}

// validRequestID accepts short printable ASCII ids so they are safe to log and echo.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
