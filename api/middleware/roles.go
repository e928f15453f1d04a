package middleware

import (
	"net/http"

	"github.com/strikeground/strikeground-backend/api/responses"
	"github.com/strikeground/strikeground-backend/pkg/enums"
	pkgerrors "github.com/strikeground/strikeground-backend/pkg/errors"
	"github.com/strikeground/strikeground-backend/pkg/logger"
)

// RequireRole admits callers whose token role is one of allowed. It must run
// after Auth; a request without a principal is treated as unauthenticated.
func RequireRole(logg *logger.Logger, allowed ...enums.Role) func(http.Handler) http.Handler {
	names := make([]string, 0, len(allowed))
	for _, role := range allowed {
		names = append(names, string(role))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if UserIDFromContext(ctx) == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}

			role := enums.Role(RoleFromContext(ctx))
			for _, candidate := range allowed {
				if candidate == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			if logg != nil {
				ctx = logg.WithActorRole(ctx, string(role))
				logg.Warn(logg.WithField(ctx, "path", r.URL.Path), "role.denied")
			}
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required").
				WithDetails(map[string]any{"required": names}))
		})
	}
}
