package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/strikeground/strikeground-backend/api/controllers"
	"github.com/strikeground/strikeground-backend/api/middleware"
	"github.com/strikeground/strikeground-backend/internal/tickets"
	"github.com/strikeground/strikeground-backend/pkg/config"
	"github.com/strikeground/strikeground-backend/pkg/db"
	"github.com/strikeground/strikeground-backend/pkg/enums"
	"github.com/strikeground/strikeground-backend/pkg/logger"
	"github.com/strikeground/strikeground-backend/pkg/redis"
)

// Dependencies bundles everything the HTTP surface needs.
type Dependencies struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          redis.Pinger
	Idempotency    redis.IdempotencyStore
	Tickets        tickets.Service
	MetricsHandler http.Handler
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if deps.Idempotency != nil {
			r.Use(middleware.Idempotency(deps.Idempotency, logg))
		}

		r.Get("/orders/{orderId}/tickets", controllers.ListOrderTickets(deps.Tickets, logg))
		r.Post("/orders/{orderId}/tickets", controllers.IssueOrderTickets(deps.Tickets, logg))
		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", controllers.ListMyTickets(deps.Tickets, logg))
			r.Get("/{ticketId}", controllers.GetTicket(deps.Tickets, logg))
			r.Get("/{ticketId}/qr", controllers.TicketQR(deps.Tickets, logg))
		})
	})

	r.Route("/api/admin/v1/tickets", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
		if deps.Idempotency != nil {
			r.Use(middleware.Idempotency(deps.Idempotency, logg))
		}

		r.Get("/", controllers.AdminListTickets(deps.Tickets, logg))
		r.Get("/stats", controllers.AdminTicketStats(deps.Tickets, logg))
		r.Post("/validate", controllers.AdminValidateTicket(deps.Tickets, logg))
		r.Get("/validations", controllers.AdminValidationHistory(deps.Tickets, logg))
		r.Delete("/validations", controllers.AdminClearValidationHistory(deps.Tickets, logg))
		r.Post("/{ticketId}/use", controllers.AdminMarkTicketUsed(deps.Tickets, logg))
		r.Post("/{ticketId}/qr", controllers.AdminRegenerateTicketQR(deps.Tickets, logg))
	})

	return r
}
