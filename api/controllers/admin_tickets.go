package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/strikeground/strikeground-backend/api/middleware"
	"github.com/strikeground/strikeground-backend/api/responses"
	"github.com/strikeground/strikeground-backend/api/validators"
	"github.com/strikeground/strikeground-backend/internal/tickets"
	pkgerrors "github.com/strikeground/strikeground-backend/pkg/errors"
	"github.com/strikeground/strikeground-backend/pkg/logger"
)

type validateTicketRequest struct {
	Payload string `json:"payload" validate:"required,max=4096"`
}

func AdminListTickets(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tickets service unavailable"))
			return
		}
		list, err := svc.ListAll(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminTicketStats(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tickets service unavailable"))
			return
		}
		stats, err := svc.Stats(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// AdminValidateTicket checks a scanned payload. Rejections are 200 responses
// carrying the outcome; only infrastructure failures are errors.
func AdminValidateTicket(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tickets service unavailable"))
			return
		}

		var req validateTicketRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.Validate(r.Context(), middleware.PrincipalFromContext(r.Context()), req.Payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

func AdminMarkTicketUsed(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tickets service unavailable"))
			return
		}
		ticketID := strings.TrimSpace(chi.URLParam(r, "ticketId"))
		dto, err := svc.MarkUsed(r.Context(), middleware.PrincipalFromContext(r.Context()), ticketID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func AdminRegenerateTicketQR(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tickets service unavailable"))
			return
		}
		ticketID := strings.TrimSpace(chi.URLParam(r, "ticketId"))
		dataURL, err := svc.RegenerateQR(r.Context(), middleware.PrincipalFromContext(r.Context()), ticketID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"ticket_id": ticketID, "qr_code": dataURL})
	}
}

func AdminValidationHistory(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tickets service unavailable"))
			return
		}
		entries, err := svc.History(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

func AdminClearValidationHistory(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tickets service unavailable"))
			return
		}
		if err := svc.ClearHistory(r.Context(), middleware.PrincipalFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"cleared": true})
	}
}
