package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/strikeground/strikeground-backend/api/middleware"
	"github.com/strikeground/strikeground-backend/api/responses"
	"github.com/strikeground/strikeground-backend/api/validators"
	"github.com/strikeground/strikeground-backend/internal/tickets"
	"github.com/strikeground/strikeground-backend/pkg/db/models"
	"github.com/strikeground/strikeground-backend/pkg/enums"
	pkgerrors "github.com/strikeground/strikeground-backend/pkg/errors"
	"github.com/strikeground/strikeground-backend/pkg/logger"
)

type issueTicketsRequest struct {
	UserID *string                 `json:"user_id" validate:"omitempty,min=1,max=128"`
	Items  []issueTicketsItemInput `json:"items" validate:"required,min=1,max=50,dive"`
}

type issueTicketsItemInput struct {
	Event          eventInput      `json:"event" validate:"required"`
	TicketType     string          `json:"ticket_type" validate:"required,oneof=general vip ringside"`
	Quantity       int             `json:"quantity" validate:"required,min=1,max=20"`
	PricePerTicket decimal.Decimal `json:"price_per_ticket" validate:"money"`
}

type eventInput struct {
	ID        string          `json:"id" validate:"required,max=128"`
	Title     string          `json:"title" validate:"required,max=256"`
	Date      string          `json:"date" validate:"max=64"`
	Location  string          `json:"location" validate:"max=256"`
	MainFight string          `json:"mainFight" validate:"max=256"`
	ImageURL  string          `json:"imageUrl" validate:"omitempty,max=2048"`
	Price     decimal.Decimal `json:"price" validate:"money"`
	Category  string          `json:"category" validate:"max=64"`
}

func (req issueTicketsRequest) toOrder(orderID string) (tickets.Order, error) {
	owner := tickets.Guest()
	if req.UserID != nil {
		authenticated, err := tickets.Authenticated(strings.TrimSpace(*req.UserID))
		if err != nil {
			return tickets.Order{}, err
		}
		owner = authenticated
	}

	order := tickets.Order{ID: orderID, Owner: owner, Items: make([]tickets.OrderItem, 0, len(req.Items))}
	for _, item := range req.Items {
		ticketType, err := enums.ParseTicketType(item.TicketType)
		if err != nil {
			return tickets.Order{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ticket type")
		}
		order.Items = append(order.Items, tickets.OrderItem{
			Event: models.EventSnapshot{
				ID:        validators.SanitizeString(item.Event.ID, 128),
				Title:     validators.SanitizeString(item.Event.Title, 256),
				Date:      strings.TrimSpace(item.Event.Date),
				Location:  validators.SanitizeString(item.Event.Location, 256),
				MainFight: validators.SanitizeString(item.Event.MainFight, 256),
				ImageURL:  strings.TrimSpace(item.Event.ImageURL),
				Price:     item.Event.Price,
				Category:  validators.SanitizeString(item.Event.Category, 64),
			},
			TicketType:     ticketType,
			Quantity:       item.Quantity,
			PricePerTicket: item.PricePerTicket,
		})
	}
	return order, nil
}

// IssueOrderTickets ensures the order has tickets, issuing them on first call.
func IssueOrderTickets(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tickets service unavailable"))
			return
		}

		orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
		if orderID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id is required"))
			return
		}

		var req issueTicketsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := req.toOrder(orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.EnsureForOrder(r.Context(), middleware.PrincipalFromContext(r.Context()), order)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

func ListOrderTickets(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tickets service unavailable"))
			return
		}
		orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
		list, err := svc.ListByOrder(r.Context(), middleware.PrincipalFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListMyTickets pages through the caller's tickets.
func ListMyTickets(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tickets service unavailable"))
			return
		}

		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListMine(r.Context(), middleware.PrincipalFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetTicket(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tickets service unavailable"))
			return
		}
		ticketID := strings.TrimSpace(chi.URLParam(r, "ticketId"))
		dto, err := svc.Get(r.Context(), middleware.PrincipalFromContext(r.Context()), ticketID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// TicketQR streams the ticket's QR code as a PNG image.
func TicketQR(svc tickets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tickets service unavailable"))
			return
		}
		ticketID := strings.TrimSpace(chi.URLParam(r, "ticketId"))
		img, err := svc.RenderQR(r.Context(), middleware.PrincipalFromContext(r.Context()), ticketID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "private, max-age=300")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(img); err != nil && logg != nil {
			logg.Warn(logg.WithTicketID(r.Context(), ticketID), "failed to write qr image")
		}
	}
}
