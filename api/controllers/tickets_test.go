package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strikeground/strikeground-backend/api/middleware"
	"github.com/strikeground/strikeground-backend/internal/tickets"
	"github.com/strikeground/strikeground-backend/pkg/config"
	"github.com/strikeground/strikeground-backend/pkg/enums"
	pkgerrors "github.com/strikeground/strikeground-backend/pkg/errors"
	"github.com/strikeground/strikeground-backend/pkg/logger"
	"github.com/strikeground/strikeground-backend/pkg/pagination"
)

type stubTicketsService struct {
	ensureFn   func(ctx context.Context, principal tickets.Principal, order tickets.Order) (*tickets.IssueResult, error)
	listMineFn func(ctx context.Context, principal tickets.Principal, params pagination.Params) (*tickets.TicketPage, error)
	validateFn func(ctx context.Context, principal tickets.Principal, raw string) (tickets.ValidationOutcome, error)
	markUsedFn func(ctx context.Context, principal tickets.Principal, ticketID string) (*tickets.TicketDTO, error)
	renderFn   func(ctx context.Context, principal tickets.Principal, ticketID string) ([]byte, error)
}

func (s *stubTicketsService) IssueForOrder(ctx context.Context, principal tickets.Principal, order tickets.Order) ([]tickets.TicketDTO, error) {
	return nil, nil
}

func (s *stubTicketsService) EnsureForOrder(ctx context.Context, principal tickets.Principal, order tickets.Order) (*tickets.IssueResult, error) {
	if s.ensureFn != nil {
		return s.ensureFn(ctx, principal, order)
	}
	return &tickets.IssueResult{}, nil
}

func (s *stubTicketsService) ListByOrder(ctx context.Context, principal tickets.Principal, orderID string) ([]tickets.TicketDTO, error) {
	return nil, nil
}

func (s *stubTicketsService) Get(ctx context.Context, principal tickets.Principal, ticketID string) (*tickets.TicketDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
}

func (s *stubTicketsService) ListMine(ctx context.Context, principal tickets.Principal, params pagination.Params) (*tickets.TicketPage, error) {
	if s.listMineFn != nil {
		return s.listMineFn(ctx, principal, params)
	}
	return &tickets.TicketPage{}, nil
}

func (s *stubTicketsService) ListAll(ctx context.Context, principal tickets.Principal) ([]tickets.TicketDTO, error) {
	return nil, nil
}

func (s *stubTicketsService) Validate(ctx context.Context, principal tickets.Principal, raw string) (tickets.ValidationOutcome, error) {
	if s.validateFn != nil {
		return s.validateFn(ctx, principal, raw)
	}
	return tickets.ValidationOutcome{}, nil
}

func (s *stubTicketsService) MarkUsed(ctx context.Context, principal tickets.Principal, ticketID string) (*tickets.TicketDTO, error) {
	if s.markUsedFn != nil {
		return s.markUsedFn(ctx, principal, ticketID)
	}
	return nil, nil
}

func (s *stubTicketsService) History(ctx context.Context, principal tickets.Principal) ([]tickets.HistoryEntry, error) {
	return nil, nil
}

func (s *stubTicketsService) ClearHistory(ctx context.Context, principal tickets.Principal) error {
	return nil
}

func (s *stubTicketsService) Stats(ctx context.Context, principal tickets.Principal) (*tickets.Stats, error) {
	return &tickets.Stats{}, nil
}

func (s *stubTicketsService) RenderQR(ctx context.Context, principal tickets.Principal, ticketID string) ([]byte, error) {
	if s.renderFn != nil {
		return s.renderFn(ctx, principal, ticketID)
	}
	return nil, nil
}

func (s *stubTicketsService) RegenerateQR(ctx context.Context, principal tickets.Principal, ticketID string) (string, error) {
	return "data:image/png;base64,", nil
}

func withPrincipal(req *http.Request, userID string, role enums.Role) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID)
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

const issueBody = `{
	"user_id": "user-42",
	"items": [
		{"event": {"id": "E1", "title": "Fight Night", "date": "2026-03-01T20:00:00Z", "location": "Arena", "price": 50},
		 "ticket_type": "vip", "quantity": 2, "price_per_ticket": 50}
	]
}`

func TestIssueOrderTicketsCreated(t *testing.T) {
	var captured tickets.Order
	svc := &stubTicketsService{
		ensureFn: func(ctx context.Context, principal tickets.Principal, order tickets.Order) (*tickets.IssueResult, error) {
			captured = order
			assert.Equal(t, "user-42", principal.UserID)
			return &tickets.IssueResult{Created: true, Tickets: []tickets.TicketDTO{{ID: "TKT-1"}, {ID: "TKT-2"}}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD-1/tickets", strings.NewReader(issueBody))
	req = withURLParam(withPrincipal(req, "user-42", enums.RoleCustomer), "orderId", "ORD-1")
	resp := httptest.NewRecorder()
	IssueOrderTickets(svc, logger.Nop())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, "ORD-1", captured.ID)
	userID, ok := captured.Owner.UserID()
	require.True(t, ok)
	require.Equal(t, "user-42", userID)
	require.Len(t, captured.Items, 1)
	require.Equal(t, enums.TicketTypeVIP, captured.Items[0].TicketType)
	require.Equal(t, "Fight Night", captured.Items[0].Event.Title)

	var result tickets.IssueResult
	decodeEnvelope(t, resp, &result)
	require.True(t, result.Created)
	require.Len(t, result.Tickets, 2)
}

func TestIssueOrderTicketsExistingReturnsOK(t *testing.T) {
	svc := &stubTicketsService{
		ensureFn: func(ctx context.Context, principal tickets.Principal, order tickets.Order) (*tickets.IssueResult, error) {
			return &tickets.IssueResult{Created: false, Tickets: []tickets.TicketDTO{{ID: "TKT-1"}}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD-1/tickets", strings.NewReader(issueBody))
	req = withURLParam(withPrincipal(req, "user-42", enums.RoleCustomer), "orderId", "ORD-1")
	resp := httptest.NewRecorder()
	IssueOrderTickets(svc, logger.Nop())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
}

func TestIssueOrderTicketsRejectsBadBody(t *testing.T) {
	called := false
	svc := &stubTicketsService{
		ensureFn: func(ctx context.Context, principal tickets.Principal, order tickets.Order) (*tickets.IssueResult, error) {
			called = true
			return nil, nil
		},
	}

	body := `{"items":[{"event":{"id":"E1","title":"Fight Night"},"ticket_type":"balcony","quantity":1,"price_per_ticket":10}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD-1/tickets", strings.NewReader(body))
	req = withURLParam(withPrincipal(req, "door-admin", enums.RoleAdmin), "orderId", "ORD-1")
	resp := httptest.NewRecorder()
	IssueOrderTickets(svc, logger.Nop())(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.False(t, called)
}

func TestIssueOrderTicketsRejectsReservedGuestID(t *testing.T) {
	body := `{"user_id":"guest","items":[{"event":{"id":"E1","title":"Fight Night"},"ticket_type":"general","quantity":1,"price_per_ticket":10}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ORD-1/tickets", strings.NewReader(body))
	req = withURLParam(withPrincipal(req, "door-admin", enums.RoleAdmin), "orderId", "ORD-1")
	resp := httptest.NewRecorder()
	IssueOrderTickets(&stubTicketsService{}, logger.Nop())(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListMyTicketsPassesPagination(t *testing.T) {
	var captured pagination.Params
	svc := &stubTicketsService{
		listMineFn: func(ctx context.Context, principal tickets.Principal, params pagination.Params) (*tickets.TicketPage, error) {
			captured = params
			return &tickets.TicketPage{Tickets: []tickets.TicketDTO{{ID: "TKT-1"}}, NextCursor: "next"}, nil
		},
	}

	cursor := pagination.EncodeCursor(pagination.Cursor{Seq: 7})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets?limit=5&cursor="+cursor, nil)
	req = withPrincipal(req, "user-42", enums.RoleCustomer)
	resp := httptest.NewRecorder()
	ListMyTickets(svc, logger.Nop())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, 5, captured.Limit)
	require.Equal(t, cursor, captured.Cursor)

	var page tickets.TicketPage
	decodeEnvelope(t, resp, &page)
	require.Equal(t, "next", page.NextCursor)
}

func TestListMyTicketsRejectsLimitOutOfRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets?limit=1000", nil)
	req = withPrincipal(req, "user-42", enums.RoleCustomer)
	resp := httptest.NewRecorder()
	ListMyTickets(&stubTicketsService{}, logger.Nop())(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListMyTicketsRejectsMalformedCursor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets?cursor=abc", nil)
	req = withPrincipal(req, "user-42", enums.RoleCustomer)
	resp := httptest.NewRecorder()
	ListMyTickets(&stubTicketsService{}, logger.Nop())(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetTicketNotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets/TKT-X", nil)
	req = withURLParam(withPrincipal(req, "user-42", enums.RoleCustomer), "ticketId", "TKT-X")
	resp := httptest.NewRecorder()
	GetTicket(&stubTicketsService{}, logger.Nop())(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTicketQRWritesPNG(t *testing.T) {
	svc := &stubTicketsService{
		renderFn: func(ctx context.Context, principal tickets.Principal, ticketID string) ([]byte, error) {
			require.Equal(t, "TKT-1", ticketID)
			return []byte("\x89PNG"), nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets/TKT-1/qr", nil)
	req = withURLParam(withPrincipal(req, "user-42", enums.RoleCustomer), "ticketId", "TKT-1")
	resp := httptest.NewRecorder()
	TicketQR(svc, logger.Nop())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "image/png", resp.Header().Get("Content-Type"))
	require.Equal(t, "\x89PNG", resp.Body.String())
}

func TestAdminValidateTicketReturnsSoftOutcome(t *testing.T) {
	svc := &stubTicketsService{
		validateFn: func(ctx context.Context, principal tickets.Principal, raw string) (tickets.ValidationOutcome, error) {
			require.Equal(t, "not-json", raw)
			require.True(t, principal.IsAdmin())
			return tickets.ValidationOutcome{IsValid: false, Message: "invalid QR code format", Reason: enums.ReasonInvalidFormat}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/tickets/validate", strings.NewReader(`{"payload":"not-json"}`))
	req = withPrincipal(req, "door-admin", enums.RoleAdmin)
	resp := httptest.NewRecorder()
	AdminValidateTicket(svc, logger.Nop())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var outcome tickets.ValidationOutcome
	decodeEnvelope(t, resp, &outcome)
	require.False(t, outcome.IsValid)
	require.Equal(t, enums.ReasonInvalidFormat, outcome.Reason)
	require.Nil(t, outcome.Ticket)
}

func TestAdminMarkTicketUsedConflict(t *testing.T) {
	svc := &stubTicketsService{
		markUsedFn: func(ctx context.Context, principal tickets.Principal, ticketID string) (*tickets.TicketDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ticket is not valid for entry")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/tickets/TKT-1/use", nil)
	req = withURLParam(withPrincipal(req, "door-admin", enums.RoleAdmin), "ticketId", "TKT-1")
	resp := httptest.NewRecorder()
	AdminMarkTicketUsed(svc, logger.Nop())(resp, req)

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, stubPinger{}, stubPinger{})(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "dev", resp.Header().Get("X-StrikeGround-Env"))

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, stubPinger{}, stubPinger{err: errors.New("redis down")})(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
