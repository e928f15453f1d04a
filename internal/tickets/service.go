package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/strikeground/strikeground-backend/pkg/db/models"
	"github.com/strikeground/strikeground-backend/pkg/enums"
	pkgerrors "github.com/strikeground/strikeground-backend/pkg/errors"
	"github.com/strikeground/strikeground-backend/pkg/logger"
	"github.com/strikeground/strikeground-backend/pkg/metrics"
	"github.com/strikeground/strikeground-backend/pkg/outbox"
	"github.com/strikeground/strikeground-backend/pkg/outbox/payloads"
	"github.com/strikeground/strikeground-backend/pkg/pagination"
	"github.com/strikeground/strikeground-backend/pkg/qr"
)

const validOutcomeLabel = "valid"

// Service is the ticket surface used by the HTTP layer.
type Service interface {
	IssueForOrder(ctx context.Context, principal Principal, order Order) ([]TicketDTO, error)
	EnsureForOrder(ctx context.Context, principal Principal, order Order) (*IssueResult, error)
	ListByOrder(ctx context.Context, principal Principal, orderID string) ([]TicketDTO, error)
	Get(ctx context.Context, principal Principal, ticketID string) (*TicketDTO, error)
	ListMine(ctx context.Context, principal Principal, params pagination.Params) (*TicketPage, error)
	ListAll(ctx context.Context, principal Principal) ([]TicketDTO, error)
	Validate(ctx context.Context, principal Principal, raw string) (ValidationOutcome, error)
	MarkUsed(ctx context.Context, principal Principal, ticketID string) (*TicketDTO, error)
	History(ctx context.Context, principal Principal) ([]HistoryEntry, error)
	ClearHistory(ctx context.Context, principal Principal) error
	Stats(ctx context.Context, principal Principal) (*Stats, error)
	RenderQR(ctx context.Context, principal Principal, ticketID string) ([]byte, error)
	RegenerateQR(ctx context.Context, principal Principal, ticketID string) (string, error)
}

// ServiceParams groups dependencies for the ticket service.
type ServiceParams struct {
	Repo              Repository
	TransactionRunner txRunner
	Outbox            outboxPublisher
	Signer            Signer
	History           HistoryStore
	QR                QREncoder
	QROptions         qr.Options
	Metrics           *metrics.TicketMetrics
	Logger            *logger.Logger
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	issuer    *Issuer
	validator *Validator
	history   HistoryStore
	qr        QREncoder
	qrOpts    qr.Options
	metrics   *metrics.TicketMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the ticket service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("tickets repository required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history store required")
	}
	if params.QR == nil {
		return nil, fmt.Errorf("qr encoder required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	issuer, err := NewIssuer(params.Signer)
	if err != nil {
		return nil, err
	}
	validator, err := NewValidator(params.Signer, params.Repo)
	if err != nil {
		return nil, err
	}
	return &service{
		repo:      params.Repo,
		tx:        params.TransactionRunner,
		outbox:    params.Outbox,
		issuer:    issuer,
		validator: validator,
		history:   params.History,
		qr:        params.QR,
		qrOpts:    params.QROptions,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

func (s *service) IssueForOrder(ctx context.Context, principal Principal, order Order) ([]TicketDTO, error) {
	if err := authorizeIssue(principal, order); err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)

	var issued []models.Ticket
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		issued, err = s.issueInTx(ctx, tx, principal, order)
		return err
	})
	if err != nil {
		return nil, asTyped(err, "issue tickets")
	}
	s.recordIssued(ctx, issued)
	return toDTOs(issued), nil
}

// EnsureForOrder returns the order's tickets, issuing them first if none exist yet.
func (s *service) EnsureForOrder(ctx context.Context, principal Principal, order Order) (*IssueResult, error) {
	if err := authorizeIssue(principal, order); err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)

	existing, err := s.existingForOrder(ctx, principal, order.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return &IssueResult{Tickets: toDTOs(existing), Created: false}, nil
	}

	var issued []models.Ticket
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).ClaimIssuance(ctx, order.ID, unitCount(order)); err != nil {
			return err
		}
		var err error
		issued, err = s.issueInTx(ctx, tx, principal, order)
		return err
	})
	if errors.Is(err, ErrIssuanceClaimed) {
		s.logg.Info(ctx, "ticket issuance already claimed, returning existing tickets")
		existing, err := s.existingForOrder(ctx, principal, order.ID)
		if err != nil {
			return nil, err
		}
		return &IssueResult{Tickets: toDTOs(existing), Created: false}, nil
	}
	if err != nil {
		return nil, asTyped(err, "claim ticket issuance")
	}

	s.recordIssued(ctx, issued)
	return &IssueResult{Tickets: toDTOs(issued), Created: true}, nil
}

func (s *service) issueInTx(ctx context.Context, tx *gorm.DB, principal Principal, order Order) ([]models.Ticket, error) {
	issued, err := s.issuer.Issue(ctx, s.repo.WithTx(tx), order)
	if err != nil {
		return nil, err
	}
	if len(issued) == 0 {
		return issued, nil
	}

	items := make([]payloads.IssuedTicket, 0, len(issued))
	for _, t := range issued {
		items = append(items, payloads.IssuedTicket{
			TicketID:      t.ID,
			EventID:       t.EventID,
			TicketType:    t.TicketType,
			PurchasePrice: t.PurchasePrice,
		})
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventTicketsIssued,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         actorFor(principal),
		Data: payloads.TicketsIssuedEvent{
			OrderID:     order.ID,
			OwnerUserID: order.Owner.column(),
			Tickets:     items,
			IssuedAt:    issued[0].CreatedAt,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue tickets issued event")
	}
	return issued, nil
}

func (s *service) recordIssued(ctx context.Context, issued []models.Ticket) {
	counts := map[enums.TicketType]int{}
	for _, t := range issued {
		counts[t.TicketType]++
	}
	for ticketType, n := range counts {
		s.metrics.AddIssued(ticketType.String(), n)
	}
	if len(issued) > 0 {
		s.logg.Info(s.logg.WithField(ctx, "ticket_count", len(issued)), "tickets issued")
	}
}

func (s *service) existingForOrder(ctx context.Context, principal Principal, orderID string) ([]models.Ticket, error) {
	rows, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order tickets")
	}
	for _, row := range rows {
		if !canView(principal, row) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order tickets belong to another user")
		}
	}
	return rows, nil
}

func (s *service) ListByOrder(ctx context.Context, principal Principal, orderID string) ([]TicketDTO, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	rows, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order tickets")
	}
	visible := make([]models.Ticket, 0, len(rows))
	for _, row := range rows {
		if canView(principal, row) {
			visible = append(visible, row)
		}
	}
	return toDTOs(visible), nil
}

func (s *service) Get(ctx context.Context, principal Principal, ticketID string) (*TicketDTO, error) {
	ticket, err := s.loadVisible(ctx, principal, ticketID)
	if err != nil {
		return nil, err
	}
	dto := ToDTO(*ticket)
	return &dto, nil
}

func (s *service) ListMine(ctx context.Context, principal Principal, params pagination.Params) (*TicketPage, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	owner := principal.UserID
	rows, next, err := s.repo.ListPage(ctx, &owner, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tickets")
	}
	return &TicketPage{Tickets: toDTOs(rows), NextCursor: next}, nil
}

func (s *service) ListAll(ctx context.Context, principal Principal) ([]TicketDTO, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	rows, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tickets")
	}
	return toDTOs(rows), nil
}

// Validate checks a scanned payload and appends the result to the validation log.
func (s *service) Validate(ctx context.Context, principal Principal, raw string) (ValidationOutcome, error) {
	if err := requireAdmin(principal); err != nil {
		return ValidationOutcome{}, err
	}
	outcome, payload, err := s.validator.evaluate(ctx, raw)
	if err != nil {
		return ValidationOutcome{}, err
	}

	now := s.now().UTC()
	entry := HistoryEntry{
		Version:     HistoryEntryVersion,
		ID:          newValidationID(now),
		Timestamp:   now,
		Result:      outcome,
		ValidatedBy: principal.UserID,
	}
	if payload != nil {
		entry.TicketID = payload.TicketID
		ctx = s.logg.WithTicketID(ctx, payload.TicketID)
	}
	if err := s.history.Record(ctx, entry); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to record validation history")
	}

	label := validOutcomeLabel
	if !outcome.IsValid {
		label = string(outcome.Reason)
	}
	s.metrics.IncValidation(label)
	s.logg.Info(s.logg.WithField(ctx, "outcome", label), "ticket validated")
	return outcome, nil
}

// MarkUsed admits a valid ticket. Unknown ids are a hard failure.
func (s *service) MarkUsed(ctx context.Context, principal Principal, ticketID string) (*TicketDTO, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	ctx = s.logg.WithTicketID(ctx, ticketID)

	now := s.now().UTC()
	operator := principal.UserID
	var admitted *models.Ticket
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ticket, err := s.repo.WithTx(tx).MarkUsed(ctx, ticketID, &operator, now)
		if err != nil {
			return err
		}
		admitted = ticket
		event := outbox.DomainEvent{
			EventType:     enums.EventTicketAdmitted,
			AggregateType: enums.AggregateTicket,
			AggregateID:   ticket.ID,
			Version:       1,
			Actor:         actorFor(principal),
			Data: payloads.TicketAdmittedEvent{
				TicketID: ticket.ID,
				OrderID:  ticket.OrderID,
				EventID:  ticket.EventID,
				UsedAt:   now,
				UsedBy:   operator,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	switch {
	case errors.Is(err, ErrTicketNotFound):
		s.logg.Error(ctx, "mark used on unknown ticket", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "ticket not found")
	case errors.Is(err, ErrTicketNotUsable):
		return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "ticket is not valid for entry")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark ticket used")
	}

	s.metrics.IncAdmitted()
	s.logg.Info(ctx, "ticket admitted")
	dto := ToDTO(*admitted)
	return &dto, nil
}

func (s *service) History(ctx context.Context, principal Principal) ([]HistoryEntry, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	entries, err := s.history.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load validation history")
	}
	return entries, nil
}

func (s *service) ClearHistory(ctx context.Context, principal Principal) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if err := s.history.Clear(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear validation history")
	}
	s.logg.Info(ctx, "validation history cleared")
	return nil
}

func (s *service) Stats(ctx context.Context, principal Principal) (*Stats, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count tickets")
	}
	stats := &Stats{ByStatus: counts}
	for _, n := range counts {
		stats.Total += n
	}
	stats.Validated = counts[enums.TicketStatusUsed]
	return stats, nil
}

func (s *service) RenderQR(ctx context.Context, principal Principal, ticketID string) ([]byte, error) {
	ticket, err := s.loadVisible(ctx, principal, ticketID)
	if err != nil {
		return nil, err
	}
	if err := checkStoredPayload(ticket); err != nil {
		return nil, err
	}
	img, err := s.qr.Encode(ctx, ticket.Payload, s.qrOpts)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render qr code")
	}
	return img, nil
}

// RegenerateQR re-renders the stored payload as a data URL.
func (s *service) RegenerateQR(ctx context.Context, principal Principal, ticketID string) (string, error) {
	if err := requireAdmin(principal); err != nil {
		return "", err
	}
	ticket, err := s.loadVisible(ctx, principal, ticketID)
	if err != nil {
		return "", err
	}
	if err := checkStoredPayload(ticket); err != nil {
		s.logg.Error(s.logg.WithTicketID(ctx, ticketID), "stored ticket payload is corrupted", err)
		return "", err
	}
	url, err := s.qr.DataURL(ctx, ticket.Payload, s.qrOpts)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render qr code")
	}
	return url, nil
}

func (s *service) loadVisible(ctx context.Context, principal Principal, ticketID string) (*models.Ticket, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	ticket, err := s.repo.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ticket")
	}
	if !canView(principal, *ticket) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
	}
	return ticket, nil
}

func checkStoredPayload(ticket *models.Ticket) error {
	if DecodePayload(ticket.Payload) == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "ticket data corrupted")
	}
	return nil
}

func requirePrincipal(principal Principal) error {
	if principal.UserID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func requireAdmin(principal Principal) error {
	if err := requirePrincipal(principal); err != nil {
		return err
	}
	if !principal.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

// authorizeIssue lets customers issue only for themselves; admins may issue for anyone.
func authorizeIssue(principal Principal, order Order) error {
	if err := requirePrincipal(principal); err != nil {
		return err
	}
	if principal.IsAdmin() {
		return nil
	}
	if id, ok := order.Owner.UserID(); !ok || id != principal.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot issue tickets for another user")
	}
	return nil
}

func canView(principal Principal, ticket models.Ticket) bool {
	if principal.IsAdmin() {
		return true
	}
	return ticket.OwnerUserID != nil && *ticket.OwnerUserID == principal.UserID
}

// asTyped keeps typed errors and wraps everything else as a dependency failure.
func asTyped(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func unitCount(order Order) int {
	total := 0
	for _, item := range order.Items {
		if item.Quantity > 0 {
			total += item.Quantity
		}
	}
	return total
}

func actorFor(principal Principal) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: principal.UserID, Role: string(principal.Role)}
}
