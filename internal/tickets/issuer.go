package tickets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/strikeground/strikeground-backend/pkg/db/models"
	"github.com/strikeground/strikeground-backend/pkg/enums"
	pkgerrors "github.com/strikeground/strikeground-backend/pkg/errors"
)

var eventDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Issuer mints signed tickets for an order.
type Issuer struct {
	signer Signer
	now    func() time.Time
}

// NewIssuer builds an issuer that signs payloads with signer.
func NewIssuer(signer Signer) (*Issuer, error) {
	if signer == nil {
		return nil, fmt.Errorf("signer required")
	}
	return &Issuer{signer: signer, now: time.Now}, nil
}

// Issue creates one ticket per purchased unit, items in order and units in order,
// and persists them in a single batch. It does not check for existing tickets.
// All tickets of one call share a single issuance timestamp.
func (i *Issuer) Issue(ctx context.Context, repo Repository, order Order) ([]models.Ticket, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}
	if len(order.Items) == 0 {
		return []models.Ticket{}, nil
	}

	now := i.now().UTC()
	issuedAt := formatTimestamp(now)
	var tickets []models.Ticket
	for _, item := range order.Items {
		for unit := 0; unit < item.Quantity; unit++ {
			tickets = append(tickets, i.mint(order, item, now, issuedAt))
		}
	}

	if err := repo.Create(ctx, tickets); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist tickets")
	}
	return tickets, nil
}

func (i *Issuer) mint(order Order, item OrderItem, now time.Time, issuedAt string) models.Ticket {
	id := newTicketID(now)
	fields := SignedFields{
		TicketID:   id,
		OrderID:    order.ID,
		UserID:     order.Owner.wireID(),
		EventID:    item.Event.ID,
		TicketType: item.TicketType.String(),
		Timestamp:  issuedAt,
	}
	payload := Payload{
		TicketID:   fields.TicketID,
		OrderID:    fields.OrderID,
		UserID:     fields.UserID,
		EventID:    fields.EventID,
		TicketType: fields.TicketType,
		Timestamp:  fields.Timestamp,
		Signature:  i.signer.Sign(fields),
	}
	return models.Ticket{
		ID:             id,
		OrderID:        order.ID,
		OwnerUserID:    order.Owner.column(),
		EventID:        item.Event.ID,
		Event:          item.Event,
		EventDate:      parseEventDate(item.Event.Date),
		TicketType:     item.TicketType,
		Payload:        EncodePayload(payload),
		PayloadVersion: models.CurrentPayloadVersion,
		SignatureAlg:   i.signer.Name(),
		Status:         enums.TicketStatusValid,
		PurchasePrice:  item.PricePerTicket,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func validateOrder(order Order) error {
	if strings.TrimSpace(order.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if id, ok := order.Owner.UserID(); ok && id == GuestUserID {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is reserved")
	}
	for idx, item := range order.Items {
		if strings.TrimSpace(item.Event.ID) == "" {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: event id required", idx)
		}
		if item.Quantity < 1 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: quantity must be at least 1", idx)
		}
		if !item.TicketType.IsValid() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: unknown ticket type %q", idx, item.TicketType)
		}
		if item.PricePerTicket.IsNegative() {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: price must not be negative", idx)
		}
	}
	return nil
}

// parseEventDate returns nil when the snapshot date cannot be read; such tickets never expire.
func parseEventDate(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
