package tickets

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/strikeground/strikeground-backend/pkg/db/models"
	"github.com/strikeground/strikeground-backend/pkg/enums"
)

// HistoryEntryVersion tags the persisted validation history layout.
const HistoryEntryVersion = 1

// Order is the completed purchase tickets are issued for.
type Order struct {
	ID    string
	Owner Owner
	Items []OrderItem
}

// OrderItem is one purchased line: an event, a ticket type and a quantity.
type OrderItem struct {
	Event          models.EventSnapshot
	TicketType     enums.TicketType
	Quantity       int
	PricePerTicket decimal.Decimal
}

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   enums.Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == enums.RoleAdmin
}

// TicketDTO is the API view of a ticket.
type TicketDTO struct {
	ID            string               `json:"id"`
	OrderID       string               `json:"order_id"`
	UserID        string               `json:"user_id"`
	EventID       string               `json:"event_id"`
	Event         models.EventSnapshot `json:"event"`
	TicketType    enums.TicketType     `json:"ticket_type"`
	QRCodeData    string               `json:"qr_code_data"`
	Status        enums.TicketStatus   `json:"status"`
	IsUsed        bool                 `json:"is_used"`
	UsedAt        *time.Time           `json:"used_at,omitempty"`
	UsedBy        *string              `json:"used_by,omitempty"`
	PurchasePrice decimal.Decimal      `json:"purchase_price"`
	CreatedAt     time.Time            `json:"created_at"`
}

// ValidationOutcome is the result of checking a scanned payload.
type ValidationOutcome struct {
	IsValid bool                   `json:"is_valid"`
	Message string                 `json:"message"`
	Reason  enums.ValidationReason `json:"reason,omitempty"`
	Ticket  *TicketDTO             `json:"ticket,omitempty"`
}

// HistoryEntry is one recorded scan.
type HistoryEntry struct {
	Version     int               `json:"v"`
	ID          string            `json:"id"`
	TicketID    string            `json:"ticket_id,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Result      ValidationOutcome `json:"result"`
	ValidatedBy string            `json:"validated_by,omitempty"`
}

// TicketPage is a cursor page of tickets.
type TicketPage struct {
	Tickets    []TicketDTO `json:"tickets"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// Stats summarizes ticket counts for the admin dashboard.
type Stats struct {
	Total     int64                        `json:"total"`
	Validated int64                        `json:"validated"`
	ByStatus  map[enums.TicketStatus]int64 `json:"by_status"`
}

// IssueResult reports the tickets for an order and whether this call created them.
type IssueResult struct {
	Tickets []TicketDTO `json:"tickets"`
	Created bool        `json:"created"`
}

// ToDTO maps a stored ticket to its API view.
func ToDTO(t models.Ticket) TicketDTO {
	return TicketDTO{
		ID:            t.ID,
		OrderID:       t.OrderID,
		UserID:        ownerFromColumn(t.OwnerUserID).wireID(),
		EventID:       t.EventID,
		Event:         t.Event,
		TicketType:    t.TicketType,
		QRCodeData:    t.Payload,
		Status:        t.Status,
		IsUsed:        t.IsUsed,
		UsedAt:        t.UsedAt,
		UsedBy:        t.UsedBy,
		PurchasePrice: t.PurchasePrice,
		CreatedAt:     t.CreatedAt,
	}
}

func toDTOs(rows []models.Ticket) []TicketDTO {
	out := make([]TicketDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToDTO(row))
	}
	return out
}
