package payloads

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/strikeground/strikeground-backend/pkg/enums"
)

// IssuedTicket summarizes one ticket inside a TicketsIssuedEvent.
type IssuedTicket struct {
	TicketID      string           `json:"ticket_id"`
	EventID       string           `json:"event_id"`
	TicketType    enums.TicketType `json:"ticket_type"`
	PurchasePrice decimal.Decimal  `json:"purchase_price"`
}

// TicketsIssuedEvent is emitted once per order when its tickets are created.
type TicketsIssuedEvent struct {
	OrderID     string         `json:"order_id"`
	OwnerUserID *string        `json:"owner_user_id,omitempty"`
	Tickets     []IssuedTicket `json:"tickets"`
	IssuedAt    time.Time      `json:"issued_at"`
}

// TicketAdmittedEvent is emitted when a ticket is consumed at the door.
type TicketAdmittedEvent struct {
	TicketID string    `json:"ticket_id"`
	OrderID  string    `json:"order_id"`
	EventID  string    `json:"event_id"`
	UsedAt   time.Time `json:"used_at"`
	UsedBy   string    `json:"used_by,omitempty"`
}

// TicketExpiredEvent is emitted by the expiry job.
type TicketExpiredEvent struct {
	TicketID  string     `json:"ticket_id"`
	OrderID   string     `json:"order_id"`
	EventID   string     `json:"event_id"`
	EventDate *time.Time `json:"event_date,omitempty"`
	ExpiredAt time.Time  `json:"expired_at"`
}
