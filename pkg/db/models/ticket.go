package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/strikeground/strikeground-backend/pkg/enums"
)

// CurrentPayloadVersion tags the persisted ticket layout.
const CurrentPayloadVersion = 1

// Ticket is a single admission issued for one unit of an order item.
type Ticket struct {
	Seq            int64              `gorm:"column:seq;primaryKey;autoIncrement"`
	ID             string             `gorm:"column:id;not null;uniqueIndex"`
	OrderID        string             `gorm:"column:order_id;not null;index"`
	OwnerUserID    *string            `gorm:"column:owner_user_id;index"`
	EventID        string             `gorm:"column:event_id;not null"`
	Event          EventSnapshot      `gorm:"column:event_snapshot;type:jsonb;not null"`
	EventDate      *time.Time         `gorm:"column:event_date"`
	TicketType     enums.TicketType   `gorm:"column:ticket_type;type:ticket_type;not null"`
	Payload        string             `gorm:"column:payload;type:text;not null"`
	PayloadVersion int                `gorm:"column:payload_version;not null;default:1"`
	SignatureAlg   string             `gorm:"column:signature_alg;not null"`
	Status         enums.TicketStatus `gorm:"column:status;type:ticket_status;not null"`
	IsUsed         bool               `gorm:"column:is_used;not null;default:false"`
	UsedAt         *time.Time         `gorm:"column:used_at"`
	UsedBy         *string            `gorm:"column:used_by"`
	PurchasePrice  decimal.Decimal    `gorm:"column:purchase_price;type:numeric(12,2);not null"`
	CreatedAt      time.Time          `gorm:"column:created_at"`
	UpdatedAt      time.Time          `gorm:"column:updated_at"`
}

func (Ticket) TableName() string { return "tickets" }

// EventSnapshot is the copy of the purchased event taken at issuance time.
type EventSnapshot struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Date      string          `json:"date"`
	Location  string          `json:"location"`
	MainFight string          `json:"mainFight,omitempty"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category,omitempty"`
}

// Value stores the snapshot as JSON text so it works for jsonb and sqlite alike.
func (e EventSnapshot) Value() (driver.Value, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (e *EventSnapshot) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*e = EventSnapshot{}
		return nil
	case []byte:
		return json.Unmarshal(v, e)
	case string:
		return json.Unmarshal([]byte(v), e)
	default:
		return fmt.Errorf("unsupported event snapshot type %T", src)
	}
}

// TicketIssuance marks an order whose tickets have been issued.
type TicketIssuance struct {
	OrderID     string    `gorm:"column:order_id;primaryKey"`
	TicketCount int       `gorm:"column:ticket_count;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (TicketIssuance) TableName() string { return "ticket_issuances" }
