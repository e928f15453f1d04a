package tickets

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/strikeground/strikeground-backend/pkg/db/models"
	"github.com/strikeground/strikeground-backend/pkg/enums"
	"github.com/strikeground/strikeground-backend/pkg/outbox"
	"github.com/strikeground/strikeground-backend/pkg/pagination"
	"github.com/strikeground/strikeground-backend/pkg/qr"
)

var (
	// ErrTicketNotFound is returned when a ticket id matches no stored row.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrTicketNotUsable is returned when a ticket exists but is no longer valid for entry.
	ErrTicketNotUsable = errors.New("ticket not usable")
	// ErrIssuanceClaimed is returned when another caller already claimed an order's issuance.
	ErrIssuanceClaimed = errors.New("ticket issuance already claimed")
)

// Repository persists tickets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, tickets []models.Ticket) error
	FindAll(ctx context.Context) ([]models.Ticket, error)
	FindByOrder(ctx context.Context, orderID string) ([]models.Ticket, error)
	FindByID(ctx context.Context, id string) (*models.Ticket, error)
	ListPage(ctx context.Context, ownerUserID *string, params pagination.Params) ([]models.Ticket, string, error)
	MarkUsed(ctx context.Context, id string, usedBy *string, at time.Time) (*models.Ticket, error)
	CountByStatus(ctx context.Context) (map[enums.TicketStatus]int64, error)
	ExpireBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Ticket, error)
	ClaimIssuance(ctx context.Context, orderID string, count int) error
}

// HistoryStore keeps the capped validation log.
type HistoryStore interface {
	Record(ctx context.Context, entry HistoryEntry) error
	List(ctx context.Context) ([]HistoryEntry, error)
	Clear(ctx context.Context) error
}

// QREncoder renders payload text as a PNG image.
type QREncoder interface {
	Encode(ctx context.Context, text string, opts qr.Options) ([]byte, error)
	DataURL(ctx context.Context, text string, opts qr.Options) (string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
