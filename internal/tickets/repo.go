package tickets

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/strikeground/strikeground-backend/pkg/db"
	"github.com/strikeground/strikeground-backend/pkg/db/models"
	"github.com/strikeground/strikeground-backend/pkg/enums"
	"github.com/strikeground/strikeground-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a tickets repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&tickets).Error
}

func (r *repository) FindAll(ctx context.Context) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	if err := r.db.WithContext(ctx).Order("seq ASC").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID string) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("seq ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListPage returns tickets in issue order. A nil owner lists every ticket.
func (r *repository) ListPage(ctx context.Context, ownerUserID *string, params pagination.Params) ([]models.Ticket, string, error) {
	query := r.db.WithContext(ctx).Model(&models.Ticket{})
	if ownerUserID != nil {
		query = query.Where("owner_user_id = ?", *ownerUserID)
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where("seq > ?", cursor.Seq)
	}

	tickets := []models.Ticket{}
	if err := query.Order("seq ASC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&tickets).Error; err != nil {
		return nil, "", err
	}
	page, next := pagination.Trim(tickets, params.Limit, func(t models.Ticket) int64 { return t.Seq })
	return page, next, nil
}

// MarkUsed flips a valid ticket to used in a single conditional update.
func (r *repository) MarkUsed(ctx context.Context, id string, usedBy *string, at time.Time) (*models.Ticket, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND status = ? AND is_used = ?", id, enums.TicketStatusValid, false).
		Updates(map[string]any{
			"status":     enums.TicketStatusUsed,
			"is_used":    true,
			"used_at":    at,
			"used_by":    usedBy,
			"updated_at": at,
		})
	if result.Error != nil {
		return nil, result.Error
	}

	ticket, err := r.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if result.RowsAffected == 0 {
		return ticket, ErrTicketNotUsable
	}
	return ticket, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[enums.TicketStatus]int64, error) {
	var rows []struct {
		Status enums.TicketStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[enums.TicketStatus]int64, len(rows))
	for _, status := range enums.TicketStatuses() {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// ExpireBefore moves up to limit valid, unused tickets whose event date is before
// cutoff to expired and returns them.
func (r *repository) ExpireBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Ticket, error) {
	if limit <= 0 {
		return []models.Ticket{}, nil
	}

	candidates := []models.Ticket{}
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND is_used = ? AND event_date IS NOT NULL AND event_date < ?", enums.TicketStatusValid, false, cutoff).
		Order("seq ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return candidates, nil
	}

	ids := make([]string, 0, len(candidates))
	for _, t := range candidates {
		ids = append(ids, t.ID)
	}
	now := time.Now().UTC()
	err = r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id IN ? AND status = ? AND is_used = ?", ids, enums.TicketStatusValid, false).
		Updates(map[string]any{
			"status":     enums.TicketStatusExpired,
			"updated_at": now,
		}).Error
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		candidates[i].Status = enums.TicketStatusExpired
		candidates[i].UpdatedAt = now
	}
	return candidates, nil
}

// ClaimIssuance records that tickets for orderID are being issued. A second claim
// for the same order returns ErrIssuanceClaimed.
func (r *repository) ClaimIssuance(ctx context.Context, orderID string, count int) error {
	marker := models.TicketIssuance{OrderID: orderID, TicketCount: count}
	err := r.db.WithContext(ctx).Create(&marker).Error
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrIssuanceClaimed
		}
		return err
	}
	return nil
}
