package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/strikeground/strikeground-backend/internal/tickets"
	"github.com/strikeground/strikeground-backend/pkg/enums"
	"github.com/strikeground/strikeground-backend/pkg/logger"
	"github.com/strikeground/strikeground-backend/pkg/metrics"
	"github.com/strikeground/strikeground-backend/pkg/outbox"
	"github.com/strikeground/strikeground-backend/pkg/outbox/payloads"
)

const (
	defaultExpiryGrace     = 6 * time.Hour
	defaultExpiryBatchSize = 500
	maxExpiryBatches       = 100
)

// TicketExpiryJobParams configures the ticket expiry sweep.
type TicketExpiryJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Repo      tickets.Repository
	Outbox    outboxEmitter
	Metrics   *metrics.TicketMetrics
	Grace     time.Duration
	BatchSize int
}

// NewTicketExpiryJob builds the job that moves unused tickets past their event
// date plus grace into the expired state.
func NewTicketExpiryJob(params TicketExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("ticket repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	grace := params.Grace
	if grace < 0 {
		grace = defaultExpiryGrace
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &ticketExpiryJob{
		logg:    params.Logger,
		db:      params.DB,
		repo:    params.Repo,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		grace:   grace,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type ticketExpiryJob struct {
	logg    *logger.Logger
	db      txRunner
	repo    tickets.Repository
	outbox  outboxEmitter
	metrics *metrics.TicketMetrics
	grace   time.Duration
	batch   int
	now     func() time.Time
}

func (j *ticketExpiryJob) Name() string { return "ticket-expiry" }

func (j *ticketExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.grace)

	total := 0
	for i := 0; i < maxExpiryBatches; i++ {
		expired, err := j.expireBatch(ctx, cutoff, now)
		if err != nil {
			return fmt.Errorf("expire tickets (batch %d): %w", i, err)
		}
		total += expired
		j.metrics.AddExpired(expired)
		if expired < j.batch {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":          cutoff,
		"grace":           j.grace.String(),
		"tickets_expired": total,
	})
	j.logg.Info(logCtx, "ticket expiry sweep complete")
	return nil
}

func (j *ticketExpiryJob) expireBatch(ctx context.Context, cutoff, now time.Time) (int, error) {
	count := 0
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.WithTx(tx).ExpireBefore(ctx, cutoff, j.batch)
		if err != nil {
			return err
		}
		for _, row := range rows {
			event := outbox.DomainEvent{
				EventType:     enums.EventTicketExpired,
				AggregateType: enums.AggregateTicket,
				AggregateID:   row.ID,
				Data: payloads.TicketExpiredEvent{
					TicketID:  row.ID,
					OrderID:   row.OrderID,
					EventID:   row.EventID,
					EventDate: row.EventDate,
					ExpiredAt: now,
				},
				OccurredAt: now,
			}
			if err := j.outbox.Emit(ctx, tx, event); err != nil {
				return fmt.Errorf("emit %s for %s: %w", enums.EventTicketExpired, row.ID, err)
			}
		}
		count = len(rows)
		return nil
	})
	return count, err
}
