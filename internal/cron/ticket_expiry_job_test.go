package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/strikeground/strikeground-backend/internal/tickets"
	"github.com/strikeground/strikeground-backend/pkg/db"
	"github.com/strikeground/strikeground-backend/pkg/db/models"
	"github.com/strikeground/strikeground-backend/pkg/enums"
	"github.com/strikeground/strikeground-backend/pkg/logger"
	"github.com/strikeground/strikeground-backend/pkg/migrate"
	"github.com/strikeground/strikeground-backend/pkg/outbox"
)

func setupCronDB(t *testing.T) *db.Client {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	client := db.Wrap(conn)
	require.NoError(t, migrate.AutoMigrateModels(client))
	return client
}

func issueCardOrder(t *testing.T, repo tickets.Repository) []models.Ticket {
	t.Helper()
	signer, err := tickets.NewSigner(enums.SignatureLegacyChecksum, tickets.DefaultSigningSecret)
	require.NoError(t, err)
	issuer, err := tickets.NewIssuer(signer)
	require.NoError(t, err)

	order := tickets.Order{
		ID:    "ORD-CARD",
		Owner: tickets.Guest(),
		Items: []tickets.OrderItem{
			{
				Event:          models.EventSnapshot{ID: "E1", Title: "Fight Night", Date: "2026-03-01T20:00:00Z"},
				TicketType:     enums.TicketTypeGeneral,
				Quantity:       3,
				PricePerTicket: decimal.RequireFromString("40.00"),
			},
			{
				Event:          models.EventSnapshot{ID: "E2", Title: "Title Bout", Date: "2026-04-12"},
				TicketType:     enums.TicketTypeRingside,
				Quantity:       1,
				PricePerTicket: decimal.RequireFromString("300.00"),
			},
			{
				Event:          models.EventSnapshot{ID: "E3", Title: "Undated Open Workout", Date: "soon"},
				TicketType:     enums.TicketTypeGeneral,
				Quantity:       1,
				PricePerTicket: decimal.Zero,
			},
		},
	}
	issued, err := issuer.Issue(context.Background(), repo, order)
	require.NoError(t, err)
	return issued
}

func newExpiryJob(t *testing.T, client *db.Client, batch int) *ticketExpiryJob {
	t.Helper()
	logg := logger.Nop()
	jobIface, err := NewTicketExpiryJob(TicketExpiryJobParams{
		Logger:    logg,
		DB:        client,
		Repo:      tickets.NewRepository(client.DB()),
		Outbox:    outbox.NewService(outbox.NewRepository(client.DB()), logg),
		Grace:     6 * time.Hour,
		BatchSize: batch,
	})
	require.NoError(t, err)
	job, ok := jobIface.(*ticketExpiryJob)
	require.True(t, ok)
	return job
}

func TestTicketExpiryJobExpiresPastEventsInBatches(t *testing.T) {
	ctx := context.Background()
	client := setupCronDB(t)
	repo := tickets.NewRepository(client.DB())
	issued := issueCardOrder(t, repo)

	// one E1 ticket was already scanned at the door
	_, err := repo.MarkUsed(ctx, issued[0].ID, nil, time.Date(2026, 3, 1, 19, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	job := newExpiryJob(t, client, 1)
	job.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, job.Run(ctx))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[enums.TicketStatusExpired])
	assert.EqualValues(t, 1, counts[enums.TicketStatusUsed])
	assert.EqualValues(t, 2, counts[enums.TicketStatusValid])

	var events []models.OutboxEvent
	require.NoError(t, client.DB().Where("event_type = ?", enums.EventTicketExpired).Find(&events).Error)
	require.Len(t, events, 2)
	for _, event := range events {
		assert.Equal(t, enums.AggregateTicket, event.AggregateType)
		assert.Contains(t, []string{issued[1].ID, issued[2].ID}, event.AggregateID)
	}

	// a second sweep is a no-op
	require.NoError(t, job.Run(ctx))
	require.NoError(t, client.DB().Where("event_type = ?", enums.EventTicketExpired).Find(&events).Error)
	assert.Len(t, events, 2)
}

func TestTicketExpiryJobRespectsGrace(t *testing.T) {
	ctx := context.Background()
	client := setupCronDB(t)
	repo := tickets.NewRepository(client.DB())
	issueCardOrder(t, repo)

	job := newExpiryJob(t, client, 10)
	// two hours after the E1 start, still inside the grace window
	job.now = func() time.Time { return time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC) }
	require.NoError(t, job.Run(ctx))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[enums.TicketStatusExpired])
}

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

func TestTicketExpiryJobRollsBackOnEmitFailure(t *testing.T) {
	ctx := context.Background()
	client := setupCronDB(t)
	repo := tickets.NewRepository(client.DB())
	issueCardOrder(t, repo)

	job := newExpiryJob(t, client, 10)
	job.outbox = failingEmitter{}
	job.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	require.Error(t, job.Run(ctx))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[enums.TicketStatusExpired])
	assert.EqualValues(t, 5, counts[enums.TicketStatusValid])
}

func TestNewTicketExpiryJobRequiresDependencies(t *testing.T) {
	_, err := NewTicketExpiryJob(TicketExpiryJobParams{})
	require.Error(t, err)
}
