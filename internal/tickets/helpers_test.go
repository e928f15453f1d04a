package tickets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/strikeground/strikeground-backend/pkg/db"
	"github.com/strikeground/strikeground-backend/pkg/db/models"
	"github.com/strikeground/strikeground-backend/pkg/enums"
	"github.com/strikeground/strikeground-backend/pkg/logger"
	"github.com/strikeground/strikeground-backend/pkg/migrate"
	"github.com/strikeground/strikeground-backend/pkg/outbox"
	"github.com/strikeground/strikeground-backend/pkg/qr"
)

func setupTicketsDB(t *testing.T) *db.Client {
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

func fightNight() models.EventSnapshot {
	return models.EventSnapshot{
		ID:        "E1",
		Title:     "Fight Night 12",
		Date:      "2026-03-01T20:00:00Z",
		Location:  "Arena Norte",
		MainFight: "Ruiz vs Okafor",
		Price:     decimal.RequireFromString("50.00"),
		Category:  "mma",
	}
}

func titleBout() models.EventSnapshot {
	return models.EventSnapshot{
		ID:       "E2",
		Title:    "Title Bout",
		Date:     "2026-04-12",
		Location: "Coliseo Sur",
		Price:    decimal.RequireFromString("120.00"),
	}
}

func guestOrder() Order {
	return Order{
		ID:    "ORD-1",
		Owner: Guest(),
		Items: []OrderItem{
			{Event: fightNight(), TicketType: enums.TicketTypeVIP, Quantity: 2, PricePerTicket: decimal.RequireFromString("50.00")},
			{Event: titleBout(), TicketType: enums.TicketTypeGeneral, Quantity: 3, PricePerTicket: decimal.RequireFromString("120.00")},
		},
	}
}

func mustAuthenticated(t *testing.T, id string) Owner {
	t.Helper()
	owner, err := Authenticated(id)
	require.NoError(t, err)
	return owner
}

func testSigner(t *testing.T) Signer {
	t.Helper()
	signer, err := NewSigner(enums.SignatureLegacyChecksum, DefaultSigningSecret)
	require.NoError(t, err)
	return signer
}

// memoryList is an in-process stand-in for the redis list commands.
type memoryList struct {
	mu      sync.Mutex
	lists   map[string][]string
	pushErr error
}

func newMemoryList() *memoryList {
	return &memoryList{lists: map[string][]string{}}
}

func (m *memoryList) PushCapped(_ context.Context, key string, value string, limit int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pushErr != nil {
		return m.pushErr
	}
	list := append([]string{value}, m.lists[key]...)
	if int64(len(list)) > limit {
		list = list[:limit]
	}
	m.lists[key] = list
	return nil
}

func (m *memoryList) Range(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.lists[key]
	if start >= int64(len(list)) {
		return []string{}, nil
	}
	if stop >= int64(len(list)) || stop < 0 {
		stop = int64(len(list)) - 1
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

func (m *memoryList) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.lists, key)
	}
	return nil
}

type serviceFixture struct {
	svc     Service
	repo    Repository
	client  *db.Client
	list    *memoryList
	history HistoryStore
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	client := setupTicketsDB(t)
	repo := NewRepository(client.DB())
	list := newMemoryList()
	history, err := NewHistoryStore(list, "sg:tickets:validations", DefaultHistoryLimit, logger.Nop())
	require.NoError(t, err)
	encoder, err := qr.NewEncoder(qr.DefaultOptions())
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:              repo,
		TransactionRunner: client,
		Outbox:            outbox.NewService(outbox.NewRepository(client.DB()), logger.Nop()),
		Signer:            testSigner(t),
		History:           history,
		QR:                encoder,
		QROptions:         qr.DefaultOptions(),
		Logger:            logger.Nop(),
	})
	require.NoError(t, err)
	return serviceFixture{svc: svc, repo: repo, client: client, list: list, history: history}
}

func admin() Principal {
	return Principal{UserID: "door-admin", Role: enums.RoleAdmin}
}

func customer(id string) Principal {
	return Principal{UserID: id, Role: enums.RoleCustomer}
}

func outboxRows(t *testing.T, client *db.Client) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, client.DB().Order("created_at ASC").Find(&rows).Error)
	return rows
}
