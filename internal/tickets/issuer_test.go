package tickets

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strikeground/strikeground-backend/pkg/enums"
	pkgerrors "github.com/strikeground/strikeground-backend/pkg/errors"
)

func TestIssueOneTicketPerUnit(t *testing.T) {
	client := setupTicketsDB(t)
	repo := NewRepository(client.DB())
	issuer, err := NewIssuer(testSigner(t))
	require.NoError(t, err)
	issuer.now = func() time.Time { return time.Date(2026, 2, 1, 10, 30, 0, 123000000, time.UTC) }

	issued, err := issuer.Issue(context.Background(), repo, guestOrder())
	require.NoError(t, err)
	require.Len(t, issued, 5)

	ids := map[string]struct{}{}
	for i, ticket := range issued {
		ids[ticket.ID] = struct{}{}
		assert.Equal(t, "ORD-1", ticket.OrderID)
		assert.Nil(t, ticket.OwnerUserID)
		assert.Equal(t, enums.TicketStatusValid, ticket.Status)
		assert.False(t, ticket.IsUsed)
		assert.Nil(t, ticket.UsedAt)
		assert.Equal(t, string(enums.SignatureLegacyChecksum), ticket.SignatureAlg)

		payload := DecodePayload(ticket.Payload)
		require.NotNil(t, payload)
		assert.Equal(t, ticket.ID, payload.TicketID)
		assert.Equal(t, GuestUserID, payload.UserID)
		assert.Equal(t, "2026-02-01T10:30:00.123Z", payload.Timestamp)
		assert.True(t, testSigner(t).Verify(payload.Fields(), payload.Signature))

		if i < 2 {
			assert.Equal(t, enums.TicketTypeVIP, ticket.TicketType)
			assert.Equal(t, "E1", ticket.EventID)
		} else {
			assert.Equal(t, enums.TicketTypeGeneral, ticket.TicketType)
			assert.Equal(t, "E2", ticket.EventID)
			assert.True(t, ticket.PurchasePrice.Equal(decimal.RequireFromString("120")))
		}
	}
	assert.Len(t, ids, 5)

	stored, err := repo.FindByOrder(context.Background(), "ORD-1")
	require.NoError(t, err)
	require.Len(t, stored, 5)
	for i := range stored {
		assert.Equal(t, issued[i].ID, stored[i].ID)
		assert.Equal(t, issued[i].Payload, stored[i].Payload)
	}
}

func TestIssueAuthenticatedOwner(t *testing.T) {
	client := setupTicketsDB(t)
	issuer, err := NewIssuer(testSigner(t))
	require.NoError(t, err)

	order := guestOrder()
	order.Owner = mustAuthenticated(t, "user-42")
	issued, err := issuer.Issue(context.Background(), NewRepository(client.DB()), order)
	require.NoError(t, err)
	require.NotEmpty(t, issued)
	require.NotNil(t, issued[0].OwnerUserID)
	assert.Equal(t, "user-42", *issued[0].OwnerUserID)
	assert.Equal(t, "user-42", DecodePayload(issued[0].Payload).UserID)
}

func TestIssueEmptyOrderWritesNothing(t *testing.T) {
	client := setupTicketsDB(t)
	repo := NewRepository(client.DB())
	issuer, err := NewIssuer(testSigner(t))
	require.NoError(t, err)

	issued, err := issuer.Issue(context.Background(), repo, Order{ID: "ORD-EMPTY"})
	require.NoError(t, err)
	assert.Empty(t, issued)

	all, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestIssueIsNotIdempotent(t *testing.T) {
	client := setupTicketsDB(t)
	repo := NewRepository(client.DB())
	issuer, err := NewIssuer(testSigner(t))
	require.NoError(t, err)

	_, err = issuer.Issue(context.Background(), repo, guestOrder())
	require.NoError(t, err)
	_, err = issuer.Issue(context.Background(), repo, guestOrder())
	require.NoError(t, err)

	stored, err := repo.FindByOrder(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Len(t, stored, 10)
}

func TestIssueRejectsInvalidOrders(t *testing.T) {
	issuer, err := NewIssuer(testSigner(t))
	require.NoError(t, err)

	base := guestOrder()
	cases := map[string]func(o *Order){
		"missing id":     func(o *Order) { o.ID = " " },
		"zero quantity":  func(o *Order) { o.Items[0].Quantity = 0 },
		"unknown type":   func(o *Order) { o.Items[1].TicketType = "balcony" },
		"negative price": func(o *Order) { o.Items[0].PricePerTicket = decimal.NewFromInt(-1) },
		"missing event":  func(o *Order) { o.Items[0].Event.ID = "" },
		"reserved owner": func(o *Order) { o.Owner = Owner{userID: GuestUserID} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			order := base
			order.Items = append([]OrderItem(nil), base.Items...)
			mutate(&order)
			_, err := issuer.Issue(context.Background(), nil, order)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestParseEventDate(t *testing.T) {
	got := parseEventDate("2026-03-01T20:00:00-05:00")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC), *got)

	got = parseEventDate("2026-04-12")
	require.NotNil(t, got)
	assert.Equal(t, 12, got.Day())

	assert.Nil(t, parseEventDate("next saturday"))
	assert.Nil(t, parseEventDate(""))
}
