package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/strikeground/strikeground-backend/pkg/config"
	"github.com/strikeground/strikeground-backend/pkg/db/models"
	"github.com/strikeground/strikeground-backend/pkg/enums"
	"github.com/strikeground/strikeground-backend/pkg/outbox"
	"github.com/strikeground/strikeground-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	payloadBytes := mustMarshal(t, payloads.TicketAdmittedEvent{
		TicketID: "TKT-1",
		OrderID:  "ORD-1",
		EventID:  "E1",
		UsedAt:   time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC),
	})

	event := models.OutboxEvent{
		EventType:     enums.EventTicketAdmitted,
		AggregateType: enums.AggregateTicket,
		AggregateID:   "TKT-1",
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "tickets-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.TicketAdmittedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.TicketID != "TKT-1" || payload.OrderID != "ORD-1" {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
	if resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope missing occurred_at")
	}
}

func TestEventRegistryResolveUnknownEvent(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     "order_paid",
		AggregateType: enums.AggregateOrder,
		AggregateID:   "ORD-1",
		Payload:       mustEnvelope(t, []byte(`{"reason":"none"}`)),
	}

	_, err := reg.Resolve(event)
	assertNonRetryable(t, err)
}

func TestEventRegistryResolveAggregateMismatch(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventTicketsIssued,
		AggregateType: enums.AggregateTicket,
		AggregateID:   "ORD-1",
		Payload:       mustEnvelope(t, []byte(`{"order_id":"ORD-1"}`)),
	}

	_, err := reg.Resolve(event)
	assertNonRetryable(t, err)
}

func TestEventRegistryResolveMissingData(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventTicketExpired,
		AggregateType: enums.AggregateTicket,
		AggregateID:   "TKT-1",
		Payload:       mustEnvelope(t, []byte("null")),
	}
	_, err := reg.Resolve(event)
	assertNonRetryable(t, err)

	event.AggregateID = " "
	event.Payload = mustEnvelope(t, []byte(`{"ticket_id":"TKT-1"}`))
	_, err = reg.Resolve(event)
	assertNonRetryable(t, err)
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{}); err == nil {
		t.Fatalf("expected error without topic")
	}
	reg := newTestEventRegistry(t)
	if topics := reg.Topics(); len(topics) != 1 || topics[0] != "tickets-topic" {
		t.Fatalf("unexpected topics %v", topics)
	}
}

func assertNonRetryable(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %T", err)
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{TicketsTopic: "tickets-topic"})
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func mustEnvelope(t *testing.T, data []byte) json.RawMessage {
	t.Helper()
	return mustMarshal(t, outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
}
