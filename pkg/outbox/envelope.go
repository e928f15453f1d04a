package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// EnvelopeVersion is stamped on events that do not set their own version.
const EnvelopeVersion = 1

// EnvelopeSource tags every envelope written by this service.
const EnvelopeSource = "strikeground-backend"

var errEmptyData = errors.New("envelope data is empty")

// ActorRef is the principal that caused the event, when there is one.
type ActorRef struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
}

// PayloadEnvelope wraps event data inside outbox_events.payload and on the wire.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType,omitempty"`
	Source     string          `json:"source,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// HasData reports whether the envelope carries a non-null payload.
func (e PayloadEnvelope) HasData() bool {
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// DecodeData unmarshals the envelope payload into dest.
func (e PayloadEnvelope) DecodeData(dest any) error {
	if !e.HasData() {
		return errEmptyData
	}
	return json.Unmarshal(e.Data, dest)
}
