package tickets

import (
	"encoding/json"
	"strings"
	"time"
)

// TimestampLayout is the millisecond UTC layout used in payload timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Payload is the signed content embedded in a ticket QR code.
type Payload struct {
	TicketID   string `json:"ticketId"`
	OrderID    string `json:"orderId"`
	UserID     string `json:"userId"`
	EventID    string `json:"eventId"`
	TicketType string `json:"ticketType"`
	Timestamp  string `json:"timestamp"`
	Signature  string `json:"signature"`
}

// Fields returns the signed portion of the payload.
func (p Payload) Fields() SignedFields {
	return SignedFields{
		TicketID:   p.TicketID,
		OrderID:    p.OrderID,
		UserID:     p.UserID,
		EventID:    p.EventID,
		TicketType: p.TicketType,
		Timestamp:  p.Timestamp,
	}
}

// EncodePayload serializes the payload with keys in declaration order.
func EncodePayload(p Payload) string {
	members := append(p.Fields().members(), jsonMember{"signature", p.Signature})
	return writeJSONObject(members)
}

var payloadKeys = [...]string{"ticketId", "orderId", "userId", "eventId", "ticketType", "timestamp", "signature"}

// DecodePayload parses a scanned payload. It returns nil for anything that is not
// a JSON object carrying all seven keys, spelled exactly, as non-empty strings.
func DecodePayload(raw string) *Payload {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed[0] != '{' {
		return nil
	}
	var object map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &object); err != nil {
		return nil
	}
	var values [len(payloadKeys)]string
	for i, key := range payloadKeys {
		value, ok := object[key]
		if !ok {
			return nil
		}
		if err := json.Unmarshal(value, &values[i]); err != nil || values[i] == "" {
			return nil
		}
	}
	return &Payload{
		TicketID:   values[0],
		OrderID:    values[1],
		UserID:     values[2],
		EventID:    values[3],
		TicketType: values[4],
		Timestamp:  values[5],
		Signature:  values[6],
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
