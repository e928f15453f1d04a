package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/strikeground/strikeground-backend/pkg/enums"
)

// OutboxEvent is one ticket domain event waiting for, or done with, Pub/Sub
// delivery. Rows are written in the same transaction as the ticket change.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:event_type_enum;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:aggregate_type_enum;not null"`
	AggregateID   string                    `gorm:"column:aggregate_id;type:text;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// Published reports whether delivery was confirmed.
func (e OutboxEvent) Published() bool { return e.PublishedAt != nil }

// LastAttempt reports whether one more failed publish reaches maxAttempts.
func (e OutboxEvent) LastAttempt(maxAttempts int) bool {
	return e.AttemptCount+1 >= maxAttempts
}
