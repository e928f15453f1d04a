package tickets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/strikeground/strikeground-backend/pkg/logger"
	"github.com/strikeground/strikeground-backend/pkg/redis"
)

// DefaultHistoryLimit caps the validation log when no limit is configured.
const DefaultHistoryLimit = 50

type historyStore struct {
	store redis.ListStore
	key   string
	limit int64
	logg  *logger.Logger
}

// NewHistoryStore builds a validation log over a capped redis list, newest first.
func NewHistoryStore(store redis.ListStore, key string, limit int, logg *logger.Logger) (HistoryStore, error) {
	if store == nil {
		return nil, fmt.Errorf("list store required")
	}
	if key == "" {
		return nil, fmt.Errorf("history key required")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &historyStore{
		store: store,
		key:   key,
		limit: int64(limit),
		logg:  logg,
	}, nil
}

func (h *historyStore) Record(ctx context.Context, entry HistoryEntry) error {
	if entry.Version == 0 {
		entry.Version = HistoryEntryVersion
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	return h.store.PushCapped(ctx, h.key, string(raw), h.limit)
}

func (h *historyStore) List(ctx context.Context) ([]HistoryEntry, error) {
	rows, err := h.store.Range(ctx, h.key, 0, h.limit-1)
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(row), &entry); err != nil {
			if h.logg != nil {
				h.logg.Warn(h.logg.WithField(ctx, "history_key", h.key), "skipping undecodable validation entry")
			}
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (h *historyStore) Clear(ctx context.Context) error {
	return h.store.Del(ctx, h.key)
}
