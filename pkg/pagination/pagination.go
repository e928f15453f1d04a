package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any cursor query can request.
	MaxLimit = 100

	cursorPrefix = "seq:"
)

// Params holds cursor pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last row of the previous page by insertion sequence.
type Cursor struct {
	Seq int64
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer returns the normalization result plus one to detect the next page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor builds an opaque cursor string from the provided values.
func EncodeCursor(cursor Cursor) string {
	payload := cursorPrefix + strconv.FormatInt(cursor.Seq, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes the cursor string back into its components.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	raw, ok := strings.CutPrefix(string(decoded), cursorPrefix)
	if !ok {
		return nil, fmt.Errorf("invalid cursor format")
	}
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seq <= 0 {
		return nil, fmt.Errorf("invalid cursor sequence")
	}
	return &Cursor{Seq: seq}, nil
}

// Trim cuts a buffered result set (fetched with LimitWithBuffer) down to the
// page size and returns the cursor for the following page, or "" on the last one.
func Trim[T any](rows []T, limit int, seqOf func(T) int64) ([]T, string) {
	size := NormalizeLimit(limit)
	if len(rows) <= size {
		return rows, ""
	}
	rows = rows[:size]
	return rows, EncodeCursor(Cursor{Seq: seqOf(rows[size-1])})
}
