package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/strikeground/strikeground-backend/pkg/errors"
	"github.com/strikeground/strikeground-backend/pkg/pagination"
)

// ParseQueryInt reads an optional bounded integer query parameter.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").
			WithDetails(map[string]any{"field": key, "value": raw})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParsePageParams reads limit and cursor for ticket listings. A malformed
// cursor is rejected here so services only see cursors they can decode.
func ParsePageParams(r *http.Request) (pagination.Params, error) {
	limit, err := ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))
	if _, err := pagination.ParseCursor(cursor); err != nil {
		return pagination.Params{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]any{"field": "cursor"})
	}
	return pagination.Params{Limit: limit, Cursor: cursor}, nil
}
