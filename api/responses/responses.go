package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/strikeground/strikeground-backend/pkg/errors"
	"github.com/strikeground/strikeground-backend/pkg/logger"
	"github.com/strikeground/strikeground-backend/pkg/types"
)

// requestIDHeader is set on the response by the RequestID middleware before handlers run.
const requestIDHeader = "X-Request-Id"

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// callerMessageCodes surface the typed message instead of the generic public one.
var callerMessageCodes = map[pkgerrors.Code]bool{
	pkgerrors.CodeValidation:    true,
	pkgerrors.CodeTooLarge:      true,
	pkgerrors.CodeForbidden:     true,
	pkgerrors.CodeUnauthorized:  true,
	pkgerrors.CodeNotFound:      true,
	pkgerrors.CodeConflict:      true,
	pkgerrors.CodeStateConflict: true,
	pkgerrors.CodeIdempotency:   true,
}

// dependencyRetryAfter is advertised on 503 responses.
const dependencyRetryAfter = "5"

// WriteError maps err onto the error envelope. Untyped errors become INTERNAL_ERROR.
// Client errors log at warn; server errors log at error with the driver dump.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if m := typed.Message(); m != "" && callerMessageCodes[typed.Code()] {
		msg = m
	}

	payload := types.ErrorEnvelope{
		Error: types.APIError{
			Code:      string(typed.Code()),
			Message:   msg,
			Retryable: meta.Retryable,
			RequestID: w.Header().Get(requestIDHeader),
		},
	}
	if meta.DetailsAllowed {
		payload.Error.Details = typed.Details()
	}
	if meta.HTTPStatus == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", dependencyRetryAfter)
	}

	if logg != nil {
		logError(ctx, logg, err, meta.HTTPStatus)
	}
	writeJSON(w, meta.HTTPStatus, payload)
}

func logError(ctx context.Context, logg *logger.Logger, err error, status int) {
	dump := pkgerrors.Dump(err)
	fields := map[string]any{
		"error":       dump.TopMessage,
		"error_code":  dump.Code,
		"error_chain": dump.Chain,
		"retryable":   dump.Retryable,
		"status":      status,
	}
	if dump.Driver != "" {
		fields["db_driver"] = dump.Driver
		fields["pg_code"] = dump.PGCode
		fields["pg_detail"] = dump.PGDetail
		fields["pg_message"] = dump.PGMessage
		fields["pg_table"] = dump.PGTable
		fields["pg_column"] = dump.PGColumn
		fields["pg_constraint"] = dump.PGConstraint
	}
	ctx = logg.WithFields(ctx, fields)

	if status < http.StatusInternalServerError {
		logg.Warn(ctx, "request.rejected")
		return
	}
	logg.Error(ctx, "request.error", err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
