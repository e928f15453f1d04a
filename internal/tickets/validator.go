package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/strikeground/strikeground-backend/pkg/enums"
	pkgerrors "github.com/strikeground/strikeground-backend/pkg/errors"
)

const (
	msgInvalidFormat    = "invalid or corrupted QR code"
	msgInvalidSignature = "invalid ticket: security signature mismatch"
	msgNotFound         = "ticket not found"
	msgValid            = "ticket valid"
)

// Validator checks scanned payloads against the signer and the store. It never writes.
type Validator struct {
	signer Signer
	repo   Repository
}

// NewValidator builds a validator.
func NewValidator(signer Signer, repo Repository) (*Validator, error) {
	if signer == nil {
		return nil, fmt.Errorf("signer required")
	}
	if repo == nil {
		return nil, fmt.Errorf("tickets repository required")
	}
	return &Validator{signer: signer, repo: repo}, nil
}

// Validate classifies a raw scanned payload.
func (v *Validator) Validate(ctx context.Context, raw string) (ValidationOutcome, error) {
	outcome, _, err := v.evaluate(ctx, raw)
	return outcome, err
}

// evaluate also returns the decoded payload, nil when decoding failed.
func (v *Validator) evaluate(ctx context.Context, raw string) (ValidationOutcome, *Payload, error) {
	payload := DecodePayload(raw)
	if payload == nil {
		return rejected(enums.ReasonInvalidFormat, msgInvalidFormat, nil), nil, nil
	}
	if !v.signer.Verify(payload.Fields(), payload.Signature) {
		return rejected(enums.ReasonInvalidSignature, msgInvalidSignature, nil), payload, nil
	}

	ticket, err := v.repo.FindByID(ctx, payload.TicketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rejected(enums.ReasonNotFound, msgNotFound, nil), payload, nil
		}
		return ValidationOutcome{}, payload, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup ticket")
	}

	dto := ToDTO(*ticket)
	if ticket.IsUsed {
		return rejected(enums.ReasonAlreadyUsed, alreadyUsedMessage(ticket.UsedAt), &dto), payload, nil
	}
	if ticket.Status != enums.TicketStatusValid {
		return rejected(enums.StatusReason(ticket.Status), "ticket "+strings.ToLower(ticket.Status.String()), &dto), payload, nil
	}
	return ValidationOutcome{IsValid: true, Message: msgValid, Ticket: &dto}, payload, nil
}

func rejected(reason enums.ValidationReason, message string, ticket *TicketDTO) ValidationOutcome {
	return ValidationOutcome{
		IsValid: false,
		Message: message,
		Reason:  reason,
		Ticket:  ticket,
	}
}

func alreadyUsedMessage(usedAt *time.Time) string {
	if usedAt == nil {
		return "ticket already used"
	}
	return "ticket already used at " + usedAt.UTC().Format(time.RFC3339)
}
