package enums

import (
	"fmt"
	"strings"
)

// TicketType maps to the ticket_type enum in Postgres.
type TicketType string

const (
	TicketTypeGeneral  TicketType = "general"
	TicketTypeVIP      TicketType = "vip"
	TicketTypeRingside TicketType = "ringside"
)

var validTicketTypes = []TicketType{
	TicketTypeGeneral,
	TicketTypeVIP,
	TicketTypeRingside,
}

// String implements fmt.Stringer.
func (t TicketType) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical ticket_type enum.
func (t TicketType) IsValid() bool {
	for _, candidate := range validTicketTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTicketType converts raw input into TicketType.
func ParseTicketType(value string) (TicketType, error) {
	for _, candidate := range validTicketTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket type %q", value)
}

// TicketStatus maps to the ticket_status enum in Postgres.
type TicketStatus string

const (
	TicketStatusValid     TicketStatus = "valid"
	TicketStatusUsed      TicketStatus = "used"
	TicketStatusExpired   TicketStatus = "expired"
	TicketStatusCancelled TicketStatus = "cancelled"
)

var validTicketStatuses = []TicketStatus{
	TicketStatusValid,
	TicketStatusUsed,
	TicketStatusExpired,
	TicketStatusCancelled,
}

// TicketStatuses returns every known status in declaration order.
func TicketStatuses() []TicketStatus {
	out := make([]TicketStatus, len(validTicketStatuses))
	copy(out, validTicketStatuses)
	return out
}

// String implements fmt.Stringer.
func (s TicketStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical ticket_status enum.
func (s TicketStatus) IsValid() bool {
	for _, candidate := range validTicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTicketStatus converts raw input into TicketStatus.
func ParseTicketStatus(value string) (TicketStatus, error) {
	for _, candidate := range validTicketStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket status %q", value)
}

// ValidationReason classifies a failed scan.
type ValidationReason string

const (
	ReasonInvalidFormat    ValidationReason = "INVALID_FORMAT"
	ReasonInvalidSignature ValidationReason = "INVALID_SIGNATURE"
	ReasonNotFound         ValidationReason = "NOT_FOUND"
	ReasonAlreadyUsed      ValidationReason = "ALREADY_USED"
)

// StatusReason builds the STATUS_<STATUS> reason for a non-valid ticket status.
func StatusReason(status TicketStatus) ValidationReason {
	return ValidationReason("STATUS_" + strings.ToUpper(string(status)))
}

// SignatureAlgorithm names a ticket payload signer.
type SignatureAlgorithm string

const (
	SignatureLegacyChecksum SignatureAlgorithm = "legacy-checksum"
	SignatureHMACSHA256     SignatureAlgorithm = "hmac-sha256"
	SignatureBlake2bMAC     SignatureAlgorithm = "blake2b-mac"
)

// ParseSignatureAlgorithm converts raw config input into SignatureAlgorithm.
func ParseSignatureAlgorithm(value string) (SignatureAlgorithm, error) {
	switch SignatureAlgorithm(strings.ToLower(strings.TrimSpace(value))) {
	case "", SignatureLegacyChecksum:
		return SignatureLegacyChecksum, nil
	case SignatureHMACSHA256:
		return SignatureHMACSHA256, nil
	case SignatureBlake2bMAC:
		return SignatureBlake2bMAC, nil
	}
	return "", fmt.Errorf("invalid signature algorithm %q", value)
}

// Role is the principal role carried in access tokens.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// IsValid reports whether the role is known.
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleAdmin
}
