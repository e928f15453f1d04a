package tickets

import (
	"strings"

	pkgerrors "github.com/strikeground/strikeground-backend/pkg/errors"
)

// GuestUserID is how a guest owner is rendered inside a payload.
const GuestUserID = "guest"

// Owner is either a guest or an authenticated user. The zero value is a guest.
type Owner struct {
	userID string
}

// Guest returns the guest owner.
func Guest() Owner {
	return Owner{}
}

// Authenticated returns an owner bound to a user id.
func Authenticated(userID string) (Owner, error) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return Owner{}, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if id == GuestUserID {
		return Owner{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is reserved")
	}
	return Owner{userID: id}, nil
}

func (o Owner) IsGuest() bool {
	return o.userID == ""
}

// UserID returns the user id and false for guests.
func (o Owner) UserID() (string, bool) {
	return o.userID, o.userID != ""
}

func (o Owner) wireID() string {
	if o.IsGuest() {
		return GuestUserID
	}
	return o.userID
}

func (o Owner) column() *string {
	if o.IsGuest() {
		return nil
	}
	id := o.userID
	return &id
}

func ownerFromColumn(value *string) Owner {
	if value == nil || *value == "" {
		return Guest()
	}
	return Owner{userID: *value}
}
