package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/strikeground/strikeground-backend/pkg/enums"
)

// AccessTokenPayload captures the data carried by an access token.
type AccessTokenPayload struct {
	UserID string
	Role   enums.Role
}

// AccessTokenClaims represents the typed JWT presented by clients.
type AccessTokenClaims struct {
	UserID string     `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}
