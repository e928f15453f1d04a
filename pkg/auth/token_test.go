package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/strikeground/strikeground-backend/pkg/config"
	"github.com/strikeground/strikeground-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "strikeground"}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, 30*time.Minute, AccessTokenPayload{UserID: "user-42", Role: enums.RoleAdmin})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != "user-42" {
		t.Fatalf("expected user_id user-42, got %s", claims.UserID)
	}
	if claims.Role != enums.RoleAdmin {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(30 * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), 10*time.Minute, AccessTokenPayload{UserID: "user-1", Role: enums.RoleCustomer})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}

	other := cfg
	other.Secret = "another-secret"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected error for a token signed with a different secret")
	}
}

func TestParseAccessTokenWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(config.JWTConfig{Secret: cfg.Secret, Issuer: "elsewhere"}, time.Now(), time.Minute, AccessTokenPayload{UserID: "user-1", Role: enums.RoleCustomer})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected issuer mismatch")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), 15*time.Minute, AccessTokenPayload{UserID: "user-1", Role: enums.RoleCustomer})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMintAccessTokenRejectsBadPayload(t *testing.T) {
	cfg := testJWTConfig()
	if _, err := MintAccessToken(cfg, time.Now(), time.Minute, AccessTokenPayload{UserID: "user-1", Role: "owner"}); err == nil {
		t.Fatal("expected invalid role error")
	}
	if _, err := MintAccessToken(cfg, time.Now(), time.Minute, AccessTokenPayload{Role: enums.RoleAdmin}); err == nil {
		t.Fatal("expected missing user error")
	}
	if _, err := MintAccessToken(cfg, time.Now(), 0, AccessTokenPayload{UserID: "user-1", Role: enums.RoleAdmin}); err == nil {
		t.Fatal("expected ttl error")
	}
}
