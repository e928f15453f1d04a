package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/strikeground/strikeground-backend/pkg/auth"
	"github.com/strikeground/strikeground-backend/pkg/config"
	"github.com/strikeground/strikeground-backend/pkg/enums"
	"github.com/strikeground/strikeground-backend/pkg/logger"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "strikeground"}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID string, role enums.Role) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), time.Hour, auth.AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWTConfig(), nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWTConfig(), nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	cfg := testJWTConfig()
	token := mintTestToken(t, cfg, "user-42", enums.RoleAdmin)

	var captured struct {
		user string
		role string
	}
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		captured.user = principal.UserID
		captured.role = string(principal.Role)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.user != "user-42" {
		t.Fatalf("expected user-42 in context, got %q", captured.user)
	}
	if captured.role != string(enums.RoleAdmin) {
		t.Fatalf("expected role admin got %s", captured.role)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.RoleAdmin)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without principal got %d", resp.Code)
	}

	withUser := req.WithContext(WithUserID(req.Context(), "user-1"))

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, withUser.WithContext(WithRole(withUser.Context(), string(enums.RoleCustomer))))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, withUser.WithContext(WithRole(withUser.Context(), string(enums.RoleAdmin))))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRequireRoleAcceptsAnyAllowedRole(t *testing.T) {
	handler := RequireRole(logger.Nop(), enums.RoleAdmin, enums.RoleCustomer)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := WithRole(WithUserID(req.Context(), "user-1"), string(enums.RoleCustomer))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req.WithContext(ctx))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRequestIDFallsBackToCorrelationID(t *testing.T) {
	handler := RequestID(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-Id", "corr-9")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get("X-Request-Id"); got != "corr-9" {
		t.Fatalf("expected correlation id echoed, got %q", got)
	}
}

func TestRequestIDReplacesUnsafeHeader(t *testing.T) {
	handler := RequestID(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", strings.Repeat("a", 100))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	got := resp.Header().Get("X-Request-Id")
	if got == "" || len(got) > 64 {
		t.Fatalf("expected a generated request id, got %q", got)
	}
}

func TestRecovererRepanicsAbortHandler(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRequestIDEchoesHeader(t *testing.T) {
	handler := RequestID(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get("X-Request-Id"); got != "req-1" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected generated request id")
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
