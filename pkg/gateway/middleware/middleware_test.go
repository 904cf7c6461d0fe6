package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-health/hms/pkg/common/logger"
	"github.com/meridian-health/hms/pkg/common/models"
	"github.com/meridian-health/hms/pkg/gateway/auth"
)

func init() {
	logger.Init()
}

func requestWithClaims(claims *auth.Claims) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/patients", nil)
	if claims == nil {
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), claimsContextKey, claims))
}

func TestGuardRequire(t *testing.T) {
	guard := NewGuard(auth.NewRBAC(auth.DefaultPolicy()))
	var called bool
	handler := guard.Require("delete_hospital", func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	// No claims in context.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithClaims(nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without claims, got %d", rec.Code)
	}

	// Role without the permission.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithClaims(&auth.Claims{Role: auth.RoleStaff}))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff, got %d", rec.Code)
	}
	if called {
		t.Fatal("handler must not run when denied")
	}

	// Role holding the permission.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithClaims(&auth.Claims{Role: auth.RoleAdmin}))
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("expected admin to pass, got %d", rec.Code)
	}
}

func TestAuthenticate(t *testing.T) {
	manager, err := auth.NewJWTManager("unit-test-signing-secret", "hms", "hms-api", time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	var got *auth.Claims
	handler := Authenticate(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ClaimsFrom(r)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/patients", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}

	user := models.User{ID: uuid.New(), Email: "staff@example.com", Role: auth.RoleStaff}
	token, err := manager.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/patients", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}
	if got == nil || got.UserID != user.ID {
		t.Fatalf("expected claims in request context, got %+v", got)
	}
}

func TestAuditContextFrom(t *testing.T) {
	r := requestWithClaims(&auth.Claims{Email: "staff@example.com"})
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	actx := AuditContextFrom(r)
	if actx.Actor != "staff@example.com" {
		t.Fatalf("expected actor from claims, got %q", actx.Actor)
	}
	if actx.IPAddress != "203.0.113.7" {
		t.Fatalf("expected first forwarded address, got %q", actx.IPAddress)
	}
	if actx.Method != http.MethodGet {
		t.Fatalf("expected request method, got %q", actx.Method)
	}

	r = httptest.NewRequest(http.MethodDelete, "/patient/1", nil)
	r.RemoteAddr = "192.0.2.9:51234"
	actx = AuditContextFrom(r)
	if actx.IPAddress != "192.0.2.9" {
		t.Fatalf("expected remote address host, got %q", actx.IPAddress)
	}
	if actx.Actor != "" {
		t.Fatalf("expected empty actor without claims, got %q", actx.Actor)
	}
}
