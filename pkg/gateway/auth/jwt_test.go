package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-health/hms/pkg/common/models"
)

func testManager(t *testing.T) *JWTManager {
	t.Helper()
	manager, err := NewJWTManager("unit-test-signing-secret", "hms", "hms-api", time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager
}

func TestIssueAndValidateToken(t *testing.T) {
	manager := testManager(t)
	user := models.User{ID: uuid.New(), Email: "staff@example.com", Role: RoleStaff}

	token, err := manager.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	claims, err := manager.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id %s, got %s", user.ID, claims.UserID)
	}
	if claims.Role != RoleStaff || claims.Email != "staff@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Issuer != "hms" || claims.Audience != "hms-api" {
		t.Fatalf("unexpected issuer or audience in %+v", claims)
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	manager := testManager(t)
	token, err := manager.IssueToken(models.User{ID: uuid.New(), Role: RoleStaff})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	parts := strings.Split(token, ".")
	forged, err := encodeSegment(Claims{Issuer: "hms", Audience: "hms-api", Role: RoleAdmin, ExpiresAt: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("encode forged claims: %v", err)
	}
	tampered := strings.Join([]string{parts[0], forged, parts[2]}, ".")
	if _, err := manager.ValidateToken(context.Background(), tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}

	other, err := NewJWTManager("a-different-signing-secret", "hms", "hms-api", time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := other.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expected token signed with another key to be rejected")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	manager := testManager(t)
	manager.nowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := manager.IssueToken(models.User{ID: uuid.New(), Role: RoleStaff})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	manager.nowFunc = time.Now
	if _, err := manager.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestValidateTokenRejectsWrongAudience(t *testing.T) {
	manager := testManager(t)
	token, err := manager.IssueToken(models.User{ID: uuid.New(), Role: RoleStaff})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	other, err := NewJWTManager("unit-test-signing-secret", "hms", "other-api", time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := other.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expected audience mismatch to be rejected")
	}
}

func TestNewJWTManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewJWTManager("short", "hms", "hms-api", time.Hour); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
}
