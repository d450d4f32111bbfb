package auth

import (
	"testing"
	"time"

	"wallfloor-backend/internal/config"
	"wallfloor-backend/internal/models"
)

var testUser = models.User{ID: 1, Email: "ops@wallfloor.in", Role: models.RoleAdmin, IsActive: true}

func testManager() *JWTManager {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "wallfloor-backend"
	cfg.JWT.ExpirationHours = 1
	return NewJWTManager(cfg)
}

func TestWidgetTokenRoundTrip(t *testing.T) {
	m := testManager()

	token, err := m.GenerateWidgetToken("919876543210", 42, PurposeAppointment, 10*time.Minute)
	if err != nil {
		t.Fatalf("GenerateWidgetToken: %v", err)
	}

	claims, err := m.ValidateWidgetToken(token)
	if err != nil {
		t.Fatalf("ValidateWidgetToken: %v", err)
	}
	if claims.Phone != "919876543210" || claims.EntityID != 42 || claims.Purpose != PurposeAppointment {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestWidgetTokenExpired(t *testing.T) {
	m := testManager()

	token, err := m.GenerateWidgetToken("919876543210", 7, PurposeWorkerVisit, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateWidgetToken: %v", err)
	}
	if _, err := m.ValidateWidgetToken(token); err == nil {
		t.Fatal("expected expired token to fail validation")
	}
}

func TestWidgetTokenMalformed(t *testing.T) {
	m := testManager()
	if _, err := m.ValidateWidgetToken("not-a-token"); err == nil {
		t.Fatal("expected malformed token to fail validation")
	}
}

func TestWidgetTokenWrongSecret(t *testing.T) {
	m := testManager()
	token, _ := m.GenerateWidgetToken("919876543210", 1, PurposeAppointment, time.Minute)

	other := &config.Config{}
	other.JWT.Secret = "different-secret"
	other.JWT.Issuer = "wallfloor-backend"
	if _, err := NewJWTManager(other).ValidateWidgetToken(token); err == nil {
		t.Fatal("expected signature mismatch to fail validation")
	}
}

func TestSessionTokenIsNotAWidgetToken(t *testing.T) {
	m := testManager()
	// A session token parses but has no valid widget purpose.
	token, err := m.GenerateTempToken(&testUser)
	if err != nil {
		t.Fatalf("GenerateTempToken: %v", err)
	}
	if _, err := m.ValidateWidgetToken(token); err == nil {
		t.Fatal("expected purpose check to reject non-widget token")
	}
}
