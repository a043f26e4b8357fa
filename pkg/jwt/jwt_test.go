package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestManager() *Manager {
	return NewManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager()
	userID := uuid.New()

	token, err := m.GenerateAccessToken(userID, "reader", true)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("UserID = %v, want %v", claims.UserID, userID)
	}
	if claims.Username != "reader" {
		t.Errorf("Username = %q, want reader", claims.Username)
	}
	if !claims.IsSuperuser {
		t.Error("IsSuperuser should round-trip")
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := newTestManager()
	userID := uuid.New()

	token, err := m.GenerateRefreshToken(userID)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	got, err := m.ValidateRefreshToken(token)
	if err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}
	if got != userID {
		t.Errorf("user id = %v, want %v", got, userID)
	}
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	m := newTestManager()
	userID := uuid.New()

	refresh, err := m.GenerateRefreshToken(userID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ValidateAccessToken(refresh); err == nil {
		t.Error("a refresh token must not validate as an access token")
	}

	access, err := m.GenerateAccessToken(userID, "reader", false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ValidateRefreshToken(access); err == nil {
		t.Error("an access token must not validate as a refresh token")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := newTestManager().GenerateAccessToken(uuid.New(), "reader", false)
	if err != nil {
		t.Fatal(err)
	}

	other := NewManager("different-secret", "refresh-secret", time.Minute, time.Hour)
	if _, err := other.ValidateAccessToken(token); err == nil {
		t.Error("expected validation to fail under a different secret")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewManager("access-secret", "refresh-secret", -time.Minute, time.Hour)
	token, err := m.GenerateAccessToken(uuid.New(), "reader", false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ValidateAccessToken(token); err == nil {
		t.Error("expected an expired token to be rejected")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := newTestManager()
	if _, err := m.ValidateAccessToken("not.a.token"); err == nil {
		t.Error("expected garbage to be rejected")
	}
}

func TestHashToken(t *testing.T) {
	m := newTestManager()

	h1, err := m.HashToken("some-token")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := m.HashToken("some-token")
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("hashing must be deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("hex digest length = %d, want 64", len(h1))
	}
	if _, err := m.HashToken(""); err == nil {
		t.Error("expected an error for an empty token")
	}
}
