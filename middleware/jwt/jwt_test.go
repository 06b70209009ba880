package jwt

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func TestNewTokenManager(t *testing.T) {
	secret := "test-secret"
	expireHours := 24
	refreshHours := 168

	tm := NewTokenManager(secret, expireHours, refreshHours)
	if tm == nil {
		t.Fatal("NewTokenManager returned nil")
	}
	if string(tm.secret) != secret {
		t.Errorf("Expected secret %s, got %s", secret, string(tm.secret))
	}

	expectedExpireDur := time.Duration(expireHours) * time.Hour
	if tm.expireDur != expectedExpireDur {
		t.Errorf("Expected expireDur %v, got %v", expectedExpireDur, tm.expireDur)
	}

	expectedRefreshDur := time.Duration(refreshHours) * time.Hour
	if tm.refreshDur != expectedRefreshDur {
		t.Errorf("Expected refreshDur %v, got %v", expectedRefreshDur, tm.refreshDur)
	}
}

func TestGenerateToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 24, 168)

	token, err := tm.GenerateToken(42, "test@example.com", false)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if token == "" {
		t.Error("Generated token is empty")
	}

	// Validate the generated token
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("Expected UserID 42, got %d", claims.UserID)
	}
	if claims.Email != "test@example.com" {
		t.Errorf("Expected email test@example.com, got %s", claims.Email)
	}
	if claims.IsAdmin {
		t.Error("Expected IsAdmin false")
	}
}

func TestGenerateToken_AdminClaim(t *testing.T) {
	tm := NewTokenManager("test-secret", 24, 168)

	token, err := tm.GenerateToken(1, "admin@example.com", true)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if !claims.IsAdmin {
		t.Error("Expected IsAdmin true")
	}
}

func TestParseToken_InvalidToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 24, 168)

	if _, err := tm.ParseToken("not-a-token"); err == nil {
		t.Error("Expected error for malformed token")
	}

	// Token signed with a different secret must be rejected
	other := NewTokenManager("other-secret", 24, 168)
	token, err := other.GenerateToken(7, "x@example.com", false)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := tm.ParseToken(token); err == nil {
		t.Error("Expected error for token signed with wrong secret")
	}
}

func TestParseToken_ExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 24, 168)

	// Craft an already-expired token with the same secret
	claims := Claims{
		UserID: 9,
		Email:  "expired@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	if _, err := tm.ParseToken(tokenString); err != ErrExpiredToken {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestRefreshToken(t *testing.T) {
	// Refresh window larger than expiry so a fresh token is immediately eligible
	tm := NewTokenManager("test-secret", 1, 24)

	token, err := tm.GenerateToken(42, "test@example.com", false)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	refreshed, err := tm.RefreshToken(token)
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}

	claims, err := tm.ParseToken(refreshed)
	if err != nil {
		t.Fatalf("ParseToken failed on refreshed token: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("Expected UserID 42 after refresh, got %d", claims.UserID)
	}
}
