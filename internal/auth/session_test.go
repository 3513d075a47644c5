package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"id": "user1", "type": "auth"}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestTokenSession_Expiry(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC))
	token := signedToken(t, clock.Now().Add(time.Hour))

	s := NewTokenSession(token, clock)
	if !s.IsValid() {
		t.Fatal("fresh token should be valid")
	}
	if s.Token() != token {
		t.Error("Token() should return the token while valid")
	}

	// Inside the 5 minute buffer the token is already considered expired.
	clock.Advance(56 * time.Minute)
	if s.IsValid() {
		t.Error("token within the expiry buffer should be invalid")
	}
	if s.Token() != "" {
		t.Error("Token() should be empty once invalid")
	}
}

func TestTokenSession_NoExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()

	noExp := NewTokenSession(signedToken(t, time.Time{}), clock)
	if !noExp.IsValid() {
		t.Error("JWT without exp should be valid")
	}

	opaque := NewTokenSession("not-a-jwt", clock)
	if !opaque.IsValid() {
		t.Error("opaque token should be valid while present")
	}
	if !opaque.ExpiresAt().IsZero() {
		t.Error("opaque token should have no expiry")
	}
}

func TestTokenSession_ZeroValue(t *testing.T) {
	var s TokenSession
	if s.IsValid() {
		t.Error("zero session should be invalid")
	}

	s.Set(signedToken(t, time.Now().Add(time.Hour)))
	if !s.IsValid() {
		t.Error("zero session with a live token should be valid")
	}

	s.Set(signedToken(t, time.Now().Add(-time.Hour)))
	if s.IsValid() {
		t.Error("zero session with an expired token should be invalid")
	}
}

func TestTokenSession_Empty(t *testing.T) {
	s := NewTokenSession("", nil)
	if s.IsValid() {
		t.Error("empty token should not be valid")
	}

	s.Set("abc")
	if !s.IsValid() {
		t.Error("Set() should make the session valid")
	}

	s.Clear()
	if s.IsValid() {
		t.Error("Clear() should invalidate the session")
	}

	var nilSession *TokenSession
	if nilSession.IsValid() {
		t.Error("nil session should not be valid")
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := TokenExpiry(signedToken(t, exp)); !got.Equal(exp) {
		t.Errorf("TokenExpiry() = %v, want %v", got, exp)
	}
	if got := TokenExpiry("garbage"); !got.IsZero() {
		t.Errorf("TokenExpiry(garbage) = %v, want zero", got)
	}
}

func TestStaticCheckers(t *testing.T) {
	var c Checker = LocalSession{}
	if !c.IsValid() {
		t.Error("LocalSession should be valid")
	}
	c = Anonymous{}
	if c.IsValid() {
		t.Error("Anonymous should not be valid")
	}
}
