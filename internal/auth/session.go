// Package auth tracks whether the process holds a usable session against the
// backing record store.
package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

// expiryBuffer treats tokens as expired slightly before their real expiry so a
// request started now does not fail halfway through.
const expiryBuffer = 5 * time.Minute

// Checker reports whether the caller currently holds a valid session.
type Checker interface {
	IsValid() bool
}

// TokenSession holds a bearer token issued by the record store. The zero value
// is an empty session on the real clock.
type TokenSession struct {
	mu        sync.RWMutex
	clock     clockwork.Clock
	token     string
	expiresAt time.Time
}

// NewTokenSession creates a session for token. The expiry is read from the
// token's "exp" claim when it is a JWT; the signature is not verified because
// only the issuing store can do that.
func NewTokenSession(token string, clock clockwork.Clock) *TokenSession {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &TokenSession{clock: clock}
	s.Set(token)
	return s
}

// Set replaces the token, e.g. after a re-authentication.
func (s *TokenSession) Set(token string) {
	exp := TokenExpiry(token)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = exp
}

// Clear drops the token.
func (s *TokenSession) Clear() {
	s.Set("")
}

// Token returns the bearer token, or "" when the session is not valid.
func (s *TokenSession) Token() string {
	if !s.IsValid() {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// ExpiresAt returns the token expiry; zero means no expiry is known.
func (s *TokenSession) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// IsValid checks that a token is present and not about to expire.
func (s *TokenSession) IsValid() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return false
	}
	if s.expiresAt.IsZero() {
		return true
	}
	return s.now().Add(expiryBuffer).Before(s.expiresAt)
}

func (s *TokenSession) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

// TokenExpiry returns the "exp" claim of a JWT, or the zero time when the
// token is opaque or carries no expiry.
func TokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// LocalSession is always valid. It is used with the local SQLite store, which
// belongs to the user running the process.
type LocalSession struct{}

// IsValid always returns true.
func (LocalSession) IsValid() bool { return true }

// Anonymous is never valid.
type Anonymous struct{}

// IsValid always returns false.
func (Anonymous) IsValid() bool { return false }
