package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session holds the single active account used for all booking calls.
// The token is opaque to this client; when it happens to be a JWT its exp
// claim is peeked at (without signature verification, which is the
// backend's job) so auth expiry can be reported before a round trip.
type Session struct {
	accountID string
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewSession creates a session for the given account and bearer token.
func NewSession(accountID, token string) (*Session, error) {
	accountID = strings.TrimSpace(accountID)
	token = strings.TrimSpace(token)
	if accountID == "" {
		return nil, errors.New("account id is required")
	}
	s := &Session{
		accountID: accountID,
		token:     token,
		now:       time.Now,
	}
	s.expiresAt = peekExpiry(token)
	return s, nil
}

func (s *Session) AccountID() string { return s.accountID }

func (s *Session) Token() string { return s.token }

// ExpiresAt returns the token expiry and whether one is known.
func (s *Session) ExpiresAt() (time.Time, bool) {
	return s.expiresAt, !s.expiresAt.IsZero()
}

// Expired reports whether the token is known to have expired. Tokens
// without a readable exp claim are assumed live until the backend says
// otherwise.
func (s *Session) Expired() bool {
	if s.expiresAt.IsZero() {
		return false
	}
	return s.now().After(s.expiresAt)
}

func peekExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
