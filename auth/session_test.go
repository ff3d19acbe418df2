package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenWithExpiry(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "acct-1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	return signed
}

func TestNewSessionRequiresAccountID(t *testing.T) {
	_, err := NewSession("", "token")
	assert.Error(t, err)

	_, err = NewSession("   ", "token")
	assert.Error(t, err)
}

func TestSessionWithoutToken(t *testing.T) {
	s, err := NewSession("acct-1", "")
	require.NoError(t, err)

	assert.Equal(t, "acct-1", s.AccountID())
	assert.Empty(t, s.Token())
	assert.False(t, s.Expired())
	_, known := s.ExpiresAt()
	assert.False(t, known)
}

func TestSessionPeeksJWTExpiry(t *testing.T) {
	future := time.Now().Add(time.Hour).Truncate(time.Second)
	s, err := NewSession("acct-1", tokenWithExpiry(t, future))
	require.NoError(t, err)

	expiresAt, known := s.ExpiresAt()
	require.True(t, known)
	assert.Equal(t, future.Unix(), expiresAt.Unix())
	assert.False(t, s.Expired())
}

func TestSessionReportsExpiredToken(t *testing.T) {
	s, err := NewSession("acct-1", tokenWithExpiry(t, time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	assert.True(t, s.Expired())
}

func TestOpaqueTokenIsAssumedLive(t *testing.T) {
	s, err := NewSession("acct-1", "not-a-jwt-at-all")
	require.NoError(t, err)

	assert.False(t, s.Expired())
	_, known := s.ExpiresAt()
	assert.False(t, known)
	assert.Equal(t, "not-a-jwt-at-all", s.Token())
}
