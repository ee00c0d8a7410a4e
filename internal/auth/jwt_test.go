package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager([]byte("0123456789abcdef0123456789abcdef"), 15*time.Minute)

	ident := &Identity{Subject: "admin", CanRead: true, CanWrite: true}
	token, err := m.Issue(ident)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, ident, got)
}

func TestTokenCapabilitiesSurvive(t *testing.T) {
	m := NewTokenManager([]byte("0123456789abcdef0123456789abcdef"), time.Minute)

	token, err := m.Issue(&Identity{Subject: "viewer", CanRead: true})
	require.NoError(t, err)

	got, err := m.Verify(token)
	require.NoError(t, err)
	assert.True(t, got.CanRead)
	assert.False(t, got.CanWrite)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewTokenManager([]byte("0123456789abcdef0123456789abcdef"), time.Minute)
	verifier := NewTokenManager([]byte("fedcba9876543210fedcba9876543210"), time.Minute)

	token, err := issuer.Issue(&Identity{Subject: "admin"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpired(t *testing.T) {
	m := NewTokenManager([]byte("0123456789abcdef0123456789abcdef"), -time.Minute)

	token, err := m.Issue(&Identity{Subject: "admin"})
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenGarbage(t *testing.T) {
	m := NewTokenManager([]byte("0123456789abcdef0123456789abcdef"), time.Minute)

	for _, tok := range []string{"", "not.a.token", "eyJhbGciOiJub25lIn0.e30."} {
		_, err := m.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q must be rejected", tok)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))
	assert.False(t, CheckPassword("not-a-hash", "hunter2"))
}
