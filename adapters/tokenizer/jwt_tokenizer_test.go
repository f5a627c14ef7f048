package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensgate/ensgate/core"
)

func newTestKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func testSession() *core.Session {
	now := time.Now()
	return &core.Session{
		UserID:    "u-1",
		EnsName:   "alice.eth",
		Address:   "0x1111111111111111111111111111111111111111",
		IssuedAt:  now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

func TestJWTTokenizerRoundTrip(t *testing.T) {
	tk := NewJWTTokenizer(newTestKey(t))

	token, err := tk.SessionToToken(testSession())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	session, err := tk.TokenToSession(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", session.UserID)
	assert.Equal(t, "alice.eth", session.EnsName)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", session.Address)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), session.ExpiresAt, time.Minute)
}

func TestJWTTokenizerTampered(t *testing.T) {
	tk := NewJWTTokenizer(newTestKey(t))

	token, err := tk.SessionToToken(testSession())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1][:len(parts[1])-2] + "xx." + parts[2]

	_, err = tk.TokenToSession(tampered)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestJWTTokenizerWrongKey(t *testing.T) {
	token, err := NewJWTTokenizer(newTestKey(t)).SessionToToken(testSession())
	require.NoError(t, err)

	_, err = NewJWTTokenizer(newTestKey(t)).TokenToSession(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestJWTTokenizerExpired(t *testing.T) {
	tk := NewJWTTokenizer(newTestKey(t))

	session := testSession()
	session.IssuedAt = time.Now().Add(-8 * 24 * time.Hour)
	session.ExpiresAt = time.Now().Add(-24 * time.Hour)

	token, err := tk.SessionToToken(session)
	require.NoError(t, err)

	_, err = tk.TokenToSession(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestJWTTokenizerGarbage(t *testing.T) {
	tk := NewJWTTokenizer(newTestKey(t))

	_, err := tk.TokenToSession("not.a.token")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}
