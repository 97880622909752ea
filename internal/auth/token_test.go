package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, exp, err := tm.Sign("cred-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "cred-123", claims.SubjectID)
	assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, 5*time.Second)
}

func TestVerifyExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	// Hand-build a token whose lifetime has already elapsed.
	past := time.Now().Add(-2 * time.Hour)
	claims := &Claims{
		SubjectID: "cred-123",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "cred-123",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = tm.Verify(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyWrongKey(t *testing.T) {
	signer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)

	token, _, err := signer.Sign("cred-123")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestVerifyMalformed(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	for _, garbage := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		_, err := tm.Verify(garbage)
		assert.ErrorIs(t, err, ErrTokenMalformed, "input %q", garbage)
	}
}

func TestDefaultTTLFallback(t *testing.T) {
	tm := NewTokenManager("test-secret", 0)
	assert.Equal(t, DefaultTokenTTL, tm.TTL())
}
