package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret = "test-secret"
	alice  = "2bd806c97f0e00af1a1fc3328fa763a9269723c8db8fac4f93af71db186d6e90"
)

func TestVerifyRoundTrip(t *testing.T) {
	token, err := Sign(secret, strings.ToUpper(alice), time.Hour)
	require.NoError(t, err)

	user, err := NewVerifier(secret).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, alice, user)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := Sign("other", alice, time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier(secret).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyReportsExpiry(t *testing.T) {
	token, err := Sign(secret, alice, -time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier(secret).Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsMalformedIdentity(t *testing.T) {
	token, err := Sign(secret, "not-a-hash", time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier(secret).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserHash: alice})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewVerifier(secret).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
