// Package auth verifies the bearer tokens that carry the caller identity.
// Tokens are issued by the phone verification service; this package never
// reissues them.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mutual-feedback/mutual_feedback/internal/pairhash"
)

var (
	// ErrTokenExpired is returned for well-signed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidToken covers bad signatures, algorithms and claims.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the token payload. UserHash is the caller identity.
type Claims struct {
	UserHash string `json:"userHash"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier for secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify validates token and returns the normalized caller identity.
func (v *Verifier) Verify(token string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	user := pairhash.Normalize(claims.UserHash)
	if err := pairhash.Validate(user); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return user, nil
}

// Sign mints a token for userHash. Production tokens come from the
// verification service; this exists for tests and local development.
func Sign(secret, userHash string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserHash: userHash,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}
