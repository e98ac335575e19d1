// Package pairhash derives the order-independent identifier of a pair of
// identities and validates identity strings.
package pairhash

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// IdentityLength is the length of a hex encoded SHA-256 identity.
const IdentityLength = 64

var (
	// ErrEmptyIdentity is returned for blank identity strings.
	ErrEmptyIdentity = errors.New("identity is required")
	// ErrMalformedIdentity is returned when an identity is not 64 hex characters.
	ErrMalformedIdentity = errors.New("identity must be 64 hex characters")
)

// Normalize trims surrounding whitespace and lowercases the hex digits so that
// equal identities always hash to the same pair.
func Normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Validate checks that id is a well formed identity hash.
func Validate(id string) error {
	if id == "" {
		return ErrEmptyIdentity
	}
	if len(id) != IdentityLength {
		return ErrMalformedIdentity
	}
	if _, err := hex.DecodeString(id); err != nil {
		return ErrMalformedIdentity
	}
	return nil
}

// Sum returns hex(sha256(min(a,b) + max(a,b))). Sum(a, b) == Sum(b, a).
func Sum(a, b string) string {
	if b < a {
		a, b = b, a
	}
	sum := sha256.Sum256([]byte(a + b))
	return hex.EncodeToString(sum[:])
}
