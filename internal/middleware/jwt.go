package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mutual-feedback/mutual_feedback/internal/auth"
	"github.com/mutual-feedback/mutual_feedback/internal/httperr"
)

const callerIdentityKey = "caller_identity"

// BearerAuth validates the bearer token and stores the caller identity for
// downstream handlers.
func BearerAuth(verifier *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return httperr.New(http.StatusUnauthorized, "AUTH_TOKEN_REQUIRED", "Authentication token required.")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		if tokenStr == "" {
			return httperr.New(http.StatusUnauthorized, "AUTH_TOKEN_REQUIRED", "Authentication token required.")
		}

		user, err := verifier.Verify(tokenStr)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				return httperr.New(http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired.")
			}
			return httperr.New(http.StatusForbidden, "INVALID_TOKEN", "Invalid or malformed token.")
		}

		c.Locals(callerIdentityKey, user)
		return c.Next()
	}
}

// CallerIdentity returns the identity set by BearerAuth, or "".
func CallerIdentity(c *fiber.Ctx) string {
	user, _ := c.Locals(callerIdentityKey).(string)
	return user
}
