// Package httperr renders API errors as {"success": false, "code", "message"}.
package httperr

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	CodeInternal = "INTERNAL_SERVER_ERROR"
	internalMsg  = "Internal server error."
)

// Error is a caller-visible failure with a stable machine readable code.
type Error struct {
	Status     int
	Code       string
	Message    string
	RetryAfter int64
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// New builds an Error.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

type body struct {
	Success    bool   `json:"success"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retryAfter,omitempty"`
}

// Handler is the fiber ErrorHandler for the API. Unexpected errors are logged
// in full; the response carries the detail only outside production.
func Handler(production bool, logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return c.Status(apiErr.Status).JSON(body{Code: apiErr.Code, Message: apiErr.Message, RetryAfter: apiErr.RetryAfter})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code < http.StatusInternalServerError {
			return c.Status(fe.Code).JSON(body{Code: codeForStatus(fe.Code), Message: fe.Message})
		}

		if logger != nil {
			reqID, _ := c.Locals("X-Request-ID").(string)
			logger.Error("unhandled error",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("request_id", reqID),
				slog.Any("error", err),
			)
		}
		msg := internalMsg
		if !production {
			msg = err.Error()
		}
		return c.Status(http.StatusInternalServerError).JSON(body{Code: CodeInternal, Message: msg})
	}
}

func codeForStatus(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "HTTP_ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}
