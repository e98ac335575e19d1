package matching

import "fmt"

// Validation codes surfaced to callers.
const (
	CodeTargetRequired  = "TARGET_USER_HASH_REQUIRED"
	CodeInvalidFormat   = "INVALID_USER_HASH_FORMAT"
	CodeSenderInvalid   = "INVALID_SENDER_IDENTITY"
	CodeSelfFeedback    = "SELF_FEEDBACK_NOT_ALLOWED"
	CodeValidationError = "VALIDATION_ERROR"
)

// ValidationError is a caller fault detected before any state is touched.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(code, message string) error {
	return &ValidationError{Code: code, Message: message}
}
