package matching

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mutual-feedback/mutual_feedback/internal/httperr"
	"github.com/mutual-feedback/mutual_feedback/internal/middleware"
)

// Handler exposes the send-feedback endpoint.
type Handler struct {
	engine   *Engine
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler constructs a feedback handler. Retry hints are computed on the
// engine's clock.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine, validate: validator.New(), now: engine.now}
}

type sendFeedbackRequest struct {
	TargetUserHash string `json:"targetUserHash" validate:"required,len=64,hexadecimal"`
}

type sendFeedbackResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SendFeedback handles POST /send-feedback for the authenticated caller.
func (h *Handler) SendFeedback(c *fiber.Ctx) error {
	from := middleware.CallerIdentity(c)
	if from == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}

	var req sendFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return httperr.New(http.StatusBadRequest, CodeValidationError, "Request body must be a JSON object.")
	}
	req.TargetUserHash = strings.TrimSpace(req.TargetUserHash)
	if err := h.validate.Struct(req); err != nil {
		return requestError(err)
	}

	res, err := h.engine.SendFeedback(c.UserContext(), from, req.TargetUserHash)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return httperr.New(http.StatusBadRequest, verr.Code, verr.Message)
		}
		return err
	}

	switch res.Outcome {
	case OutcomeMatched:
		return c.Status(http.StatusOK).JSON(sendFeedbackResponse{Success: true, Code: "MUTUAL_FEEDBACK_ESTABLISHED", Message: "mutual-feedback-established"})
	case OutcomeSent:
		return c.Status(http.StatusOK).JSON(sendFeedbackResponse{Success: true, Code: "FEEDBACK_SENT", Message: "feedback-is-sent"})
	case OutcomeRateLimited:
		e := httperr.New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "rate-limit-exceeded")
		e.RetryAfter = int64(math.Ceil(res.RetryAt.Sub(h.now()).Seconds()))
		if e.RetryAfter < 0 {
			e.RetryAfter = 0
		}
		return e
	default:
		return errors.New("send feedback: unknown outcome " + string(res.Outcome))
	}
}

func requestError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if verrs[0].Tag() == "required" {
			return httperr.New(http.StatusBadRequest, CodeTargetRequired, "targetUserHash is required.")
		}
		return httperr.New(http.StatusBadRequest, CodeInvalidFormat, "Invalid targetUserHash format.")
	}
	return httperr.New(http.StatusBadRequest, CodeValidationError, err.Error())
}
