package matching

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutual-feedback/mutual_feedback/internal/auth"
	"github.com/mutual-feedback/mutual_feedback/internal/httperr"
	"github.com/mutual-feedback/mutual_feedback/internal/middleware"
	"github.com/mutual-feedback/mutual_feedback/internal/store"
)

const handlerSecret = "matching-handler-secret"

func feedbackApp(t *testing.T) *fiber.App {
	t.Helper()
	return feedbackAppWithClock(t, nil)
}

func feedbackAppWithClock(t *testing.T, now func() time.Time) *fiber.App {
	t.Helper()
	engine, err := NewEngine(Deps{Store: store.NewMemory(store.Options{}), Now: now})
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: httperr.Handler(true, nil)})
	app.Post("/send-feedback", middleware.BearerAuth(auth.NewVerifier(handlerSecret)), NewHandler(engine).SendFeedback)
	return app
}

func postFeedback(t *testing.T, app *fiber.App, from, body string) (int, map[string]any) {
	t.Helper()
	token, err := auth.Sign(handlerSecret, from, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/send-feedback", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func target(hash string) string {
	return `{"targetUserHash":"` + hash + `"}`
}

func TestSendFeedbackHandlerFlow(t *testing.T) {
	app := feedbackApp(t)

	status, body := postFeedback(t, app, alice, target(bob))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "FEEDBACK_SENT", body["code"])
	assert.Equal(t, true, body["success"])

	status, body = postFeedback(t, app, bob, target(alice))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "MUTUAL_FEEDBACK_ESTABLISHED", body["code"])
	assert.Equal(t, "mutual-feedback-established", body["message"])
}

func TestSendFeedbackHandlerRateLimit(t *testing.T) {
	app := feedbackApp(t)
	postFeedback(t, app, alice, target(bob))

	status, body := postFeedback(t, app, alice, target(carol))
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
	assert.Equal(t, false, body["success"])

	retryAfter, ok := body["retryAfter"].(float64)
	require.True(t, ok)
	assert.Greater(t, retryAfter, float64(0))
	assert.LessOrEqual(t, retryAfter, (7 * 24 * time.Hour).Seconds())
}

func TestSendFeedbackHandlerValidation(t *testing.T) {
	app := feedbackApp(t)
	cases := []struct {
		name string
		body string
		code string
	}{
		{"missing target", `{}`, CodeTargetRequired},
		{"blank target", target("  "), CodeTargetRequired},
		{"short target", target("abc123"), CodeInvalidFormat},
		{"non hex target", target(strings.Repeat("z", 64)), CodeInvalidFormat},
		{"self feedback", target(alice), CodeSelfFeedback},
		{"not json", `nope`, CodeValidationError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := postFeedback(t, app, alice, tc.body)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, tc.code, body["code"])
		})
	}

	// None of the rejected requests spent alice's credit.
	status, body := postFeedback(t, app, alice, target(bob))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "FEEDBACK_SENT", body["code"])
}

func TestSendFeedbackHandlerRetryAfterUsesEngineClock(t *testing.T) {
	c := &clock{now: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	app := feedbackAppWithClock(t, c.Now)

	postFeedback(t, app, alice, target(bob))
	c.Advance(24 * time.Hour)

	status, body := postFeedback(t, app, alice, target(carol))
	require.Equal(t, fiber.StatusTooManyRequests, status)
	assert.EqualValues(t, (6 * 24 * time.Hour).Seconds(), body["retryAfter"])
}
