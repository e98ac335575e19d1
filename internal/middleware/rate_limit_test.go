package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutual-feedback/mutual_feedback/internal/httperr"
	"github.com/mutual-feedback/mutual_feedback/internal/logging"
)

func TestRequestRateLimitPerCaller(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New(fiber.Config{ErrorHandler: httperr.Handler(false, nil)})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(callerIdentityKey, c.Get("X-Test-Caller"))
		return c.Next()
	})
	app.Use(RequestRateLimit(cache, 2, logging.Discard()))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	get := func(caller string) (int, map[string]any) {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		req.Header.Set("X-Test-Caller", caller)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return resp.StatusCode, body
	}

	status, _ := get("alice")
	assert.Equal(t, fiber.StatusNoContent, status)
	status, _ = get("alice")
	assert.Equal(t, fiber.StatusNoContent, status)

	status, body := get("alice")
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "TOO_MANY_REQUESTS", body["code"])
	assert.EqualValues(t, 60, body["retryAfter"])

	status, _ = get("bob")
	assert.Equal(t, fiber.StatusNoContent, status)

	mr.FastForward(61 * time.Second)
	status, _ = get("alice")
	assert.Equal(t, fiber.StatusNoContent, status)
}

func TestRequestRateLimitWithoutRedis(t *testing.T) {
	app := fiber.New()
	app.Use(RequestRateLimit(nil, 1, nil))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}
}

func TestRequestRateLimitCounterAlwaysExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(callerIdentityKey, "alice")
		return c.Next()
	})
	app.Use(RequestRateLimit(cache, 5, logging.Discard()))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}
	mr.CheckGet(t, "rl:req:alice", "3")
	assert.Equal(t, time.Minute, mr.TTL("rl:req:alice"))

	mr.SetError("READONLY replica")
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode, "fails open without a counter")
}
