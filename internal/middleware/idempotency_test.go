package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mutual-feedback/mutual_feedback/internal/httperr"
	"github.com/mutual-feedback/mutual_feedback/internal/logging"
)

func setupTestApp(t *testing.T, status int) (*fiber.App, *int32, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New(fiber.Config{ErrorHandler: httperr.Handler(false, nil)})
	logger := logging.Discard()
	var calls int32
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(callerIdentityKey, c.Get("X-Test-Caller"))
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logger))
	app.Post("/resource", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(&calls, 1)
		return c.Status(status).JSON(fiber.Map{"call": n})
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}

	return app, &calls, cleanup
}

func post(t *testing.T, app *fiber.App, caller, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-Test-Caller", caller)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	app, calls, cleanup := setupTestApp(t, fiber.StatusOK)
	defer cleanup()

	post(t, app, "alice", "")
	post(t, app, "alice", "")

	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", got)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls, cleanup := setupTestApp(t, fiber.StatusOK)
	defer cleanup()

	status, first := post(t, app, "alice", "abc123")
	if status != fiber.StatusOK {
		t.Fatalf("expected status %d got %d", fiber.StatusOK, status)
	}

	// Second request should return the cached response without invoking handler again.
	status, second := post(t, app, "alice", "abc123")
	if status != fiber.StatusOK {
		t.Fatalf("expected cached status %d got %d", fiber.StatusOK, status)
	}
	if first != second {
		t.Fatalf("expected cached payload %s got %s", first, second)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Fatalf("expected one handler call, got %d", got)
	}
}

func TestIdempotencyKeysAreScopedToCaller(t *testing.T) {
	app, calls, cleanup := setupTestApp(t, fiber.StatusOK)
	defer cleanup()

	post(t, app, "alice", "shared")
	post(t, app, "bob", "shared")

	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected each caller to reach the handler, got %d calls", got)
	}
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	app, calls, cleanup := setupTestApp(t, fiber.StatusTooManyRequests)
	defer cleanup()

	post(t, app, "alice", "retry-me")
	post(t, app, "alice", "retry-me")

	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected failed responses to be retried, got %d calls", got)
	}
}

func TestIdempotencyReplayKeepsRetryRequestID(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New(fiber.Config{ErrorHandler: httperr.Handler(false, nil)})
	app.Use(RequestID())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(callerIdentityKey, "alice")
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	send := func(reqID string) string {
		req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
		req.Header.Set(idempotencyKeyHeader, "same-key")
		req.Header.Set(requestIDHeader, reqID)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected status %d got %d", fiber.StatusOK, resp.StatusCode)
		}
		return resp.Header.Get(requestIDHeader)
	}

	if got := send("first-attempt"); got != "first-attempt" {
		t.Fatalf("expected request id first-attempt, got %q", got)
	}
	if got := send("second-attempt"); got != "second-attempt" {
		t.Fatalf("replay overwrote request id: got %q", got)
	}
}
