package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mutual-feedback/mutual_feedback/internal/httperr"
)

// RequestRateLimit throttles each caller to maxPerMin requests per minute
// using a Redis counter. It falls back to the client IP before
// authentication and fails open when Redis is unavailable. This is request
// flood protection only; the weekly feedback cooldown lives in the ledger.
func RequestRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 60
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := CallerIdentity(c)
		if subject == "" {
			subject = c.IP()
		}
		key := "rl:req:" + subject

		// SET NX EX opens the window with its TTL before INCR counts the request,
		// so a counter never exists without an expiry.
		var incr *redis.IntCmd
		_, err := cache.TxPipelined(c.UserContext(), func(pipe redis.Pipeliner) error {
			pipe.SetNX(c.UserContext(), key, 0, time.Minute)
			incr = pipe.Incr(c.UserContext(), key)
			return nil
		})
		if err != nil {
			if logger != nil {
				logger.Warn("rate limit counter unavailable", slog.Any("error", err))
			}
			return c.Next()
		}
		cnt := incr.Val()
		if cnt > int64(maxPerMin) {
			e := httperr.New(http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many requests, try again later.")
			if ttl, err := cache.TTL(c.UserContext(), key).Result(); err == nil && ttl > 0 {
				e.RetryAfter = int64(ttl.Round(time.Second) / time.Second)
			}
			return e
		}
		return c.Next()
	}
}
