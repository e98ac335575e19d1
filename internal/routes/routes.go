package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mutual-feedback/mutual_feedback/internal/auth"
	"github.com/mutual-feedback/mutual_feedback/internal/config"
	"github.com/mutual-feedback/mutual_feedback/internal/ledger"
	"github.com/mutual-feedback/mutual_feedback/internal/logging"
	"github.com/mutual-feedback/mutual_feedback/internal/matching"
	"github.com/mutual-feedback/mutual_feedback/internal/metrics"
	"github.com/mutual-feedback/mutual_feedback/internal/middleware"
	"github.com/mutual-feedback/mutual_feedback/internal/notification"
	"github.com/mutual-feedback/mutual_feedback/internal/pending"
	"github.com/mutual-feedback/mutual_feedback/internal/store"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Store overrides the store selected from DB. Tests use it to inspect state.
	Store store.Store
	// Now overrides the clock used by the engine and the read path.
	Now func() time.Time
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil && d.Store == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	st := d.Store
	if st == nil {
		opts := store.Options{
			MaxAttempts: d.Cfg.TxMaxAttempts,
			OnConflict: func(attempt uint64, err error) {
				d.Metrics.ObserveConflict()
				d.Logger.Debug("store transaction conflict", slog.Uint64("attempt", attempt), slog.Any("error", err))
			},
		}
		if d.DB != nil {
			st = store.NewPostgres(d.DB, opts)
		} else {
			d.Logger.Warn("no database configured, using in-memory store")
			st = store.NewMemory(opts)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	// Health and metrics
	RegisterHealthRoutes(app, st, d.Cache)
	RegisterMetricsRoute(app, d.Metrics)

	// Services and handlers
	engine, err := matching.NewEngine(matching.Deps{
		Store:    st,
		Ledger:   ledger.New(d.Cfg.FeedbackCooldown),
		Pending:  pending.New(d.Cfg.PendingMatchTTL),
		Fanout:   notification.NewFanout(nil),
		Notifier: notification.NewLoggerNotifier(d.Logger),
		Metrics:  d.Metrics,
		Logger:   d.Logger,
		Now:      d.Now,
	})
	if err != nil {
		return err
	}
	feedbackHandler := matching.NewHandler(engine)
	notificationHandler := notification.NewHandler(notification.NewService(st, d.Now))

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Protected routes
	protected := api.Group("",
		middleware.BearerAuth(auth.NewVerifier(d.Cfg.JWTSecret)),
		middleware.RequestRateLimit(d.Cache, d.Cfg.RequestsPerMinute, d.Logger),
	)
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterFeedbackRoutes(protected, feedbackHandler)
	RegisterNotificationRoutes(protected, notificationHandler)

	return nil
}
