package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/basobaas/plotline/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 240 requests per minute per IP. Drawing sends a tap or
	// cursor update per gesture, so the ceiling is higher than a read-only API.
	app.Use(limiter.New(limiter.Config{
		Max:        240,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Drawing sessions: mutating, no timeout wrapper needed (in-memory ops)
	v1 := app.Group("/v1")
	v1.Post("/sessions", StartSessionHandler(deps))
	v1.Get("/sessions/:id", GetSessionHandler(deps))
	v1.Delete("/sessions/:id", CancelSessionHandler(deps))
	v1.Post("/sessions/:id/points", TapHandler(deps))
	v1.Put("/sessions/:id/cursor", CursorHandler(deps))
	v1.Post("/sessions/:id/undo", UndoHandler(deps))
	v1.Post("/sessions/:id/clear", ClearHandler(deps))
	v1.Post("/sessions/:id/area", ConfirmAreaHandler(deps))

	// Submission touches the geocoder and the database, 15s per-request timeout
	v1.Post("/sessions/:id/submit", timeout.NewWithContext(SubmitHandler(deps), 15*time.Second))

	// Saved plots
	v1.Get("/plots", timeout.NewWithContext(ListPlotsHandler(deps), 15*time.Second))
	v1.Get("/plots/nearby", timeout.NewWithContext(NearbyPlotsHandler(deps), 15*time.Second))
	v1.Get("/plots/:id", timeout.NewWithContext(GetPlotHandler(deps), 15*time.Second))
	v1.Get("/plots/:id/geojson", timeout.NewWithContext(PlotGeoJSONHandler(deps), 15*time.Second))

	// Coverage presets for the buildable-area selector
	v1.Get("/presets/coverage", CoveragePresetsHandler(deps))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, "")

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
