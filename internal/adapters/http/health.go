package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports liveness plus the live drawing-session count, the
// one piece of state this process holds that no dependency can report.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status": "healthy",
			"uptime": time.Since(startedAt).String(),
		}
		if deps.Capture != nil {
			body["active_sessions"] = deps.Capture.Count()
		}
		return c.JSON(body)
	}
}

// ReadyHandler probes the dependencies. Only the database is mandatory:
// without it submits fail, so the pod must leave rotation. NATS and the
// cache being down degrades (no live feed, no cached reads) but drawing
// and submitting still work when configured without them.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		ready := true
		fail := func(name, detail string) {
			checks[name] = detail
			ready = false
		}

		if deps.DB == nil {
			fail("database", "not configured")
		} else if err := deps.DB.Pool.Ping(ctx); err != nil {
			fail("database", "error: "+err.Error())
		} else {
			checks["database"] = "ok"
		}

		switch {
		case deps.NATS == nil:
			checks["nats"] = "not configured"
		case deps.NATS.IsConnected():
			checks["nats"] = "ok"
		default:
			fail("nats", "disconnected")
		}

		if deps.Cache == nil {
			checks["cache"] = "not configured"
		} else if _, err := deps.Cache.Get(ctx, "readiness-probe"); err != nil && err.Error() != "valkey nil message" {
			// a missing probe key is the expected answer from a healthy cache
			fail("cache", "error: "+err.Error())
		} else {
			checks["cache"] = "ok"
		}

		status, code := "ready", 200
		if !ready {
			status, code = "not ready", 503
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
