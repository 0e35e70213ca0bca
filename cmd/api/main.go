package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/basobaas/plotline/internal/adapters/geocode"
	"github.com/basobaas/plotline/internal/adapters/http"
	natsadapter "github.com/basobaas/plotline/internal/adapters/nats"
	"github.com/basobaas/plotline/internal/adapters/postgres"
	"github.com/basobaas/plotline/internal/adapters/valkey"
	"github.com/basobaas/plotline/internal/core/ports"
	"github.com/basobaas/plotline/internal/core/usecases"
	"github.com/basobaas/plotline/internal/pkg/config"
	"github.com/basobaas/plotline/internal/pkg/logging"
	"github.com/basobaas/plotline/internal/pkg/metrics"
	"github.com/basobaas/plotline/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("plotline-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("plotline-api", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
	}

	// NATS
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer nc.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	plotRepo := postgres.NewPlotRepo(db)

	// Geocoder
	geocoder := geocode.NewNominatim(
		cfg.Geocoder.BaseURL,
		cfg.Geocoder.UserAgent,
		time.Duration(cfg.Geocoder.TimeoutSeconds)*time.Second,
	)

	// Use cases
	captureSvc := usecases.NewCaptureService(
		cfg.Capture.ClosureToleranceMeters,
		time.Duration(cfg.Capture.SessionTTLMinutes)*time.Minute,
	)
	var publisher ports.EventPublisher
	if nc != nil {
		publisher = nc
	}
	submitSvc := usecases.NewSubmitService(captureSvc, plotRepo, geocoder, publisher,
		time.Duration(cfg.Geocoder.TimeoutSeconds)*time.Second)
	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}
	plotSvc := usecases.NewPlotService(plotRepo, cacheSvc)

	deps := &http.Dependencies{
		Capture: captureSvc,
		Submit:  submitSvc,
		Plots:   plotSvc,
		NATS:    natsConn,
		DB:      db,
		Cache:   cache,
	}

	// Session janitor: drop drawings abandoned past the TTL
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := captureSvc.Sweep(time.Now()); n > 0 {
					slog.Info("swept idle sessions", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// DB pool metrics
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Plotline API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.basobaas.com",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
