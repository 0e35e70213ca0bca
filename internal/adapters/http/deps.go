package http

import (
	"github.com/nats-io/nats.go"

	"github.com/basobaas/plotline/internal/adapters/postgres"
	"github.com/basobaas/plotline/internal/adapters/valkey"
	"github.com/basobaas/plotline/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Capture *usecases.CaptureService
	Submit  *usecases.SubmitService
	Plots   *usecases.PlotService
	NATS    *nats.Conn
	DB      *postgres.DB
	Cache   *valkey.Cache
}
