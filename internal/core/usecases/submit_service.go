package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/basobaas/plotline/internal/core/domain"
	"github.com/basobaas/plotline/internal/core/ports"
	"github.com/basobaas/plotline/internal/pkg/metrics"
)

// SubmitService turns a closed drawing session plus a buildable
// configuration into a persisted, published Plot. It is the only path from
// ephemeral session state into the durable store.
type SubmitService struct {
	capture   *CaptureService
	plots     ports.PlotRepository
	geocoder  ports.Geocoder
	publisher ports.EventPublisher

	geocodeTimeout time.Duration
}

// NewSubmitService creates a SubmitService. geocoder and publisher may be
// nil; both are best-effort collaborators.
func NewSubmitService(
	capture *CaptureService,
	plots ports.PlotRepository,
	geocoder ports.Geocoder,
	publisher ports.EventPublisher,
	geocodeTimeout time.Duration,
) *SubmitService {
	if geocodeTimeout <= 0 {
		geocodeTimeout = 3 * time.Second
	}
	return &SubmitService{
		capture:        capture,
		plots:          plots,
		geocoder:       geocoder,
		publisher:      publisher,
		geocodeTimeout: geocodeTimeout,
	}
}

// Submit validates the configuration, derives the buildable figures,
// resolves the centroid location, and persists the plot. Validation failures
// and geometry errors leave the session untouched. A geocode failure never
// discards the numeric result: the plot is stored with empty location fields
// and LocationResolved=false.
func (s *SubmitService) Submit(ctx context.Context, sessionID string, cfg domain.BuildableConfig) (*domain.Plot, error) {
	// Validate before touching session state.
	if err := cfg.Validate(); err != nil {
		metrics.PlotsSubmitted.WithLabelValues("invalid_config").Inc()
		return nil, err
	}

	ring, area, err := s.capture.beginSubmit(sessionID)
	if err != nil {
		return nil, err
	}

	buildable, builtUp, err := cfg.Derive(area)
	if err != nil {
		s.capture.endSubmit(sessionID, false)
		return nil, err
	}

	centroid := ring.Centroid()
	addr, resolved := s.resolveLocation(ctx, centroid)

	plot := &domain.Plot{
		ID:                uuid.NewString(),
		Boundary:          ring,
		Centroid:          centroid,
		AreaSqMeters:      area.AreaSqMeters,
		AreaSqFeet:        area.AreaSqFeet,
		CoveragePercent:   cfg.CoveragePercent,
		Floors:            cfg.Floors,
		BuildableAreaSqFt: buildable,
		TotalBuiltUpSqFt:  builtUp,
		City:              addr.City,
		State:             addr.State,
		PostalCode:        addr.PostalCode,
		LocationResolved:  resolved,
		CreatedAt:         time.Now(),
	}

	if err := s.plots.Insert(ctx, plot); err != nil {
		s.capture.endSubmit(sessionID, false)
		metrics.PlotsSubmitted.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("insert plot: %w", err)
	}

	// Downstream consumers (cost calculator, contractor notifier) pick the
	// plot up from the broker; publish failures are best-effort.
	if s.publisher != nil {
		if err := s.publisher.PublishPlotSubmitted(ctx, plot); err != nil {
			slog.Warn("publish plot submitted", "plot_id", plot.ID, "error", err)
		}
	}

	s.capture.endSubmit(sessionID, true)
	metrics.PlotsSubmitted.WithLabelValues("ok").Inc()
	return plot, nil
}

// resolveLocation reverse-geocodes the centroid with a bounded timeout.
// Failure yields empty fields, never an error: the area figures are already
// computed and must survive.
func (s *SubmitService) resolveLocation(ctx context.Context, centroid domain.GeoPoint) (domain.Address, bool) {
	if s.geocoder == nil {
		return domain.Address{}, false
	}

	gctx, cancel := context.WithTimeout(ctx, s.geocodeTimeout)
	defer cancel()

	start := time.Now()
	addr, err := s.geocoder.Reverse(gctx, centroid)
	metrics.GeocodeDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GeocodeRequests.WithLabelValues("error").Inc()
		gerr := &domain.GeocodeError{Err: err}
		slog.Warn("centroid lookup failed, keeping area figures",
			"lat", centroid.Lat, "lon", centroid.Lon, "error", gerr)
		return domain.Address{}, false
	}

	metrics.GeocodeRequests.WithLabelValues("ok").Inc()
	addr.PostalCode = domain.NormalizePostalCode(addr.PostalCode)
	return addr, true
}
