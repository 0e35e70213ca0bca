package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/basobaas/plotline/internal/core/domain"
	"github.com/basobaas/plotline/internal/core/usecases"
)

// --- Mocks ---

type mockPlotRepo struct {
	insertFn     func(ctx context.Context, p *domain.Plot) error
	getByIDFn    func(ctx context.Context, id string) (*domain.Plot, error)
	listFn       func(ctx context.Context, offset, limit int) ([]domain.Plot, int, error)
	findNearbyFn func(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Plot, error)
}

func (m *mockPlotRepo) Insert(ctx context.Context, p *domain.Plot) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, p)
	}
	return nil
}

func (m *mockPlotRepo) GetByID(ctx context.Context, id string) (*domain.Plot, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockPlotRepo) List(ctx context.Context, offset, limit int) ([]domain.Plot, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockPlotRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Plot, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lon, radiusMeters, limit)
	}
	return nil, nil
}

type mockGeocoder struct {
	reverseFn func(ctx context.Context, p domain.GeoPoint) (domain.Address, error)
}

func (m *mockGeocoder) Reverse(ctx context.Context, p domain.GeoPoint) (domain.Address, error) {
	if m.reverseFn != nil {
		return m.reverseFn(ctx, p)
	}
	return domain.Address{}, nil
}

type mockPublisher struct {
	publishFn func(ctx context.Context, plot *domain.Plot) error
}

func (m *mockPublisher) PublishPlotSubmitted(ctx context.Context, plot *domain.Plot) error {
	if m.publishFn != nil {
		return m.publishFn(ctx, plot)
	}
	return nil
}

func (m *mockPublisher) PublishBroadcast(ctx context.Context, data []byte) error { return nil }

// --- Tests ---

func TestSubmit_Success(t *testing.T) {
	capture := usecases.NewCaptureService(0, 0)
	id := drawClosedSquare(t, capture)

	var stored *domain.Plot
	repo := &mockPlotRepo{
		insertFn: func(ctx context.Context, p *domain.Plot) error {
			stored = p
			return nil
		},
	}
	geocoder := &mockGeocoder{
		reverseFn: func(ctx context.Context, p domain.GeoPoint) (domain.Address, error) {
			return domain.Address{City: "Kathmandu", State: "Bagmati", PostalCode: "446"}, nil
		},
	}
	var published bool
	pub := &mockPublisher{
		publishFn: func(ctx context.Context, plot *domain.Plot) error {
			published = true
			return nil
		},
	}

	svc := usecases.NewSubmitService(capture, repo, geocoder, pub, 0)
	plot, err := svc.Submit(context.Background(), id, domain.BuildableConfig{CoveragePercent: 50, Floors: 2})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if stored == nil || stored.ID != plot.ID {
		t.Fatal("plot not stored")
	}
	if !plot.Boundary.Closed() {
		t.Error("stored boundary not closed")
	}
	if plot.BuildableAreaSqFt != domain.Round2(plot.AreaSqFeet*0.5) {
		t.Errorf("buildable %f inconsistent with area %f", plot.BuildableAreaSqFt, plot.AreaSqFeet)
	}
	if plot.TotalBuiltUpSqFt != domain.Round2(plot.BuildableAreaSqFt*2) {
		t.Errorf("built-up %f inconsistent with buildable %f", plot.TotalBuiltUpSqFt, plot.BuildableAreaSqFt)
	}
	if plot.City != "Kathmandu" || plot.State != "Bagmati" {
		t.Errorf("location not resolved: %+v", plot)
	}
	if plot.PostalCode != "00446" {
		t.Errorf("postal code not normalized: %s", plot.PostalCode)
	}
	if !plot.LocationResolved {
		t.Error("LocationResolved should be true")
	}
	if !published {
		t.Error("plot submitted event not published")
	}

	// Success resets the session for the next drawing.
	view, err := capture.Get(id)
	if err != nil {
		t.Fatalf("get after submit: %v", err)
	}
	if view.State != domain.StateIdle {
		t.Errorf("expected idle after submit, got %s", view.State)
	}
}

func TestSubmit_GeocodeFailureKeepsFigures(t *testing.T) {
	capture := usecases.NewCaptureService(0, 0)
	id := drawClosedSquare(t, capture)

	var stored *domain.Plot
	repo := &mockPlotRepo{
		insertFn: func(ctx context.Context, p *domain.Plot) error {
			stored = p
			return nil
		},
	}
	geocoder := &mockGeocoder{
		reverseFn: func(ctx context.Context, p domain.GeoPoint) (domain.Address, error) {
			return domain.Address{}, errors.New("upstream 503")
		},
	}

	svc := usecases.NewSubmitService(capture, repo, geocoder, nil, 0)
	plot, err := svc.Submit(context.Background(), id, domain.BuildableConfig{CoveragePercent: 75, Floors: 1})
	if err != nil {
		t.Fatalf("submit should survive geocode failure: %v", err)
	}

	if stored == nil {
		t.Fatal("plot not stored")
	}
	if plot.LocationResolved {
		t.Error("LocationResolved should be false")
	}
	if plot.City != "" || plot.State != "" || plot.PostalCode != "" {
		t.Errorf("expected empty location fields, got %+v", plot)
	}
	if plot.AreaSqMeters <= 0 || plot.BuildableAreaSqFt <= 0 {
		t.Errorf("area figures lost: %+v", plot)
	}
}

func TestSubmit_SlowGeocoderBounded(t *testing.T) {
	capture := usecases.NewCaptureService(0, 0)
	id := drawClosedSquare(t, capture)

	geocoder := &mockGeocoder{
		reverseFn: func(ctx context.Context, p domain.GeoPoint) (domain.Address, error) {
			<-ctx.Done()
			return domain.Address{}, ctx.Err()
		},
	}

	svc := usecases.NewSubmitService(capture, &mockPlotRepo{}, geocoder, nil, 50*time.Millisecond)

	start := time.Now()
	plot, err := svc.Submit(context.Background(), id, domain.BuildableConfig{CoveragePercent: 50, Floors: 1})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("submit blocked on geocoder for %s", elapsed)
	}
	if plot.LocationResolved {
		t.Error("timed-out geocode should leave LocationResolved false")
	}
}

func TestSubmit_InvalidConfigLeavesSessionUntouched(t *testing.T) {
	capture := usecases.NewCaptureService(0, 0)
	id := drawClosedSquare(t, capture)

	inserted := false
	repo := &mockPlotRepo{
		insertFn: func(ctx context.Context, p *domain.Plot) error {
			inserted = true
			return nil
		},
	}

	svc := usecases.NewSubmitService(capture, repo, nil, nil, 0)
	_, err := svc.Submit(context.Background(), id, domain.BuildableConfig{CoveragePercent: 96, Floors: 1})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if inserted {
		t.Error("plot stored despite invalid config")
	}

	view, _ := capture.Get(id)
	if view.State != domain.StateClosed {
		t.Errorf("session state changed by rejected submit: %s", view.State)
	}
}

func TestSubmit_OpenRingRejected(t *testing.T) {
	capture := usecases.NewCaptureService(0, 0)
	view := capture.Start()
	capture.Tap(view.ID, sq1)
	capture.Tap(view.ID, sq2)
	capture.Tap(view.ID, sq3)
	capture.Tap(view.ID, sq4)

	svc := usecases.NewSubmitService(capture, &mockPlotRepo{}, nil, nil, 0)
	_, err := svc.Submit(context.Background(), view.ID, domain.BuildableConfig{CoveragePercent: 50, Floors: 1})
	if !errors.Is(err, domain.ErrRingNotClosed) {
		t.Errorf("expected ErrRingNotClosed, got %v", err)
	}
}

func TestSubmit_StoreErrorAllowsRetry(t *testing.T) {
	capture := usecases.NewCaptureService(0, 0)
	id := drawClosedSquare(t, capture)

	calls := 0
	repo := &mockPlotRepo{
		insertFn: func(ctx context.Context, p *domain.Plot) error {
			calls++
			if calls == 1 {
				return errors.New("connection reset")
			}
			return nil
		},
	}

	svc := usecases.NewSubmitService(capture, repo, nil, nil, 0)

	if _, err := svc.Submit(context.Background(), id, domain.BuildableConfig{CoveragePercent: 50, Floors: 1}); err == nil {
		t.Fatal("expected store error")
	}

	// The closed ring survives a failed store so the user can retry.
	view, _ := capture.Get(id)
	if view.State != domain.StateClosed {
		t.Fatalf("ring lost after store failure: %s", view.State)
	}

	if _, err := svc.Submit(context.Background(), id, domain.BuildableConfig{CoveragePercent: 50, Floors: 1}); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestSubmit_ReentrantSubmitRejected(t *testing.T) {
	capture := usecases.NewCaptureService(0, 0)
	id := drawClosedSquare(t, capture)

	entered := make(chan struct{})
	release := make(chan struct{})
	repo := &mockPlotRepo{
		insertFn: func(ctx context.Context, p *domain.Plot) error {
			close(entered)
			<-release
			return nil
		},
	}

	svc := usecases.NewSubmitService(capture, repo, nil, nil, 0)
	cfg := domain.BuildableConfig{CoveragePercent: 50, Floors: 1}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), id, cfg)
		done <- err
	}()
	<-entered

	// The second submit of the same session must be rejected while the
	// first is still in flight.
	_, err := svc.Submit(context.Background(), id, cfg)
	if !errors.Is(err, domain.ErrSubmissionInFlight) {
		t.Errorf("expected ErrSubmissionInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
}

func TestSubmit_SessionNotFound(t *testing.T) {
	capture := usecases.NewCaptureService(0, 0)
	svc := usecases.NewSubmitService(capture, &mockPlotRepo{}, nil, nil, 0)
	_, err := svc.Submit(context.Background(), "missing", domain.BuildableConfig{CoveragePercent: 50, Floors: 1})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSubmit_PublishFailureIsBestEffort(t *testing.T) {
	capture := usecases.NewCaptureService(0, 0)
	id := drawClosedSquare(t, capture)

	pub := &mockPublisher{
		publishFn: func(ctx context.Context, plot *domain.Plot) error {
			return errors.New("broker down")
		},
	}

	svc := usecases.NewSubmitService(capture, &mockPlotRepo{}, nil, pub, 0)
	if _, err := svc.Submit(context.Background(), id, domain.BuildableConfig{CoveragePercent: 50, Floors: 1}); err != nil {
		t.Fatalf("publish failure should not fail submit: %v", err)
	}
}
