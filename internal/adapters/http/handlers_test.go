package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/basobaas/plotline/internal/adapters/http"
	"github.com/basobaas/plotline/internal/core/domain"
	"github.com/basobaas/plotline/internal/core/usecases"
)

// ---- Mock repositories ----

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
	return nil, fmt.Errorf("no rows")
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

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	capture := usecases.NewCaptureService(0, 0)
	repo := &mockPlotRepo{}
	d := &handler.Dependencies{
		Capture: capture,
		Submit:  usecases.NewSubmitService(capture, repo, &mockGeocoder{}, nil, 0),
		Plots:   usecases.NewPlotService(repo, nil),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, readBody(t, resp.Body)
}

type sessionResp struct {
	ID         string             `json:"id"`
	State      domain.SketchState `json:"state"`
	Points     []domain.GeoPoint  `json:"points"`
	CanConfirm bool               `json:"can_confirm"`
	PointCount int                `json:"point_count"`
}

func startSession(t *testing.T, app *fiber.App) sessionResp {
	t.Helper()
	code, body := doJSON(t, app, "POST", "/v1/sessions", "")
	if code != 201 {
		t.Fatalf("start session: expected 201, got %d: %s", code, body)
	}
	var s sessionResp
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return s
}

func tap(t *testing.T, app *fiber.App, id string, lat, lon float64) (bool, bool) {
	t.Helper()
	code, body := doJSON(t, app, "POST", "/v1/sessions/"+id+"/points",
		fmt.Sprintf(`{"lat":%f,"lon":%f}`, lat, lon))
	if code != 200 {
		t.Fatalf("tap: expected 200, got %d: %s", code, body)
	}
	var res struct {
		Accepted bool `json:"accepted"`
		Closed   bool `json:"closed"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("decode tap: %v", err)
	}
	return res.Accepted, res.Closed
}

// closeSquare taps a ~111m square closed and returns the session ID.
func closeSquare(t *testing.T, app *fiber.App) string {
	t.Helper()
	s := startSession(t, app)
	tap(t, app, s.ID, 27.7000, 85.3000)
	tap(t, app, s.ID, 27.7010, 85.3000)
	tap(t, app, s.ID, 27.7010, 85.3010)
	tap(t, app, s.ID, 27.7000, 85.3010)
	if _, closed := tap(t, app, s.ID, 27.70003, 85.3000); !closed {
		t.Fatal("closing tap did not close the ring")
	}
	return s.ID
}

// ---- Session handler tests ----

func TestSessionLifecycle(t *testing.T) {
	app := setupApp(makeDeps())
	id := closeSquare(t, app)

	code, body := doJSON(t, app, "GET", "/v1/sessions/"+id, "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var s sessionResp
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatal(err)
	}
	if s.State != domain.StateClosed || !s.CanConfirm || s.PointCount != 5 {
		t.Errorf("unexpected session: %+v", s)
	}
}

func TestTap_IgnoredAfterClosure(t *testing.T) {
	app := setupApp(makeDeps())
	id := closeSquare(t, app)

	accepted, closed := tap(t, app, id, 27.705, 85.305)
	if accepted || closed {
		t.Errorf("tap on closed session: accepted=%v closed=%v", accepted, closed)
	}
}

func TestTap_InvalidBody(t *testing.T) {
	app := setupApp(makeDeps())
	s := startSession(t, app)

	code, _ := doJSON(t, app, "POST", "/v1/sessions/"+s.ID+"/points", `{not json`)
	if code != 400 {
		t.Errorf("expected 400, got %d", code)
	}

	code, body := doJSON(t, app, "POST", "/v1/sessions/"+s.ID+"/points", `{"lat":95,"lon":0}`)
	if code != 400 {
		t.Errorf("expected 400 for out-of-range lat, got %d", code)
	}
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Code != "validation_error" || apiErr.Field != "lat" {
		t.Errorf("expected validation_error on lat, got %+v", apiErr)
	}
}

func TestSession_NotFound(t *testing.T) {
	app := setupApp(makeDeps())
	code, body := doJSON(t, app, "GET", "/v1/sessions/nope", "")
	if code != 404 {
		t.Fatalf("expected 404, got %d", code)
	}
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Code != "not_found" {
		t.Errorf("expected not_found, got %s", apiErr.Code)
	}
}

func TestUndo_ReopensClosedSession(t *testing.T) {
	app := setupApp(makeDeps())
	id := closeSquare(t, app)

	code, body := doJSON(t, app, "POST", "/v1/sessions/"+id+"/undo", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var s sessionResp
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatal(err)
	}
	if s.State != domain.StateDrawing || s.PointCount != 4 {
		t.Errorf("unexpected session after undo: %+v", s)
	}
}

func TestClearAndCancel(t *testing.T) {
	app := setupApp(makeDeps())
	id := closeSquare(t, app)

	code, body := doJSON(t, app, "POST", "/v1/sessions/"+id+"/clear", "")
	if code != 200 {
		t.Fatalf("clear: expected 200, got %d", code)
	}
	var s sessionResp
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatal(err)
	}
	if s.State != domain.StateIdle || s.PointCount != 0 {
		t.Errorf("unexpected session after clear: %+v", s)
	}

	code, _ = doJSON(t, app, "DELETE", "/v1/sessions/"+id, "")
	if code != 204 {
		t.Fatalf("cancel: expected 204, got %d", code)
	}
	code, _ = doJSON(t, app, "GET", "/v1/sessions/"+id, "")
	if code != 404 {
		t.Errorf("expected 404 after cancel, got %d", code)
	}
}

func TestConfirmArea(t *testing.T) {
	app := setupApp(makeDeps())
	id := closeSquare(t, app)

	code, body := doJSON(t, app, "POST", "/v1/sessions/"+id+"/area", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, body)
	}
	var area domain.AreaResult
	if err := json.Unmarshal(body, &area); err != nil {
		t.Fatal(err)
	}
	if area.AreaSqMeters < 10500 || area.AreaSqMeters > 11500 {
		t.Errorf("unexpected area: %f", area.AreaSqMeters)
	}
}

func TestConfirmArea_OpenRing(t *testing.T) {
	app := setupApp(makeDeps())
	s := startSession(t, app)
	tap(t, app, s.ID, 27.7000, 85.3000)
	tap(t, app, s.ID, 27.7010, 85.3000)

	code, body := doJSON(t, app, "POST", "/v1/sessions/"+s.ID+"/area", "")
	if code != 422 {
		t.Fatalf("expected 422, got %d", code)
	}
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Code != "insufficient_vertices" {
		t.Errorf("expected insufficient_vertices, got %s", apiErr.Code)
	}
}

// ---- Submit handler tests ----

func TestSubmit_Success(t *testing.T) {
	var stored *domain.Plot
	deps := makeDeps()
	capture := deps.Capture
	repo := &mockPlotRepo{
		insertFn: func(ctx context.Context, p *domain.Plot) error {
			stored = p
			return nil
		},
	}
	geocoder := &mockGeocoder{
		reverseFn: func(ctx context.Context, p domain.GeoPoint) (domain.Address, error) {
			return domain.Address{City: "Kathmandu", State: "Bagmati", PostalCode: "44600"}, nil
		},
	}
	deps.Submit = usecases.NewSubmitService(capture, repo, geocoder, nil, 0)
	app := setupApp(deps)

	id := closeSquare(t, app)
	code, body := doJSON(t, app, "POST", "/v1/sessions/"+id+"/submit",
		`{"coverage_percent":50,"floors":2}`)
	if code != 201 {
		t.Fatalf("expected 201, got %d: %s", code, body)
	}

	var plot domain.Plot
	if err := json.Unmarshal(body, &plot); err != nil {
		t.Fatal(err)
	}
	if stored == nil || plot.ID == "" {
		t.Fatal("plot not stored")
	}
	if plot.City != "Kathmandu" || !plot.LocationResolved {
		t.Errorf("location not resolved: %+v", plot)
	}
	if plot.Floors != 2 || plot.CoveragePercent != 50 {
		t.Errorf("config not carried: %+v", plot)
	}
}

func TestSubmit_InvalidCoverage(t *testing.T) {
	app := setupApp(makeDeps())
	id := closeSquare(t, app)

	code, body := doJSON(t, app, "POST", "/v1/sessions/"+id+"/submit",
		`{"coverage_percent":96,"floors":1}`)
	if code != 400 {
		t.Errorf("expected 400, got %d", code)
	}
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Code != "validation_error" {
		t.Errorf("expected validation_error, got %s", apiErr.Code)
	}
	if apiErr.Field != "coverage_percent" {
		t.Errorf("expected coverage_percent named, got %q", apiErr.Field)
	}
}

func TestSubmit_OpenRing(t *testing.T) {
	app := setupApp(makeDeps())
	s := startSession(t, app)
	tap(t, app, s.ID, 27.7000, 85.3000)
	tap(t, app, s.ID, 27.7010, 85.3000)
	tap(t, app, s.ID, 27.7010, 85.3010)
	tap(t, app, s.ID, 27.7000, 85.3010)

	code, body := doJSON(t, app, "POST", "/v1/sessions/"+s.ID+"/submit",
		`{"coverage_percent":50,"floors":1}`)
	if code != 422 {
		t.Fatalf("expected 422, got %d", code)
	}
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Code != "ring_not_closed" {
		t.Errorf("expected ring_not_closed, got %s", apiErr.Code)
	}
}

// ---- Preset and plot read tests ----

func TestCoveragePresets(t *testing.T) {
	app := setupApp(makeDeps())
	code, body := doJSON(t, app, "GET", "/v1/presets/coverage", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var result struct {
		Presets []float64 `json:"presets"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	want := []float64{30, 50, 75, 90}
	if len(result.Presets) != len(want) {
		t.Fatalf("expected %d presets, got %d", len(want), len(result.Presets))
	}
	for i, p := range want {
		if result.Presets[i] != p {
			t.Errorf("preset[%d] = %f, want %f", i, result.Presets[i], p)
		}
	}
}

func TestListPlots_Paginated(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Plots = usecases.NewPlotService(&mockPlotRepo{
			listFn: func(ctx context.Context, offset, limit int) ([]domain.Plot, int, error) {
				return []domain.Plot{{ID: "p1"}, {ID: "p2"}}, 12, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/plots?offset=0&limit=2", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if link := resp.Header.Get("Link"); !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link, got %q", link)
	}

	var result struct {
		Data       []domain.Plot      `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Data) != 2 || result.Pagination.Total != 12 {
		t.Errorf("unexpected page: %+v", result)
	}
}

func TestGetPlot_NotFound(t *testing.T) {
	app := setupApp(makeDeps())
	code, _ := doJSON(t, app, "GET", "/v1/plots/missing", "")
	if code != 404 {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestNearbyPlots_RequiresCoordinates(t *testing.T) {
	app := setupApp(makeDeps())
	code, _ := doJSON(t, app, "GET", "/v1/plots/nearby", "")
	if code != 400 {
		t.Errorf("expected 400, got %d", code)
	}

	code, _ = doJSON(t, app, "GET", "/v1/plots/nearby?lat=95&lon=0", "")
	if code != 400 {
		t.Errorf("expected 400 for out-of-range lat, got %d", code)
	}
}

func TestNearbyPlots_AcceptsZeroCoordinates(t *testing.T) {
	// (0, 0) is in the Gulf of Guinea, not an absent parameter.
	var gotLat, gotLon float64 = -1, -1
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Plots = usecases.NewPlotService(&mockPlotRepo{
			findNearbyFn: func(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Plot, error) {
				gotLat, gotLon = lat, lon
				return nil, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	code, _ := doJSON(t, app, "GET", "/v1/plots/nearby?lat=0&lon=0", "")
	if code != 200 {
		t.Fatalf("expected 200 for equator/prime-meridian query, got %d", code)
	}
	if gotLat != 0 || gotLon != 0 {
		t.Errorf("expected query at (0, 0), got (%f, %f)", gotLat, gotLon)
	}
}

func TestPlotGeoJSON(t *testing.T) {
	boundary := domain.Ring{
		{Lat: 27.7000, Lon: 85.3000},
		{Lat: 27.7010, Lon: 85.3000},
		{Lat: 27.7010, Lon: 85.3010},
		{Lat: 27.7000, Lon: 85.3000},
	}
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Plots = usecases.NewPlotService(&mockPlotRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Plot, error) {
				return &domain.Plot{ID: id, Boundary: boundary, AreaSqFeet: 2000}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	code, body := doJSON(t, app, "GET", "/v1/plots/p1/geojson", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}

	var feature struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string         `json:"type"`
			Coordinates [][][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]interface{} `json:"properties"`
	}
	if err := json.Unmarshal(body, &feature); err != nil {
		t.Fatal(err)
	}
	if feature.Type != "Feature" || feature.Geometry.Type != "Polygon" {
		t.Errorf("unexpected geometry: %+v", feature)
	}
	if len(feature.Geometry.Coordinates) != 1 || len(feature.Geometry.Coordinates[0]) != 4 {
		t.Errorf("unexpected ring shape: %+v", feature.Geometry.Coordinates)
	}
	// GeoJSON positions are [lon, lat].
	first := feature.Geometry.Coordinates[0][0]
	if first[0] != 85.3000 || first[1] != 27.7000 {
		t.Errorf("expected [lon, lat] ordering, got %v", first)
	}
	if feature.Properties["area_sq_feet"].(float64) != 2000 {
		t.Errorf("area property missing: %v", feature.Properties)
	}
}

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())
	code, body := doJSON(t, app, "GET", "/v1/health", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if !strings.Contains(string(body), "healthy") {
		t.Errorf("unexpected health body: %s", body)
	}
}

func TestReady_NoDatabase(t *testing.T) {
	app := setupApp(makeDeps())
	code, _ := doJSON(t, app, "GET", "/v1/ready", "")
	if code != 503 {
		t.Errorf("expected 503 without database, got %d", code)
	}
}

// ---- GraphQL tests ----

func TestGraphQL_CoveragePresets(t *testing.T) {
	app := setupApp(makeDeps())
	code, body := doJSON(t, app, "POST", "/graphql",
		`{"query":"{ coveragePresets }"}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var result struct {
		Data struct {
			CoveragePresets []float64 `json:"coveragePresets"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Data.CoveragePresets) != 4 {
		t.Errorf("expected 4 presets, got %v", result.Data.CoveragePresets)
	}
}

func TestGraphQL_Plot(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Plots = usecases.NewPlotService(&mockPlotRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Plot, error) {
				return &domain.Plot{ID: id, City: "Lalitpur", AreaSqFeet: 1500}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	code, body := doJSON(t, app, "POST", "/graphql",
		`{"query":"{ plot(id: \"p1\") { id city area_sq_feet } }"}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var result struct {
		Data struct {
			Plot struct {
				ID         string  `json:"id"`
				City       string  `json:"city"`
				AreaSqFeet float64 `json:"area_sq_feet"`
			} `json:"plot"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("graphql errors: %v", result.Errors)
	}
	if result.Data.Plot.City != "Lalitpur" || result.Data.Plot.AreaSqFeet != 1500 {
		t.Errorf("unexpected plot: %+v", result.Data.Plot)
	}
}
