package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/basobaas/plotline/internal/core/domain"
)

// pointRequest is the body for tap and cursor updates.
type pointRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (r pointRequest) validate() error {
	if r.Lat < -90 || r.Lat > 90 {
		return &domain.ValidationError{Field: "lat", Reason: "must be between -90 and 90"}
	}
	if r.Lon < -180 || r.Lon > 180 {
		return &domain.ValidationError{Field: "lon", Reason: "must be between -180 and 180"}
	}
	return nil
}

// StartSessionHandler creates a new drawing session.
func StartSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view := deps.Capture.Start()
		return c.Status(201).JSON(view)
	}
}

// GetSessionHandler returns the current state of a session.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := deps.Capture.Get(c.Params("id"))
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(view)
	}
}

// CancelSessionHandler discards a session and everything drawn in it.
func CancelSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Capture.Cancel(c.Params("id")); err != nil {
			return mapDomainError(c, err)
		}
		return c.SendStatus(204)
	}
}

// TapHandler records a map tap. Taps outside the drawing state are not
// errors: the response carries accepted=false and the unchanged session.
func TapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req pointRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := req.validate(); err != nil {
			return mapDomainError(c, err)
		}

		view, res, err := deps.Capture.Tap(c.Params("id"), domain.GeoPoint{Lat: req.Lat, Lon: req.Lon})
		if err != nil {
			return mapDomainError(c, err)
		}

		return c.JSON(fiber.Map{
			"accepted": res.Accepted,
			"closed":   res.Closed,
			"session":  view,
		})
	}
}

// CursorHandler updates the live preview cursor position.
func CursorHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req pointRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := req.validate(); err != nil {
			return mapDomainError(c, err)
		}

		view, err := deps.Capture.Cursor(c.Params("id"), domain.GeoPoint{Lat: req.Lat, Lon: req.Lon})
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(view)
	}
}

// UndoHandler removes the most recently captured point.
func UndoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := deps.Capture.Undo(c.Params("id"))
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(view)
	}
}

// ClearHandler empties the session's drawn path.
func ClearHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := deps.Capture.Clear(c.Params("id"))
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(view)
	}
}

// ConfirmAreaHandler computes the enclosed area of a closed session.
func ConfirmAreaHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		area, err := deps.Capture.ConfirmArea(c.Params("id"))
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(area)
	}
}

// submitRequest is the body for plot submission.
type submitRequest struct {
	CoveragePercent float64 `json:"coverage_percent"`
	Floors          int     `json:"floors"`
}

// SubmitHandler persists a closed session as a plot with buildable figures.
func SubmitHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req submitRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		plot, err := deps.Submit.Submit(c.UserContext(), c.Params("id"), domain.BuildableConfig{
			CoveragePercent: req.CoveragePercent,
			Floors:          req.Floors,
		})
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.Status(201).JSON(plot)
	}
}

// CoveragePresetsHandler returns the coverage percentages offered by the
// buildable-area selector.
func CoveragePresetsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(fiber.Map{"presets": domain.CoveragePresets})
	}
}

// ListPlotsHandler returns saved plots newest-first with pagination.
func ListPlotsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := pageParams(c)

		plots, total, err := deps.Plots.List(c.Context(), offset, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: plots, Pagination: pg})
	}
}

// GetPlotHandler returns a single saved plot.
func GetPlotHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "plot id is required")
		}
		plot, err := deps.Plots.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "plot not found")
		}
		return c.JSON(plot)
	}
}

// NearbyPlotsHandler returns plots whose centroid lies within a radius.
func NearbyPlotsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Presence, not value: (0, 0) is a legitimate coordinate.
		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 1000)
		limit := c.QueryInt("limit", 20)

		if err := (pointRequest{Lat: lat, Lon: lon}).validate(); err != nil {
			return mapDomainError(c, err)
		}
		if radius <= 0 || radius > 50000 {
			return errBadRequest(c, "radius must be between 1 and 50000 meters")
		}
		if limit <= 0 || limit > 50 {
			limit = 20
		}

		plots, err := deps.Plots.FindNearby(c.Context(), lat, lon, radius, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(plots)
	}
}

// PlotGeoJSONHandler exports a plot boundary as a GeoJSON Feature.
func PlotGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "plot id is required")
		}
		plot, err := deps.Plots.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "plot not found")
		}

		ring := make(orb.Ring, 0, len(plot.Boundary))
		for _, p := range plot.Boundary {
			ring = append(ring, orb.Point{p.Lon, p.Lat})
		}

		feature := geojson.NewFeature(orb.Polygon{ring})
		feature.ID = plot.ID
		feature.Properties = geojson.Properties{
			"area_sq_meters":       plot.AreaSqMeters,
			"area_sq_feet":         plot.AreaSqFeet,
			"coverage_percent":     plot.CoveragePercent,
			"floors":               plot.Floors,
			"buildable_area_sq_ft": plot.BuildableAreaSqFt,
			"total_built_up_sq_ft": plot.TotalBuiltUpSqFt,
			"city":                 plot.City,
			"state":                plot.State,
			"postal_code":          plot.PostalCode,
		}

		c.Set("Content-Type", "application/geo+json")
		return c.JSON(feature)
	}
}
