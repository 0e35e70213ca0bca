package domain

import (
	"strings"
	"time"

	"github.com/basobaas/plotline/internal/pkg/geospatial"
)

// AreaResult is the measured plot area, derived once per closed ring.
// Both figures carry the single boundary rounding to 2 decimal places.
type AreaResult struct {
	AreaSqMeters float64 `json:"area_sq_meters"`
	AreaSqFeet   float64 `json:"area_sq_feet"`
}

// NewAreaResult converts a raw square-meter area into the rounded result
// handed to buildable-area derivation.
func NewAreaResult(sqMeters float64) AreaResult {
	return AreaResult{
		AreaSqMeters: Round2(sqMeters),
		AreaSqFeet:   Round2(sqMeters * geospatial.SquareFeetPerSquareMeter),
	}
}

// CoveragePresets are the common coverage percentages offered for quick
// selection. They are UI sugar only: a preset value and a typed custom value
// go through identical validation and computation.
var CoveragePresets = []float64{30, 50, 75, 90}

const maxCoveragePercent = 95

// BuildableConfig is the user-chosen construction configuration.
type BuildableConfig struct {
	CoveragePercent float64 `json:"coverage_percent"`
	Floors          int     `json:"floors"`
}

// Validate checks the configuration, naming the offending field on failure.
func (c BuildableConfig) Validate() error {
	if c.CoveragePercent <= 0 || c.CoveragePercent > maxCoveragePercent {
		return &ValidationError{
			Field:  "coverage_percent",
			Reason: "must be greater than 0 and at most 95",
		}
	}
	if c.Floors < 1 {
		return &ValidationError{
			Field:  "floors",
			Reason: "must be a positive integer",
		}
	}
	return nil
}

// Derive computes the buildable footprint and total built-up area from an
// already-rounded AreaResult.
func (c BuildableConfig) Derive(area AreaResult) (buildableSqFt, builtUpSqFt float64, err error) {
	if err := c.Validate(); err != nil {
		return 0, 0, err
	}
	buildableSqFt = Round2(area.AreaSqFeet * c.CoveragePercent / 100)
	builtUpSqFt = Round2(buildableSqFt * float64(c.Floors))
	return buildableSqFt, builtUpSqFt, nil
}

// Address is the resolved location of a plot centroid. All fields are
// best-effort: a failed or partial geocode leaves them empty.
type Address struct {
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

const postalCodeWidth = 5

// NormalizePostalCode zero-pads short all-numeric postal codes to the fixed
// 5-character width. Non-numeric or already-long codes pass through.
func NormalizePostalCode(code string) string {
	if code == "" || len(code) >= postalCodeWidth {
		return code
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return code
		}
	}
	return strings.Repeat("0", postalCodeWidth-len(code)) + code
}

// Plot is the terminal output of a capture session: the drawn boundary, its
// measured area, the chosen configuration, and the derived figures. Once
// persisted it is never mutated.
type Plot struct {
	ID                string    `json:"id"`
	Boundary          Ring      `json:"boundary"`
	Centroid          GeoPoint  `json:"centroid"`
	AreaSqMeters      float64   `json:"area_sq_meters"`
	AreaSqFeet        float64   `json:"area_sq_feet"`
	CoveragePercent   float64   `json:"coverage_percent"`
	Floors            int       `json:"floors"`
	BuildableAreaSqFt float64   `json:"buildable_area_sq_ft"`
	TotalBuiltUpSqFt  float64   `json:"total_built_up_sq_ft"`
	City              string    `json:"city"`
	State             string    `json:"state"`
	PostalCode        string    `json:"postal_code"`
	LocationResolved  bool      `json:"location_resolved"`
	Distance          *float64  `json:"distance,omitempty"` // computed field
	CreatedAt         time.Time `json:"created_at"`
}

// Contractor is a construction contractor notified about nearby plot
// submissions.
type Contractor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"` // general | real_estate
	Location  GeoPoint  `json:"location"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
