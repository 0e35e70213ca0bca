package domain

import (
	"math"

	"github.com/basobaas/plotline/internal/pkg/geospatial"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Ring is an ordered sequence of geographic coordinates describing a drawn
// plot boundary. Insertion order is significant: it defines the edges and
// winding. A closed ring repeats its first vertex as the last element.
type Ring []GeoPoint

// Closed reports whether the ring ends on an explicit duplicate of its first
// vertex. A valid closed plot has at least 4 elements (3 distinct vertices
// plus the closing duplicate).
func (r Ring) Closed() bool {
	return len(r) >= 4 && r[len(r)-1] == r[0]
}

// Vertices returns the number of ring elements excluding the closing
// duplicate, if present.
func (r Ring) Vertices() int {
	if r.Closed() {
		return len(r) - 1
	}
	return len(r)
}

// AreaSqMeters computes the enclosed area of a closed ring. Fewer than 3
// distinct vertices have no defined area and yield ErrInsufficientVertices.
func (r Ring) AreaSqMeters() (float64, error) {
	if r.Vertices() < 3 {
		return 0, ErrInsufficientVertices
	}
	lats, lons := r.split()
	return geospatial.RingAreaSqMeters(lats, lons), nil
}

// Centroid returns the arithmetic mean of the ring's vertices. This is a
// deliberate approximation of the true area-weighted centroid, adequate for
// small, roughly convex plots.
func (r Ring) Centroid() GeoPoint {
	lats, lons := r.split()
	lat, lon := geospatial.Centroid(lats, lons)
	return GeoPoint{Lat: lat, Lon: lon}
}

func (r Ring) split() (lats, lons []float64) {
	lats = make([]float64, len(r))
	lons = make([]float64, len(r))
	for i, p := range r {
		lats[i] = p.Lat
		lons[i] = p.Lon
	}
	return lats, lons
}

// Round2 rounds to 2 decimal places. Area and derived figures are rounded
// exactly once, at the boundary where they leave the geometry code, so
// repeated recomputation does not compound rounding error.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
