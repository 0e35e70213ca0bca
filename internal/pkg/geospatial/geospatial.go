package geospatial

import "math"

const (
	earthRadiusM = 6371000.0

	// SquareFeetPerSquareMeter is the fixed conversion used throughout.
	SquareFeetPerSquareMeter = 10.7639
)

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// RingAreaSqMeters computes the enclosed area of an ordered ring of
// (lat, lon) vertices via the shoelace formula, after projecting each vertex
// onto a local tangent plane scaled about the ring's mean latitude. The
// projection keeps the formula unit-correct at any latitude; for building
// plots (tens to thousands of square meters) the planar approximation error
// is negligible. If the last vertex duplicates the first it is skipped.
// Fewer than 3 distinct vertices yield 0.
func RingAreaSqMeters(lats, lons []float64) float64 {
	n := len(lats)
	if n != len(lons) {
		return 0
	}
	if n > 1 && lats[n-1] == lats[0] && lons[n-1] == lons[0] {
		n--
	}
	if n < 3 {
		return 0
	}

	meanLat := 0.0
	for i := 0; i < n; i++ {
		meanLat += lats[i]
	}
	meanLat /= float64(n)
	cosLat := math.Cos(toRad(meanLat))

	// Planar coordinates in meters relative to the first vertex.
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = toRad(lons[i]-lons[0]) * earthRadiusM * cosLat
		ys[i] = toRad(lats[i]-lats[0]) * earthRadiusM
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += xs[i]*ys[j] - xs[j]*ys[i]
	}
	return math.Abs(sum) / 2
}

// Centroid returns the arithmetic mean of the vertices. This is not the
// area-weighted centroid; for small, roughly convex plots the vertex mean is
// an adequate stand-in for "where the plot is". A trailing closing duplicate
// is skipped so it does not bias the mean toward the first vertex.
func Centroid(lats, lons []float64) (lat, lon float64) {
	n := len(lats)
	if n == 0 || n != len(lons) {
		return 0, 0
	}
	if n > 1 && lats[n-1] == lats[0] && lons[n-1] == lons[0] {
		n--
	}
	for i := 0; i < n; i++ {
		lat += lats[i]
		lon += lons[i]
	}
	return lat / float64(n), lon / float64(n)
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
