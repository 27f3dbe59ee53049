// Package geo provides the geospatial primitives the journey planner
// is built on: great-circle distance, walking-time conversion and
// approximate bounding boxes for radius queries.
package geo

import "math"

const (
	earthRadiusMeters = 6371000.0

	// WalkingSpeedMetersPerMinute is roughly 5 km/h.
	WalkingSpeedMetersPerMinute = 83.33

	// latDegreeMeters is the length of one degree of latitude.
	latDegreeMeters = 111000.0
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// Valid reports whether the point lies inside the WGS84 coordinate ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Bounds is a latitude/longitude bounding box.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether p falls inside the box.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// DistanceMeters returns the haversine great-circle distance between
// two coordinates, in meters.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Distance is DistanceMeters over two Points.
func Distance(a, b Point) float64 {
	return DistanceMeters(a.Lat, a.Lon, b.Lat, b.Lon)
}

// WalkingMinutes converts a distance in meters to walking minutes at
// ~5 km/h. No rounding is applied; callers decide how to round.
func WalkingMinutes(distanceMeters float64) float64 {
	return distanceMeters / WalkingSpeedMetersPerMinute
}

// WalkingMinutesCeil converts a distance to whole walking minutes,
// rounded up so walking time is never under-promised.
func WalkingMinutesCeil(distanceMeters float64) int {
	if distanceMeters <= 0 {
		return 0
	}
	return int(math.Ceil(WalkingMinutes(distanceMeters)))
}

// BoundsAround computes an approximate bounding box covering a circle
// of radiusMeters around a point. The longitude span is corrected by
// cos(latitude) so the box does not shrink toward the equator.
func BoundsAround(lat, lon, radiusMeters float64) Bounds {
	latDelta := radiusMeters / latDegreeMeters

	lonDegreeMeters := latDegreeMeters * math.Cos(lat*math.Pi/180)
	lonDelta := latDelta
	if lonDegreeMeters > 1 {
		lonDelta = radiusMeters / lonDegreeMeters
	}

	return Bounds{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}
}

// Quantize rounds a coordinate to 4 decimal places (~11 m), used to
// build cache keys that tolerate GPS jitter.
func Quantize(coord float64) float64 {
	return math.Round(coord*10000) / 10000
}
