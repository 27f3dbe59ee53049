package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		expected               float64
		tolerance              float64
	}{
		{
			name: "same point",
			lat1: -33.4489, lon1: -70.6693,
			lat2: -33.4489, lon2: -70.6693,
			expected:  0,
			tolerance: 0.001,
		},
		{
			name: "one degree of latitude",
			lat1: 0, lon1: 0,
			lat2: 1, lon2: 0,
			expected:  111195,
			tolerance: 100,
		},
		{
			name: "short city hop",
			lat1: -33.4372, lon1: -70.6506,
			lat2: -33.4420, lon2: -70.6550,
			expected:  670,
			tolerance: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DistanceMeters(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, d, tt.tolerance)
		})
	}
}

func TestDistanceSymmetry(t *testing.T) {
	pairs := [][4]float64{
		{-33.45, -70.66, -33.50, -70.70},
		{40.71, -74.0, 34.05, -118.24},
		{0, 0, 0, 180},
		{89.9, 10, -89.9, -170},
	}

	for _, p := range pairs {
		ab := DistanceMeters(p[0], p[1], p[2], p[3])
		ba := DistanceMeters(p[2], p[3], p[0], p[1])
		assert.InDelta(t, ab, ba, 1e-6)
	}
}

func TestWalkingMinutes(t *testing.T) {
	assert.InDelta(t, 12.0, WalkingMinutes(1000), 0.05)
	assert.Equal(t, 0, WalkingMinutesCeil(0))
	assert.Equal(t, 1, WalkingMinutesCeil(50))
	// 1 km rounds up to 13 minutes, never down.
	assert.Equal(t, 13, WalkingMinutesCeil(1000))
}

func TestBoundsAround(t *testing.T) {
	b := BoundsAround(-33.45, -70.66, 500)

	assert.Less(t, b.MinLat, -33.45)
	assert.Greater(t, b.MaxLat, -33.45)
	assert.True(t, b.Contains(Point{Lat: -33.45, Lon: -70.66}))

	// Longitude span must widen away from the equator.
	lonSpan := b.MaxLon - b.MinLon
	latSpan := b.MaxLat - b.MinLat
	assert.Greater(t, lonSpan, latSpan)
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: -33.45, Lon: -70.66}.Valid())
	assert.False(t, Point{Lat: 91, Lon: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lon: -181}.Valid())
}

func TestQuantize(t *testing.T) {
	assert.Equal(t, -33.4489, Quantize(-33.44891234))
	assert.Equal(t, Quantize(-33.44891), Quantize(-33.44894))
}
