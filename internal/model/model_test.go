package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGTFSTime(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		wantErr  bool
	}{
		{"00:00:00", 0, false},
		{"08:30:00", 8*3600 + 30*60, false},
		{"23:59:59", 86399, false},
		{"25:15:00", 25*3600 + 15*60, false}, // next-day continuation
		{" 07:05:30", 7*3600 + 5*60 + 30, false},
		{"8:30", 0, true},
		{"08:61:00", 0, true},
		{"-1:00:00", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseGTFSTime(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormatGTFSTime(t *testing.T) {
	assert.Equal(t, "08:30:00", FormatGTFSTime(8*3600+30*60))
	assert.Equal(t, "25:15:00", FormatGTFSTime(25*3600+15*60))
}

func TestModeForRouteType(t *testing.T) {
	assert.Equal(t, ModeTram, ModeForRouteType(RouteTypeTram))
	assert.Equal(t, ModeMetro, ModeForRouteType(RouteTypeMetro))
	assert.Equal(t, ModeTrain, ModeForRouteType(RouteTypeRail))
	assert.Equal(t, ModeBus, ModeForRouteType(RouteTypeBus))
	assert.Equal(t, ModeFerry, ModeForRouteType(RouteTypeFerry))
	// Unknown extended types fall back to bus.
	assert.Equal(t, ModeBus, ModeForRouteType(RouteType(700)))
}

func TestJourneyResultHelpers(t *testing.T) {
	now := time.Now()
	metro := &Route{ID: "m1", Type: RouteTypeMetro}
	bus := &Route{ID: "b506", Type: RouteTypeBus}

	journey := JourneyResult{
		Segments: []RouteSegment{
			{Type: SegmentWalk, DepartureTime: now, DistanceMeters: 300},
			{Type: SegmentTransit, Route: metro},
			{Type: SegmentTransit, Route: bus},
		},
	}

	assert.False(t, journey.IsWalkOnly())
	assert.Len(t, journey.TransitSegments(), 2)
	assert.Equal(t, "m1>b506", journey.RouteIDs())

	walk := JourneyResult{Segments: []RouteSegment{{Type: SegmentWalk}}}
	assert.True(t, walk.IsWalkOnly())
	assert.Equal(t, "", walk.RouteIDs())
}

func TestPreferencesModeAllowed(t *testing.T) {
	prefs := DefaultPreferences()
	assert.True(t, prefs.ModeAllowed(ModeMetro))

	prefs.AllowedModes[ModeBus] = false
	assert.False(t, prefs.ModeAllowed(ModeBus))

	// Modes absent from the map stay allowed.
	partial := RoutingPreferences{AllowedModes: map[Mode]bool{ModeBus: false}}
	assert.True(t, partial.ModeAllowed(ModeMetro))
}
