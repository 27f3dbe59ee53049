package gtfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfinder.opentransit.org/internal/model"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(santiagoRegion, nil)
}

func TestStopColumnAliases(t *testing.T) {
	tests := []struct {
		name string
		row  RawRow
	}{
		{"standard columns", RawRow{"stop_id": "PA1", "stop_name": "Plaza", "stop_lat": "-33.44", "stop_lon": "-70.66"}},
		{"collapsed names", RawRow{"stopid": "PA1", "stopname": "Plaza", "stoplat": "-33.44", "stoplon": "-70.66"}},
		{"bare names", RawRow{"id": "PA1", "name": "Plaza", "lat": "-33.44", "lng": "-70.66"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stop, ok := newTestNormalizer().Stop(tt.row)
			require.True(t, ok)
			assert.Equal(t, "PA1", stop.ID)
			assert.Equal(t, "Plaza", stop.Name)
			assert.InDelta(t, -33.44, stop.Lat, 1e-9)
			assert.InDelta(t, -70.66, stop.Lon, 1e-9)
		})
	}
}

func TestStopInvalidCoordinatesDropped(t *testing.T) {
	rows := []RawRow{
		{"stop_id": "A", "stop_lat": "95.0", "stop_lon": "-70.66"},
		{"stop_id": "B", "stop_lat": "", "stop_lon": "-70.66"},
		{"stop_id": "C", "stop_lat": "abc", "stop_lon": "-70.66"},
		{"stop_id": "", "stop_lat": "-33.44", "stop_lon": "-70.66"},
	}

	n := newTestNormalizer()
	for _, row := range rows {
		_, ok := n.Stop(row)
		assert.False(t, ok)
	}
}

func TestStopParentAndLocationType(t *testing.T) {
	stop, ok := newTestNormalizer().Stop(RawRow{
		"stop_id": "PA1", "stop_lat": "-33.44", "stop_lon": "-70.66",
		"location_type": "1", "parent_station": "EST1",
	})

	require.True(t, ok)
	assert.Equal(t, 1, stop.LocationType)
	assert.Equal(t, "EST1", stop.ParentStation)
}

func TestRouteColorDefaulting(t *testing.T) {
	n := newTestNormalizer()

	metro, ok := n.Route(RawRow{"route_id": "L1", "route_type": "1", "route_short_name": "L1"})
	require.True(t, ok)
	assert.Equal(t, "#E2231A", metro.Color)
	assert.Equal(t, "#FFFFFF", metro.TextColor)

	// Provided colors are normalized to #RRGGBB uppercase.
	bus, ok := n.Route(RawRow{"route_id": "506", "route_type": "3", "route_color": "00ab4f"})
	require.True(t, ok)
	assert.Equal(t, "#00AB4F", bus.Color)

	// Malformed colors fall back to the mode default.
	tram, ok := n.Route(RawRow{"route_id": "T1", "route_type": "0", "route_color": "zzz"})
	require.True(t, ok)
	assert.Equal(t, "#7AC142", tram.Color)
}

func TestRouteShortNameSynthesis(t *testing.T) {
	n := newTestNormalizer()

	metro, _ := n.Route(RawRow{"route_id": "101", "route_type": "1"})
	assert.Equal(t, "M101", metro.ShortName)

	ferry, _ := n.Route(RawRow{
		"route_id": "ferry-pm-ch", "route_type": "4",
		"route_long_name": "Puerto Montt - Chaiten",
	})
	assert.Equal(t, "PM-CH", ferry.ShortName)

	// Rail lines are numbered in feed order.
	railA, _ := n.Route(RawRow{"route_id": "rail-x", "route_type": "2"})
	railB, _ := n.Route(RawRow{"route_id": "rail-y", "route_type": "2"})
	assert.Equal(t, "T1", railA.ShortName)
	assert.Equal(t, "T2", railB.ShortName)

	// Same input always yields the same code.
	m2, _ := newTestNormalizer().Route(RawRow{"route_id": "101", "route_type": "1"})
	assert.Equal(t, metro.ShortName, m2.ShortName)
}

func TestTripNormalization(t *testing.T) {
	trip, ok := newTestNormalizer().Trip(RawRow{
		"trip_id": "tr-1", "route_id": "506", "service_id": "wd",
		"trip_headsign": "Maipu", "direction_id": "1", "shape_id": "shp",
	})

	require.True(t, ok)
	assert.Equal(t, model.Trip{
		ID: "tr-1", RouteID: "506", ServiceID: "wd",
		Headsign: "Maipu", DirectionID: 1, ShapeID: "shp",
	}, trip)

	_, ok = newTestNormalizer().Trip(RawRow{"trip_id": "tr-1"})
	assert.False(t, ok)
}

func TestStopTimeNormalization(t *testing.T) {
	st, ok := newTestNormalizer().StopTime(RawRow{
		"trip_id": "tr-1", "stop_id": "PA1",
		"arrival_time": "08:30:00", "departure_time": "08:31:00",
		"stop_sequence": "4",
	})

	require.True(t, ok)
	assert.Equal(t, 8*3600+30*60, st.ArrivalSec)
	assert.Equal(t, 8*3600+31*60, st.DepartureSec)
	assert.Equal(t, 4, st.StopSequence)

	// Missing departure falls back to the arrival time.
	st, ok = newTestNormalizer().StopTime(RawRow{
		"trip_id": "tr-1", "stop_id": "PA1", "arrival_time": "25:10:00",
	})
	require.True(t, ok)
	assert.Equal(t, st.ArrivalSec, st.DepartureSec)
	assert.Equal(t, 25*3600+10*60, st.ArrivalSec)

	_, ok = newTestNormalizer().StopTime(RawRow{"trip_id": "tr-1", "stop_id": "PA1", "arrival_time": "bad"})
	assert.False(t, ok)
}

func TestNormalizeRejectsEmptyCategories(t *testing.T) {
	n := newTestNormalizer()

	stops := []RawRow{{"stop_id": "A", "stop_lat": "-33.44", "stop_lon": "-70.66"}}
	routes := []RawRow{{"route_id": "506", "route_type": "3"}}
	trips := []RawRow{{"trip_id": "tr", "route_id": "506"}}

	// All stop_times rows invalid: feed declared invalid.
	_, err := n.Normalize(stops, routes, trips, []RawRow{{"trip_id": "tr"}})
	assert.ErrorIs(t, err, ErrInvalidFeed)
}

func TestNormalizeCountsDrops(t *testing.T) {
	n := newTestNormalizer()

	ds, err := n.Normalize(
		[]RawRow{
			{"stop_id": "A", "stop_lat": "-33.44", "stop_lon": "-70.66"},
			{"stop_id": "bad", "stop_lat": "999", "stop_lon": "999"},
		},
		[]RawRow{{"route_id": "506", "route_type": "3"}},
		[]RawRow{{"trip_id": "tr", "route_id": "506"}},
		[]RawRow{{"trip_id": "tr", "stop_id": "A", "arrival_time": "08:00:00", "stop_sequence": "0"}},
	)

	require.NoError(t, err)
	assert.Len(t, ds.Stops, 1)
	assert.Equal(t, 1, ds.Stats.StopsDropped)
}
