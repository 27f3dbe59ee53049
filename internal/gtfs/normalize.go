// Package gtfs ingests raw GTFS feeds and normalizes them into the
// canonical stop/route/trip/stop-time model. Feeds in the wild vary in
// column naming and ship malformed coordinates; the normalizer
// resolves known aliases, repairs what it can and filters the rest.
package gtfs

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"wayfinder.opentransit.org/internal/geo"
	"wayfinder.opentransit.org/internal/model"
)

// ErrInvalidFeed is returned when a required file category yields zero
// usable rows after validation.
var ErrInvalidFeed = errors.New("gtfs: feed has no usable data")

// RawRow is one CSV record keyed by lowercased header name. Values in
// columns past the declared header are stored under overflow keys.
type RawRow map[string]string

// Field returns the first non-empty value among the alias names.
func (r RawRow) Field(aliases ...string) string {
	for _, a := range aliases {
		if v, ok := r[a]; ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func overflowKey(i int) string {
	return fmt.Sprintf("@overflow%d", i)
}

// Ordered alias lists per canonical field; first non-empty wins.
var (
	stopIDAliases    = []string{"stop_id", "stopid", "id"}
	stopNameAliases  = []string{"stop_name", "stopname", "name"}
	stopLatAliases   = []string{"stop_lat", "stoplat", "lat", "latitude"}
	stopLonAliases   = []string{"stop_lon", "stoplon", "lon", "lng", "longitude"}
	locationAliases  = []string{"location_type", "locationtype"}
	parentAliases    = []string{"parent_station", "parentstation"}
	routeIDAliases   = []string{"route_id", "routeid", "id"}
	shortNameAliases = []string{"route_short_name", "routeshortname", "short_name"}
	longNameAliases  = []string{"route_long_name", "routelongname", "long_name", "name"}
	routeTypeAliases = []string{"route_type", "routetype", "type"}
	colorAliases     = []string{"route_color", "routecolor", "color"}
	textColorAliases = []string{"route_text_color", "routetextcolor", "text_color"}
	tripIDAliases    = []string{"trip_id", "tripid", "id"}
	serviceAliases   = []string{"service_id", "serviceid"}
	headsignAliases  = []string{"trip_headsign", "tripheadsign", "headsign"}
	directionAliases = []string{"direction_id", "directionid", "direction"}
	shapeAliases     = []string{"shape_id", "shapeid"}
	arrivalAliases   = []string{"arrival_time", "arrivaltime", "arrival"}
	departureAliases = []string{"departure_time", "departuretime", "departure"}
	sequenceAliases  = []string{"stop_sequence", "stopsequence", "sequence"}
)

// defaultRouteColors assigns a per-mode color when the feed omits one.
var defaultRouteColors = map[model.RouteType]string{
	model.RouteTypeTram:  "#7AC142",
	model.RouteTypeMetro: "#E2231A",
	model.RouteTypeRail:  "#0072CE",
	model.RouteTypeBus:   "#2B6CB0",
	model.RouteTypeFerry: "#00A3A3",
}

const fallbackRouteColor = "#6B7280"

// Normalizer converts heterogeneous raw feed rows into the canonical
// model. The region bounds drive the coordinate repair heuristics:
// only repairs landing inside the window are trusted.
type Normalizer struct {
	region  geo.Bounds
	logger  *slog.Logger
	railSeq int
	stats   Stats
}

// WorldRegion accepts any valid WGS84 coordinate; deployments should
// pass a tighter window covering their feed's service area.
var WorldRegion = geo.Bounds{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}

func NewNormalizer(region geo.Bounds, logger *slog.Logger) *Normalizer {
	if region == (geo.Bounds{}) {
		region = WorldRegion
	}
	return &Normalizer{region: region, logger: logger}
}

// Stats counts rows dropped during normalization, reported as
// warnings; the feed is rejected only when nothing usable remains.
type Stats struct {
	StopsDropped     int
	RoutesDropped    int
	TripsDropped     int
	StopTimesDropped int
	CoordsRepaired   int
}

// Dataset is a normalized, validated feed.
type Dataset struct {
	Stops     []model.Stop
	Routes    []model.Route
	Trips     []model.Trip
	StopTimes []model.StopTime
	Stats     Stats
}

// Normalize converts raw rows from the four required files into a
// Dataset. It returns ErrInvalidFeed when any category ends up empty.
func (n *Normalizer) Normalize(stops, routes, trips, stopTimes []RawRow) (*Dataset, error) {
	ds := &Dataset{}

	for _, row := range stops {
		stop, ok := n.Stop(row)
		if !ok {
			n.stats.StopsDropped++
			continue
		}
		ds.Stops = append(ds.Stops, stop)
	}

	for _, row := range routes {
		route, ok := n.Route(row)
		if !ok {
			n.stats.RoutesDropped++
			continue
		}
		ds.Routes = append(ds.Routes, route)
	}

	for _, row := range trips {
		trip, ok := n.Trip(row)
		if !ok {
			n.stats.TripsDropped++
			continue
		}
		ds.Trips = append(ds.Trips, trip)
	}

	for _, row := range stopTimes {
		st, ok := n.StopTime(row)
		if !ok {
			n.stats.StopTimesDropped++
			continue
		}
		ds.StopTimes = append(ds.StopTimes, st)
	}

	ds.Stats = n.stats
	if s := ds.Stats; n.logger != nil && s.StopsDropped+s.RoutesDropped+s.TripsDropped+s.StopTimesDropped > 0 {
		n.logger.Warn("gtfs normalization dropped rows",
			slog.Int("stops", s.StopsDropped),
			slog.Int("routes", s.RoutesDropped),
			slog.Int("trips", s.TripsDropped),
			slog.Int("stop_times", s.StopTimesDropped),
			slog.Int("coords_repaired", s.CoordsRepaired))
	}

	if len(ds.Stops) == 0 || len(ds.Routes) == 0 || len(ds.Trips) == 0 || len(ds.StopTimes) == 0 {
		return nil, ErrInvalidFeed
	}
	return ds, nil
}

// Stop normalizes one stops.txt row. Rows without an id, or whose
// coordinates stay invalid after repair, are dropped.
func (n *Normalizer) Stop(row RawRow) (model.Stop, bool) {
	id := row.Field(stopIDAliases...)
	if id == "" {
		return model.Stop{}, false
	}

	lat, lon, strategy := repairCoordinates(row, n.region)
	if strategy != "" && strategy != "passthrough" {
		n.stats.CoordsRepaired++
	}
	if !(geo.Point{Lat: lat, Lon: lon}).Valid() {
		return model.Stop{}, false
	}

	locationType := 0
	if v := row.Field(locationAliases...); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			locationType = parsed
		}
	}

	return model.Stop{
		ID:            id,
		Name:          row.Field(stopNameAliases...),
		Lat:           lat,
		Lon:           lon,
		LocationType:  locationType,
		ParentStation: row.Field(parentAliases...),
	}, true
}

// Route normalizes one routes.txt row, synthesizing a short name and
// defaulting colors when the feed omits them.
func (n *Normalizer) Route(row RawRow) (model.Route, bool) {
	id := row.Field(routeIDAliases...)
	if id == "" {
		return model.Route{}, false
	}

	routeType := model.RouteTypeBus
	if v := row.Field(routeTypeAliases...); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			routeType = model.RouteType(parsed)
		}
	}

	longName := row.Field(longNameAliases...)
	shortName := row.Field(shortNameAliases...)
	if shortName == "" {
		shortName = n.synthesizeShortName(id, routeType, longName)
	}

	return model.Route{
		ID:        id,
		ShortName: shortName,
		LongName:  longName,
		Type:      routeType,
		Color:     normalizeColor(row.Field(colorAliases...), defaultColor(routeType)),
		TextColor: normalizeColor(row.Field(textColorAliases...), "#FFFFFF"),
	}, true
}

// Trip normalizes one trips.txt row.
func (n *Normalizer) Trip(row RawRow) (model.Trip, bool) {
	id := row.Field(tripIDAliases...)
	routeID := row.Field(routeIDAliases...)
	if id == "" || routeID == "" {
		return model.Trip{}, false
	}

	directionID := 0
	if v := row.Field(directionAliases...); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			directionID = parsed
		}
	}

	return model.Trip{
		ID:          id,
		RouteID:     routeID,
		ServiceID:   row.Field(serviceAliases...),
		Headsign:    row.Field(headsignAliases...),
		DirectionID: directionID,
		ShapeID:     row.Field(shapeAliases...),
	}, true
}

// StopTime normalizes one stop_times.txt row. Rows missing ids or
// with unparseable times are dropped.
func (n *Normalizer) StopTime(row RawRow) (model.StopTime, bool) {
	tripID := row.Field(tripIDAliases...)
	stopID := row.Field(stopIDAliases...)
	if tripID == "" || stopID == "" {
		return model.StopTime{}, false
	}

	arrival, err := model.ParseGTFSTime(row.Field(arrivalAliases...))
	if err != nil {
		return model.StopTime{}, false
	}
	departure, err := model.ParseGTFSTime(row.Field(departureAliases...))
	if err != nil {
		departure = arrival
	}

	seq := 0
	if v := row.Field(sequenceAliases...); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			seq = parsed
		}
	}

	return model.StopTime{
		TripID:       tripID,
		StopID:       stopID,
		ArrivalSec:   arrival,
		DepartureSec: departure,
		StopSequence: seq,
	}, true
}

// Stats exposes the running counters; useful while streaming rows
// through the per-entity methods instead of Normalize.
func (n *Normalizer) Stats() *Stats {
	return &n.stats
}

// synthesizeShortName derives a rider-facing code when the feed omits
// one. Ferry routes abbreviate their terminus names, rail lines are
// numbered in feed order, everything else keys off the route id.
func (n *Normalizer) synthesizeShortName(id string, t model.RouteType, longName string) string {
	switch t {
	case model.RouteTypeFerry:
		if abbr := abbreviateTermini(longName); abbr != "" {
			return abbr
		}
	case model.RouteTypeRail:
		n.railSeq++
		return fmt.Sprintf("T%d", n.railSeq)
	}

	if digits := leadingDigits(id); digits != "" {
		switch t {
		case model.RouteTypeMetro:
			return "M" + digits
		case model.RouteTypeTram:
			return "T" + digits
		default:
			return digits
		}
	}

	if len(id) > 6 {
		id = id[:6]
	}
	return strings.ToUpper(id)
}

// abbreviateTermini turns "Puerto Montt - Chaiten" into "PM-CH".
func abbreviateTermini(longName string) string {
	parts := strings.FieldsFunc(longName, func(r rune) bool {
		return r == '-' || r == '–'
	})
	if len(parts) < 2 {
		return ""
	}

	var codes []string
	for _, part := range parts {
		words := strings.Fields(part)
		if len(words) == 0 {
			continue
		}
		var b strings.Builder
		for i, w := range words {
			if i == 2 {
				break
			}
			b.WriteString(strings.ToUpper(w[:1]))
		}
		if b.Len() == 1 {
			// Single-word terminus keeps two letters for legibility.
			upper := strings.ToUpper(words[0])
			if len(upper) >= 2 {
				b.Reset()
				b.WriteString(upper[:2])
			}
		}
		codes = append(codes, b.String())
	}
	if len(codes) < 2 {
		return ""
	}
	return strings.Join(codes[:2], "-")
}

func leadingDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if b.Len() > 0 {
			break
		}
	}
	return b.String()
}

func defaultColor(t model.RouteType) string {
	if c, ok := defaultRouteColors[t]; ok {
		return c
	}
	return fallbackRouteColor
}

// normalizeColor produces a leading-# six-hex-digit uppercase color,
// falling back when the input is absent or malformed.
func normalizeColor(raw, fallback string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if len(raw) != 6 {
		return fallback
	}
	for _, r := range strings.ToUpper(raw) {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return fallback
		}
	}
	return "#" + strings.ToUpper(raw)
}
