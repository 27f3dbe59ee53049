// Package model holds the canonical value objects shared by the GTFS
// normalizer, the stop store and the journey planner. Everything here
// is produced once and consumed read-only.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RouteType is the GTFS route_type enumeration.
type RouteType int

const (
	RouteTypeTram  RouteType = 0
	RouteTypeMetro RouteType = 1
	RouteTypeRail  RouteType = 2
	RouteTypeBus   RouteType = 3
	RouteTypeFerry RouteType = 4
)

// Mode is a rider-facing travel mode, used in routing preferences.
type Mode string

const (
	ModeTram    Mode = "tram"
	ModeMetro   Mode = "metro"
	ModeBus     Mode = "bus"
	ModeTrain   Mode = "train"
	ModeFerry   Mode = "ferry"
	ModeWalking Mode = "walking"
)

// ModeForRouteType maps a GTFS route_type to its preference mode.
func ModeForRouteType(t RouteType) Mode {
	switch t {
	case RouteTypeTram:
		return ModeTram
	case RouteTypeMetro:
		return ModeMetro
	case RouteTypeRail:
		return ModeTrain
	case RouteTypeFerry:
		return ModeFerry
	default:
		return ModeBus
	}
}

// Stop is a transit stop or station.
type Stop struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	LocationType  int     `json:"locationType"`
	ParentStation string  `json:"parentStation,omitempty"`
}

// Route is a transit line.
type Route struct {
	ID        string    `json:"id"`
	ShortName string    `json:"shortName"`
	LongName  string    `json:"longName"`
	Type      RouteType `json:"type"`
	Color     string    `json:"color"`
	TextColor string    `json:"textColor"`
}

// Trip is one scheduled run of a route.
type Trip struct {
	ID          string `json:"id"`
	RouteID     string `json:"routeId"`
	ServiceID   string `json:"serviceId"`
	Headsign    string `json:"headsign,omitempty"`
	DirectionID int    `json:"directionId"`
	ShapeID     string `json:"shapeId,omitempty"`
}

// StopTime is a scheduled call of a trip at a stop. Times are seconds
// after midnight; values past 86400 continue into the next service day.
type StopTime struct {
	TripID        string `json:"tripId"`
	StopID        string `json:"stopId"`
	ArrivalSec    int    `json:"arrivalSec"`
	DepartureSec  int    `json:"departureSec"`
	StopSequence  int    `json:"stopSequence"`
}

// SegmentType distinguishes itinerary legs.
type SegmentType string

const (
	SegmentWalk    SegmentType = "walk"
	SegmentTransit SegmentType = "transit"
)

// RouteSegment is one leg of an itinerary. Walk segments carry a
// distance; transit segments carry the route and an optional headsign.
type RouteSegment struct {
	Type            SegmentType `json:"type"`
	Route           *Route      `json:"route,omitempty"`
	Headsign        string      `json:"headsign,omitempty"`
	DepartureTime   time.Time   `json:"departureTime"`
	ArrivalTime     time.Time   `json:"arrivalTime"`
	DurationMinutes int         `json:"duration"`
	DistanceMeters  float64     `json:"distance,omitempty"`
}

// JourneyResult is a ranked itinerary returned by the planner.
type JourneyResult struct {
	ID                string         `json:"id"`
	Segments          []RouteSegment `json:"segments"`
	TotalDuration     int            `json:"totalDuration"`
	TotalWalkDistance float64        `json:"totalWalkDistance"`
	Transfers         int            `json:"numberOfTransfers"`
	DepartureTime     time.Time      `json:"departureTime"`
	ArrivalTime       time.Time      `json:"arrivalTime"`
	Tags              []string       `json:"tags,omitempty"`
}

// TransitSegments returns the transit legs of the journey.
func (j *JourneyResult) TransitSegments() []RouteSegment {
	var out []RouteSegment
	for _, s := range j.Segments {
		if s.Type == SegmentTransit {
			out = append(out, s)
		}
	}
	return out
}

// IsWalkOnly reports whether the journey has no transit legs.
func (j *JourneyResult) IsWalkOnly() bool {
	for _, s := range j.Segments {
		if s.Type == SegmentTransit {
			return false
		}
	}
	return true
}

// RouteIDs returns the ordered route ids used by the journey, the key
// the planner deduplicates candidate itineraries on.
func (j *JourneyResult) RouteIDs() string {
	var ids []string
	for _, s := range j.Segments {
		if s.Type == SegmentTransit && s.Route != nil {
			ids = append(ids, s.Route.ID)
		}
	}
	return strings.Join(ids, ">")
}

// Optimize selects the scoring emphasis for multi-route searches.
type Optimize string

const (
	OptimizeFastest         Optimize = "fastest"
	OptimizeFewestTransfers Optimize = "fewest-transfers"
	OptimizeLeastWalking    Optimize = "least-walking"
)

// RoutingPreferences filter and score multi-route results. They are
// supplied per search call and never persisted by the engine.
type RoutingPreferences struct {
	AllowedModes     map[Mode]bool `json:"allowedModes" validate:"required"`
	MaxTransfers     int           `json:"maxTransfers" validate:"gte=0"`
	OptimizeFor      Optimize      `json:"optimizeFor" validate:"oneof=fastest fewest-transfers least-walking"`
	MaxWalkingMeters float64       `json:"maxWalkingMeters" validate:"gte=0"`
}

// DefaultPreferences allows every mode, two transfers and a 1.5 km
// walking budget, optimizing for speed.
func DefaultPreferences() RoutingPreferences {
	return RoutingPreferences{
		AllowedModes: map[Mode]bool{
			ModeTram:    true,
			ModeMetro:   true,
			ModeBus:     true,
			ModeTrain:   true,
			ModeFerry:   true,
			ModeWalking: true,
		},
		MaxTransfers:     2,
		OptimizeFor:      OptimizeFastest,
		MaxWalkingMeters: 1500,
	}
}

// ModeAllowed reports whether a mode passes the allow-list. A mode
// missing from the map counts as allowed so partial maps stay usable.
func (p RoutingPreferences) ModeAllowed(m Mode) bool {
	allowed, ok := p.AllowedModes[m]
	if !ok {
		return true
	}
	return allowed
}

// ParseGTFSTime parses a GTFS "HH:MM:SS" clock value into seconds
// after midnight. Hours may exceed 24 for next-day continuations.
func ParseGTFSTime(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid GTFS time %q", s)
	}

	return h*3600 + m*60 + sec, nil
}

// FormatGTFSTime renders seconds after midnight as "HH:MM:SS".
func FormatGTFSTime(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
