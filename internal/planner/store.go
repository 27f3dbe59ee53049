// Package planner implements the multi-modal journey search engine:
// nearby-stop discovery, direct/one-transfer/two-transfer search with
// heuristic travel-time estimation, and preference-based filtering and
// scoring of the resulting itineraries.
package planner

import (
	"context"

	"wayfinder.opentransit.org/internal/model"
)

// TransferStop is a stop where a route from the origin set and a route
// from the destination set both call.
type TransferStop struct {
	StopID      string
	StopName    string
	Lat         float64
	Lon         float64
	FromRouteID string
	ToRouteID   string
}

// TripInfo is a best-effort direction label for a boarding.
type TripInfo struct {
	Headsign string
}

// StopStore is the contract the planner requires from the stop data
// store, regardless of backing engine. All methods are read-only.
type StopStore interface {
	// GetStopByID returns nil when the stop does not exist.
	GetStopByID(ctx context.Context, id string) (*model.Stop, error)

	// GetRoutesByStopID returns the routes serving a stop, deduplicated
	// across co-located platforms of the same named station.
	GetRoutesByStopID(ctx context.Context, stopID string) ([]model.Route, error)

	// GetStopsByRouteID returns the stops a route calls at.
	GetStopsByRouteID(ctx context.Context, routeID string) ([]model.Stop, error)

	// GetStopsWithinBounds returns stops inside a bounding box.
	GetStopsWithinBounds(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]model.Stop, error)

	// FindTransferStops returns, in one batched query, stops where a
	// route in set A and a route in set B both call.
	FindTransferStops(ctx context.Context, routeIDsA, routeIDsB []string, limit int) ([]TransferStop, error)

	// GetActualTravelTime returns schedule-derived minutes between two
	// stops on a route, or nil when no schedule data covers the pair.
	GetActualTravelTime(ctx context.Context, routeID, fromStopID, toStopID string) (*int, error)

	// GetTripInfoForRoute returns a direction label for boarding the
	// route at fromStop heading toward towardStop, or nil.
	GetTripInfoForRoute(ctx context.Context, routeID, towardStopID, fromStopID string) (*TripInfo, error)
}

// GeocodeResult is one address match.
type GeocodeResult struct {
	Lat          float64
	Lon          float64
	DisplayName  string
	ShortAddress string
}

// Geocoder resolves free-text addresses to coordinates.
type Geocoder interface {
	GeocodeAddress(ctx context.Context, text string, limit int) ([]GeocodeResult, error)
}

// Cache is a short-TTL memo store. Misses are always tolerated; the
// same search just runs slower.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}
