package planner

import (
	"context"
	"fmt"
	"sort"

	"wayfinder.opentransit.org/internal/geo"
	"wayfinder.opentransit.org/internal/model"
)

// NearbyStop is a candidate boarding stop with its distance from the
// query point and the walking time to reach it.
type NearbyStop struct {
	Stop           model.Stop `json:"stop"`
	DistanceMeters float64    `json:"distanceMeters"`
	WalkingMinutes int        `json:"walkingMinutes"`
}

// NearbyFinder locates candidate stops around a coordinate. It asks
// the store for a bounding-box superset, then re-filters by exact
// haversine distance and ranks ascending.
type NearbyFinder struct {
	store StopStore
	cache Cache
}

func NewNearbyFinder(store StopStore, cache Cache) *NearbyFinder {
	return &NearbyFinder{store: store, cache: cache}
}

// FindNearbyStops returns stops within radiusMeters of the point,
// sorted by distance and truncated to limit. An empty result is not an
// error; only store failures propagate.
func (f *NearbyFinder) FindNearbyStops(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]NearbyStop, error) {
	if limit <= 0 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("nearby:%v:%v:%v:%d", geo.Quantize(lat), geo.Quantize(lon), radiusMeters, limit)
	if f.cache != nil {
		if v, ok := f.cache.Get(cacheKey); ok {
			if stops, ok := v.([]NearbyStop); ok {
				return stops, nil
			}
		}
	}

	bounds := geo.BoundsAround(lat, lon, radiusMeters)
	candidates, err := f.store.GetStopsWithinBounds(ctx, bounds.MinLat, bounds.MaxLat, bounds.MinLon, bounds.MaxLon)
	if err != nil {
		return nil, fmt.Errorf("nearby stop query: %w", err)
	}

	var results []NearbyStop
	for _, stop := range candidates {
		distance := geo.DistanceMeters(lat, lon, stop.Lat, stop.Lon)
		if distance > radiusMeters {
			continue
		}
		results = append(results, NearbyStop{
			Stop:           stop,
			DistanceMeters: distance,
			WalkingMinutes: geo.WalkingMinutesCeil(distance),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].DistanceMeters < results[j].DistanceMeters
	})
	if len(results) > limit {
		results = results[:limit]
	}

	if f.cache != nil {
		f.cache.Set(cacheKey, results)
	}
	return results, nil
}

// FindBestNearbyStops is FindNearbyStops with (count, radius) in the
// order journey-search call sites use.
func (f *NearbyFinder) FindBestNearbyStops(ctx context.Context, lat, lon float64, count int, radiusMeters float64) ([]NearbyStop, error) {
	return f.FindNearbyStops(ctx, lat, lon, radiusMeters, count)
}

// GetWalkingTime converts a distance to whole walking minutes, rounded
// up so walking is never under-promised.
func (f *NearbyFinder) GetWalkingTime(distanceMeters float64) int {
	return geo.WalkingMinutesCeil(distanceMeters)
}
