package planner

import (
	"context"
	"sort"
	"sync"

	"wayfinder.opentransit.org/internal/model"
)

// mockStore is an in-memory StopStore for planner tests. Routes are
// attached to stops explicitly; travel times and headsigns can be
// seeded per (route, from, to) triple.
type mockStore struct {
	mu          sync.Mutex
	stops       map[string]model.Stop
	routes      map[string]model.Route
	stopRoutes  map[string][]string // stop id -> route ids
	travelTimes map[string]int      // "route|from|to" -> minutes
	headsigns   map[string]string   // "route|toward|from" -> headsign

	boundsCalls int
	failBounds  error
}

func newMockStore() *mockStore {
	return &mockStore{
		stops:       make(map[string]model.Stop),
		routes:      make(map[string]model.Route),
		stopRoutes:  make(map[string][]string),
		travelTimes: make(map[string]int),
		headsigns:   make(map[string]string),
	}
}

func (m *mockStore) addStop(s model.Stop, routeIDs ...string) {
	m.stops[s.ID] = s
	m.stopRoutes[s.ID] = append(m.stopRoutes[s.ID], routeIDs...)
}

func (m *mockStore) addRoute(r model.Route) {
	m.routes[r.ID] = r
}

func (m *mockStore) setTravelTime(routeID, from, to string, minutes int) {
	m.travelTimes[routeID+"|"+from+"|"+to] = minutes
}

func (m *mockStore) setHeadsign(routeID, toward, from, headsign string) {
	m.headsigns[routeID+"|"+toward+"|"+from] = headsign
}

func (m *mockStore) GetStopByID(ctx context.Context, id string) (*model.Stop, error) {
	s, ok := m.stops[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *mockStore) GetRoutesByStopID(ctx context.Context, stopID string) ([]model.Route, error) {
	var out []model.Route
	seen := map[string]bool{}
	for _, rid := range m.stopRoutes[stopID] {
		if seen[rid] {
			continue
		}
		seen[rid] = true
		if r, ok := m.routes[rid]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) GetStopsByRouteID(ctx context.Context, routeID string) ([]model.Stop, error) {
	var ids []string
	for sid, rids := range m.stopRoutes {
		for _, rid := range rids {
			if rid == routeID {
				ids = append(ids, sid)
				break
			}
		}
	}
	sort.Strings(ids)
	out := make([]model.Stop, 0, len(ids))
	for _, sid := range ids {
		out = append(out, m.stops[sid])
	}
	return out, nil
}

func (m *mockStore) GetStopsWithinBounds(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]model.Stop, error) {
	m.mu.Lock()
	m.boundsCalls++
	m.mu.Unlock()
	if m.failBounds != nil {
		return nil, m.failBounds
	}

	var out []model.Stop
	for _, s := range m.stops {
		if s.Lat >= minLat && s.Lat <= maxLat && s.Lon >= minLon && s.Lon <= maxLon {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) FindTransferStops(ctx context.Context, routeIDsA, routeIDsB []string, limit int) ([]TransferStop, error) {
	inA := map[string]bool{}
	for _, id := range routeIDsA {
		inA[id] = true
	}
	inB := map[string]bool{}
	for _, id := range routeIDsB {
		inB[id] = true
	}

	var out []TransferStop
	var sids []string
	for sid := range m.stopRoutes {
		sids = append(sids, sid)
	}
	sort.Strings(sids)
	for _, sid := range sids {
		rids := m.stopRoutes[sid]
		for _, a := range rids {
			if !inA[a] {
				continue
			}
			for _, b := range rids {
				if !inB[b] || a == b {
					continue
				}
				s := m.stops[sid]
				out = append(out, TransferStop{
					StopID:      s.ID,
					StopName:    s.Name,
					Lat:         s.Lat,
					Lon:         s.Lon,
					FromRouteID: a,
					ToRouteID:   b,
				})
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) GetActualTravelTime(ctx context.Context, routeID, fromStopID, toStopID string) (*int, error) {
	if minutes, ok := m.travelTimes[routeID+"|"+fromStopID+"|"+toStopID]; ok {
		return &minutes, nil
	}
	return nil, nil
}

func (m *mockStore) GetTripInfoForRoute(ctx context.Context, routeID, towardStopID, fromStopID string) (*TripInfo, error) {
	if hs, ok := m.headsigns[routeID+"|"+towardStopID+"|"+fromStopID]; ok {
		return &TripInfo{Headsign: hs}, nil
	}
	return nil, nil
}
