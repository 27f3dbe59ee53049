package gtfsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"wayfinder.opentransit.org/internal/model"
	"wayfinder.opentransit.org/internal/planner"
)

// stationMergeDegrees is roughly 100 m of latitude, the window inside
// which same-named platforms count as one station.
const stationMergeDegrees = 0.001

var _ planner.StopStore = (*Client)(nil)

// GetStopByID returns the stop, or nil when it does not exist.
func (c *Client) GetStopByID(ctx context.Context, id string) (*model.Stop, error) {
	row := c.DB.QueryRowContext(ctx, `
		SELECT stop_id, stop_name, stop_lat, stop_lon, location_type, COALESCE(parent_station, '')
		FROM stops WHERE stop_id = ?;
	`, id)

	var s model.Stop
	err := row.Scan(&s.ID, &s.Name, &s.Lat, &s.Lon, &s.LocationType, &s.ParentStation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying stop %s: %w", id, err)
	}
	return &s, nil
}

// GetRoutesByStopID returns the routes serving a stop, merged across
// co-located platforms that share the stop's name.
func (c *Client) GetRoutesByStopID(ctx context.Context, stopID string) ([]model.Route, error) {
	stop, err := c.GetStopByID(ctx, stopID)
	if err != nil {
		return nil, err
	}
	if stop == nil {
		return nil, nil
	}

	rows, err := c.DB.QueryContext(ctx, `
		SELECT DISTINCT r.route_id, r.route_short_name, r.route_long_name,
			r.route_type, r.route_color, r.route_text_color
		FROM stops s
		JOIN route_stops rs ON rs.stop_id = s.stop_id
		JOIN routes r ON r.route_id = rs.route_id
		WHERE s.stop_name = ?
			AND s.stop_lat BETWEEN ? AND ?
			AND s.stop_lon BETWEEN ? AND ?
		ORDER BY r.route_id;
	`, stop.Name,
		stop.Lat-stationMergeDegrees, stop.Lat+stationMergeDegrees,
		stop.Lon-stationMergeDegrees, stop.Lon+stationMergeDegrees)
	if err != nil {
		return nil, fmt.Errorf("querying routes at stop %s: %w", stopID, err)
	}
	defer rows.Close() // nolint:errcheck

	return scanRoutes(rows)
}

// GetStopsByRouteID returns the stops a route calls at.
func (c *Client) GetStopsByRouteID(ctx context.Context, routeID string) ([]model.Stop, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT s.stop_id, s.stop_name, s.stop_lat, s.stop_lon, s.location_type, COALESCE(s.parent_station, '')
		FROM route_stops rs
		JOIN stops s ON s.stop_id = rs.stop_id
		WHERE rs.route_id = ?
		ORDER BY s.stop_id;
	`, routeID)
	if err != nil {
		return nil, fmt.Errorf("querying stops for route %s: %w", routeID, err)
	}
	defer rows.Close() // nolint:errcheck

	return scanStops(rows)
}

// GetStopsWithinBounds returns stops inside a bounding box, served by
// the R*Tree index.
func (c *Client) GetStopsWithinBounds(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]model.Stop, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT s.stop_id, s.stop_name, s.stop_lat, s.stop_lon, s.location_type, COALESCE(s.parent_station, '')
		FROM stops s
		JOIN stops_rtree r ON s.rowid = r.id
		WHERE r.min_lat >= ? AND r.max_lat <= ?
			AND r.min_lon >= ? AND r.max_lon <= ?;
	`, minLat, maxLat, minLon, maxLon)
	if err != nil {
		return nil, fmt.Errorf("querying stops within bounds: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	return scanStops(rows)
}

// FindTransferStops returns stops where a route in set A and a route
// in set B both call, as one batched join.
func (c *Client) FindTransferStops(ctx context.Context, routeIDsA, routeIDsB []string, limit int) ([]planner.TransferStop, error) {
	if len(routeIDsA) == 0 || len(routeIDsB) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	query := fmt.Sprintf(`
		SELECT s.stop_id, s.stop_name, s.stop_lat, s.stop_lon, a.route_id, b.route_id
		FROM route_stops a
		JOIN route_stops b ON b.stop_id = a.stop_id AND b.route_id <> a.route_id
		JOIN stops s ON s.stop_id = a.stop_id
		WHERE a.route_id IN (%s) AND b.route_id IN (%s)
		ORDER BY s.stop_id, a.route_id, b.route_id
		LIMIT ?;
	`, placeholders(len(routeIDsA)), placeholders(len(routeIDsB)))

	args := make([]any, 0, len(routeIDsA)+len(routeIDsB)+1)
	for _, id := range routeIDsA {
		args = append(args, id)
	}
	for _, id := range routeIDsB {
		args = append(args, id)
	}
	args = append(args, limit)

	rows, err := c.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transfer stops: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var out []planner.TransferStop
	for rows.Next() {
		var t planner.TransferStop
		if err := rows.Scan(&t.StopID, &t.StopName, &t.Lat, &t.Lon, &t.FromRouteID, &t.ToRouteID); err != nil {
			return nil, fmt.Errorf("scanning transfer stop: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetActualTravelTime returns schedule-derived minutes between two
// stops on a route, taking the fastest trip that serves them in order.
// nil means no schedule data covers the pair.
func (c *Client) GetActualTravelTime(ctx context.Context, routeID, fromStopID, toStopID string) (*int, error) {
	row := c.DB.QueryRowContext(ctx, `
		SELECT MIN(arr.arrival_time - dep.departure_time)
		FROM stop_times dep
		JOIN stop_times arr ON arr.trip_id = dep.trip_id
		JOIN trips t ON t.trip_id = dep.trip_id
		WHERE t.route_id = ?
			AND dep.stop_id = ?
			AND arr.stop_id = ?
			AND arr.stop_sequence > dep.stop_sequence;
	`, routeID, fromStopID, toStopID)

	var seconds sql.NullInt64
	if err := row.Scan(&seconds); err != nil {
		return nil, fmt.Errorf("querying travel time on %s: %w", routeID, err)
	}
	if !seconds.Valid || seconds.Int64 < 0 {
		return nil, nil
	}

	minutes := int((seconds.Int64 + 59) / 60)
	return &minutes, nil
}

// GetTripInfoForRoute returns the headsign of a trip on the route that
// serves fromStop before towardStop, or nil when none is labeled.
func (c *Client) GetTripInfoForRoute(ctx context.Context, routeID, towardStopID, fromStopID string) (*planner.TripInfo, error) {
	row := c.DB.QueryRowContext(ctx, `
		SELECT t.trip_headsign
		FROM trips t
		JOIN stop_times dep ON dep.trip_id = t.trip_id AND dep.stop_id = ?
		JOIN stop_times arr ON arr.trip_id = t.trip_id AND arr.stop_id = ?
		WHERE t.route_id = ?
			AND arr.stop_sequence > dep.stop_sequence
			AND t.trip_headsign <> ''
		LIMIT 1;
	`, fromStopID, towardStopID, routeID)

	var headsign string
	err := row.Scan(&headsign)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying trip info on %s: %w", routeID, err)
	}
	return &planner.TripInfo{Headsign: headsign}, nil
}

func scanStops(rows *sql.Rows) ([]model.Stop, error) {
	var out []model.Stop
	for rows.Next() {
		var s model.Stop
		if err := rows.Scan(&s.ID, &s.Name, &s.Lat, &s.Lon, &s.LocationType, &s.ParentStation); err != nil {
			return nil, fmt.Errorf("scanning stop: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanRoutes(rows *sql.Rows) ([]model.Route, error) {
	var out []model.Route
	for rows.Next() {
		var r model.Route
		var routeType int
		if err := rows.Scan(&r.ID, &r.ShortName, &r.LongName, &routeType, &r.Color, &r.TextColor); err != nil {
			return nil, fmt.Errorf("scanning route: %w", err)
		}
		r.Type = model.RouteType(routeType)
		out = append(out, r)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
