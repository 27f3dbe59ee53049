// Package gtfsdb stores a normalized GTFS dataset in SQLite and serves
// the read queries the journey planner depends on: point lookup,
// spatial search via an R*Tree index, route membership and
// schedule-derived travel times.
package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"wayfinder.opentransit.org/internal/gtfs"
)

// Client is the main entry point for the package.
type Client struct {
	config Config
	DB     *sql.DB
	logger *slog.Logger
}

// NewClient opens the database and ensures the schema exists.
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := InitDB(config)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if config.verbose {
		logger.Info("database ready", slog.String("path", config.DBPath))
	}

	return &Client{config: config, DB: db, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// ImportDataset replaces the stored feed with a normalized dataset.
// Each entity category is written in one transaction, then the derived
// route membership table is rebuilt.
func (c *Client) ImportDataset(ctx context.Context, ds *gtfs.Dataset) error {
	if err := c.insertStops(ctx, ds); err != nil {
		return err
	}
	if err := c.insertRoutes(ctx, ds); err != nil {
		return err
	}
	if err := c.insertTrips(ctx, ds); err != nil {
		return err
	}
	if err := c.insertStopTimes(ctx, ds); err != nil {
		return err
	}
	if err := c.rebuildRouteStops(ctx); err != nil {
		return err
	}

	c.logger.Info("imported GTFS dataset",
		slog.Int("stops", len(ds.Stops)),
		slog.Int("routes", len(ds.Routes)),
		slog.Int("trips", len(ds.Trips)),
		slog.Int("stopTimes", len(ds.StopTimes)))
	return nil
}

func (c *Client) insertStops(ctx context.Context, ds *gtfs.Dataset) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO stops (
			stop_id, stop_name, stop_lat, stop_lon, location_type, parent_station
		) VALUES (?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, s := range ds.Stops {
		_, err := stmt.Exec(s.ID, s.Name, s.Lat, s.Lon, s.LocationType, s.ParentStation)
		if err != nil {
			tx.Rollback() // nolint:errcheck
			return fmt.Errorf("error inserting stop %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (c *Client) insertRoutes(ctx context.Context, ds *gtfs.Dataset) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO routes (
			route_id, route_short_name, route_long_name, route_type, route_color, route_text_color
		) VALUES (?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, r := range ds.Routes {
		_, err := stmt.Exec(r.ID, r.ShortName, r.LongName, int(r.Type), r.Color, r.TextColor)
		if err != nil {
			tx.Rollback() // nolint:errcheck
			return fmt.Errorf("error inserting route %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (c *Client) insertTrips(ctx context.Context, ds *gtfs.Dataset) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO trips (
			trip_id, route_id, service_id, trip_headsign, direction_id, shape_id
		) VALUES (?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, t := range ds.Trips {
		_, err := stmt.Exec(t.ID, t.RouteID, t.ServiceID, t.Headsign, t.DirectionID, t.ShapeID)
		if err != nil {
			tx.Rollback() // nolint:errcheck
			return fmt.Errorf("error inserting trip %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (c *Client) insertStopTimes(ctx context.Context, ds *gtfs.Dataset) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO stop_times (
			trip_id, stop_id, arrival_time, departure_time, stop_sequence
		) VALUES (?, ?, ?, ?, ?);
	`)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, st := range ds.StopTimes {
		_, err := stmt.Exec(st.TripID, st.StopID, st.ArrivalSec, st.DepartureSec, st.StopSequence)
		if err != nil {
			tx.Rollback() // nolint:errcheck
			return fmt.Errorf("error inserting stop time: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (c *Client) rebuildRouteStops(ctx context.Context) error {
	_, err := c.DB.ExecContext(ctx, `
		DELETE FROM route_stops;
		INSERT OR IGNORE INTO route_stops (route_id, stop_id)
		SELECT DISTINCT t.route_id, st.stop_id
		FROM stop_times st
		JOIN trips t ON t.trip_id = st.trip_id;
	`)
	if err != nil {
		return fmt.Errorf("error rebuilding route membership: %w", err)
	}
	return nil
}
