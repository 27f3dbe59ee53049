package gtfsdb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens the SQLite database and creates the schema: the four
// canonical GTFS tables, a derived route membership table, and an
// R*Tree spatial index over stops kept in sync by triggers.
func InitDB(config Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if _, err = db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}

	if err := createTables(tx); err != nil {
		tx.Rollback() // nolint:errcheck
		return nil, err
	}

	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_stops_name ON stops(stop_name);
		CREATE INDEX IF NOT EXISTS idx_trips_route_id ON trips(route_id);
		CREATE INDEX IF NOT EXISTS idx_stop_times_trip_id ON stop_times(trip_id);
		CREATE INDEX IF NOT EXISTS idx_stop_times_stop_id ON stop_times(stop_id);
		CREATE INDEX IF NOT EXISTS idx_route_stops_stop_id ON route_stops(stop_id);
	`)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		return nil, fmt.Errorf("error creating indexes: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	return db, nil
}

func createTables(tx *sql.Tx) error {
	statements := []struct {
		name string
		stmt string
	}{
		{"stops", `
			CREATE TABLE IF NOT EXISTS stops (
				stop_id TEXT PRIMARY KEY,
				stop_name TEXT NOT NULL,
				stop_lat REAL NOT NULL,
				stop_lon REAL NOT NULL,
				location_type INTEGER DEFAULT 0,
				parent_station TEXT
			);`},
		{"routes", `
			CREATE TABLE IF NOT EXISTS routes (
				route_id TEXT PRIMARY KEY,
				route_short_name TEXT,
				route_long_name TEXT,
				route_type INTEGER NOT NULL DEFAULT 3,
				route_color TEXT,
				route_text_color TEXT
			);`},
		{"trips", `
			CREATE TABLE IF NOT EXISTS trips (
				trip_id TEXT PRIMARY KEY,
				route_id TEXT NOT NULL,
				service_id TEXT,
				trip_headsign TEXT,
				direction_id INTEGER DEFAULT 0,
				shape_id TEXT
			);`},
		// Times are seconds after midnight; values past 86400 continue
		// into the next service day.
		{"stop_times", `
			CREATE TABLE IF NOT EXISTS stop_times (
				trip_id TEXT NOT NULL,
				stop_id TEXT NOT NULL,
				arrival_time INTEGER NOT NULL,
				departure_time INTEGER NOT NULL,
				stop_sequence INTEGER NOT NULL,
				PRIMARY KEY (trip_id, stop_sequence)
			);`},
		// route_stops is rebuilt at import time from trips and
		// stop_times so transfer discovery is one indexed join instead
		// of an N+1 scan.
		{"route_stops", `
			CREATE TABLE IF NOT EXISTS route_stops (
				route_id TEXT NOT NULL,
				stop_id TEXT NOT NULL,
				PRIMARY KEY (route_id, stop_id)
			);`},
		{"stops_rtree", `
			CREATE VIRTUAL TABLE IF NOT EXISTS stops_rtree USING rtree(
				id,
				min_lat, max_lat,
				min_lon, max_lon
			);`},
		{"stops_rtree_insert_trigger", `
			CREATE TRIGGER IF NOT EXISTS stops_rtree_insert_trigger
			AFTER INSERT ON stops
			BEGIN
				INSERT INTO stops_rtree(id, min_lat, max_lat, min_lon, max_lon)
				VALUES (new.rowid, new.stop_lat, new.stop_lat, new.stop_lon, new.stop_lon);
			END;`},
		{"stops_rtree_update_trigger", `
			CREATE TRIGGER IF NOT EXISTS stops_rtree_update_trigger
			AFTER UPDATE ON stops
			BEGIN
				UPDATE stops_rtree SET
					min_lat = new.stop_lat,
					max_lat = new.stop_lat,
					min_lon = new.stop_lon,
					max_lon = new.stop_lon
				WHERE id = old.rowid;
			END;`},
		{"stops_rtree_delete_trigger", `
			CREATE TRIGGER IF NOT EXISTS stops_rtree_delete_trigger
			AFTER DELETE ON stops
			BEGIN
				DELETE FROM stops_rtree WHERE id = old.rowid;
			END;`},
	}

	for _, s := range statements {
		if _, err := tx.Exec(s.stmt); err != nil {
			return fmt.Errorf("error creating %s: %w", s.name, err)
		}
	}
	return nil
}
