package gtfs

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jamespfennell/gtfs"

	"wayfinder.opentransit.org/internal/geo"
	"wayfinder.opentransit.org/internal/model"
)

// Loader turns a zipped GTFS feed into a normalized Dataset. It first
// tries the strict parser; feeds the strict parser rejects go through
// the lenient CSV path, where the normalizer's alias resolution and
// coordinate repair get a chance to salvage rows.
type Loader struct {
	region geo.Bounds
	logger *slog.Logger
}

func NewLoader(region geo.Bounds, logger *slog.Logger) *Loader {
	return &Loader{region: region, logger: logger}
}

// LoadFile reads a local zipped feed.
func (l *Loader) LoadFile(path string) (*Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gtfs: reading feed file: %w", err)
	}
	return l.Load(b)
}

// Load parses a zipped feed held in memory.
func (l *Loader) Load(b []byte) (*Dataset, error) {
	if ds, err := l.loadStrict(b); err == nil {
		return ds, nil
	} else if l.logger != nil {
		l.logger.Warn("strict GTFS parse failed, falling back to lenient CSV parse",
			slog.String("error", err.Error()))
	}
	return l.loadLenient(b)
}

func (l *Loader) loadStrict(b []byte) (*Dataset, error) {
	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, err
	}
	return l.datasetFromStatic(staticData)
}

// datasetFromStatic converts strict-parser output into the canonical
// model, applying the same defaulting and validation the lenient path
// performs.
func (l *Loader) datasetFromStatic(staticData *gtfs.Static) (*Dataset, error) {
	n := NewNormalizer(l.region, l.logger)
	ds := &Dataset{}

	for _, s := range staticData.Stops {
		if s.Latitude == nil || s.Longitude == nil {
			n.stats.StopsDropped++
			continue
		}
		stop := model.Stop{
			ID:           s.Id,
			Name:         s.Name,
			Lat:          *s.Latitude,
			Lon:          *s.Longitude,
			LocationType: int(s.Type),
		}
		if s.Parent != nil {
			stop.ParentStation = s.Parent.Id
		}
		if !(geo.Point{Lat: stop.Lat, Lon: stop.Lon}).Valid() {
			n.stats.StopsDropped++
			continue
		}
		ds.Stops = append(ds.Stops, stop)
	}

	for _, r := range staticData.Routes {
		routeType := model.RouteType(r.Type)
		shortName := r.ShortName
		if shortName == "" {
			shortName = n.synthesizeShortName(r.Id, routeType, r.LongName)
		}
		ds.Routes = append(ds.Routes, model.Route{
			ID:        r.Id,
			ShortName: shortName,
			LongName:  r.LongName,
			Type:      routeType,
			Color:     normalizeColor(r.Color, defaultColor(routeType)),
			TextColor: normalizeColor(r.TextColor, "#FFFFFF"),
		})
	}

	for i := range staticData.Trips {
		t := &staticData.Trips[i]
		if t.Route == nil {
			n.stats.TripsDropped++
			continue
		}
		trip := model.Trip{
			ID:          t.ID,
			RouteID:     t.Route.Id,
			Headsign:    t.Headsign,
			DirectionID: int(t.DirectionId),
		}
		if t.Service != nil {
			trip.ServiceID = t.Service.Id
		}
		if t.Shape != nil {
			trip.ShapeID = t.Shape.ID
		}
		ds.Trips = append(ds.Trips, trip)

		for _, st := range t.StopTimes {
			if st.Stop == nil {
				n.stats.StopTimesDropped++
				continue
			}
			ds.StopTimes = append(ds.StopTimes, model.StopTime{
				TripID:       t.ID,
				StopID:       st.Stop.Id,
				ArrivalSec:   int(st.ArrivalTime / time.Second),
				DepartureSec: int(st.DepartureTime / time.Second),
				StopSequence: st.StopSequence,
			})
		}
	}

	ds.Stats = n.stats
	if len(ds.Stops) == 0 || len(ds.Routes) == 0 || len(ds.Trips) == 0 || len(ds.StopTimes) == 0 {
		return nil, ErrInvalidFeed
	}
	return ds, nil
}

func (l *Loader) loadLenient(b []byte) (*Dataset, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("gtfs: opening feed zip: %w", err)
	}

	stops, err := readZipRows(zr, "stops.txt")
	if err != nil {
		return nil, err
	}
	routes, err := readZipRows(zr, "routes.txt")
	if err != nil {
		return nil, err
	}
	trips, err := readZipRows(zr, "trips.txt")
	if err != nil {
		return nil, err
	}
	stopTimes, err := readZipRows(zr, "stop_times.txt")
	if err != nil {
		return nil, err
	}

	n := NewNormalizer(l.region, l.logger)
	return n.Normalize(stops, routes, trips, stopTimes)
}

func readZipRows(zr *zip.Reader, name string) ([]RawRow, error) {
	var file *zip.File
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, name) {
			file = f
			break
		}
	}
	if file == nil {
		return nil, fmt.Errorf("gtfs: file %s not found in archive", name)
	}

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("gtfs: opening %s: %w", name, err)
	}
	defer rc.Close() // nolint:errcheck

	rows, err := ReadRows(rc)
	if err != nil {
		return nil, fmt.Errorf("gtfs: reading %s: %w", name, err)
	}
	return rows, nil
}

// ReadRows parses CSV content into raw rows keyed by lowercased header
// name. Extra values past the header land in overflow keys so the
// coordinate repair strategies can inspect them. Unparseable records
// are skipped, not fatal.
func ReadRows(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}

	var rows []RawRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}

		row := make(RawRow, len(header))
		for i, v := range record {
			if i < len(header) {
				row[header[i]] = v
			} else {
				row[overflowKey(i-len(header))] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
