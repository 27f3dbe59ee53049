package gtfs

import (
	"math"
	"strconv"
	"strings"

	"wayfinder.opentransit.org/internal/geo"
)

// Real-world feeds ship coordinates in several broken encodings:
// swapped lat/lon columns, integer degrees with the fraction digits in
// a companion column, and comma decimals split across two CSV fields.
// Repair is a prioritized list of strategies tried in order; the first
// one producing a point inside the feed's plausible region wins. The
// fraction repairs run before passthrough: a whole-degree pair with
// fraction digits waiting in another column can land in-region by
// truncation alone, and accepting it as-is would lose the digits. If
// none applies the raw values pass through and the validation pass
// decides whether to discard the row. Best-effort recovery only.

type coordStrategy struct {
	name  string
	apply func(row RawRow, lat, lon float64, region geo.Bounds) (float64, float64, bool)
}

var coordStrategies = []coordStrategy{
	{name: "fraction-column", apply: repairFractionColumn},
	{name: "split-decimal", apply: repairSplitDecimal},
	{name: "passthrough", apply: repairPassthrough},
	{name: "swapped-columns", apply: repairSwapped},
}

// repairCoordinates runs the strategy chain and returns the repaired
// pair plus the name of the strategy that matched. When nothing
// matches the values pass through unchanged with an empty strategy
// name, leaving the drop decision to the validation pass. A swap is
// only ever trusted when the region confirms it; an unconfirmed swap
// can turn a broken row into a range-valid stop in the wrong ocean.
func repairCoordinates(row RawRow, region geo.Bounds) (float64, float64, string) {
	lat := parseCoord(row.Field(stopLatAliases...))
	lon := parseCoord(row.Field(stopLonAliases...))

	for _, s := range coordStrategies {
		if rlat, rlon, ok := s.apply(row, lat, lon, region); ok {
			return rlat, rlon, s.name
		}
	}

	return lat, lon, ""
}

// parseCoord parses a coordinate field, tolerating comma decimals.
func parseCoord(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func inRegion(lat, lon float64, region geo.Bounds) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return region.Contains(geo.Point{Lat: lat, Lon: lon})
}

func repairPassthrough(_ RawRow, lat, lon float64, region geo.Bounds) (float64, float64, bool) {
	if inRegion(lat, lon, region) {
		return lat, lon, true
	}
	return 0, 0, false
}

func repairSwapped(_ RawRow, lat, lon float64, region geo.Bounds) (float64, float64, bool) {
	if inRegion(lon, lat, region) {
		return lon, lat, true
	}
	return 0, 0, false
}

// repairFractionColumn handles feeds that export the integer degrees
// in stop_lat/stop_lon and the decimal digits in companion columns
// (stop_lat_dec, lat_frac and friends).
func repairFractionColumn(row RawRow, lat, lon float64, region geo.Bounds) (float64, float64, bool) {
	latFrac := row.Field("stop_lat_dec", "lat_dec", "lat_frac", "stop_lat_frac")
	lonFrac := row.Field("stop_lon_dec", "lon_dec", "lon_frac", "stop_lon_frac")
	if latFrac == "" || lonFrac == "" {
		return 0, 0, false
	}
	if !isWhole(lat) || !isWhole(lon) {
		return 0, 0, false
	}

	rlat, ok1 := attachFraction(lat, latFrac)
	rlon, ok2 := attachFraction(lon, lonFrac)
	if ok1 && ok2 && inRegion(rlat, rlon, region) {
		return rlat, rlon, true
	}
	return 0, 0, false
}

// repairSplitDecimal handles locale comma decimals that a naive CSV
// export split into two fields; the fraction digits land in the
// overflow columns past the declared header.
func repairSplitDecimal(row RawRow, lat, lon float64, region geo.Bounds) (float64, float64, bool) {
	latFrac := row.Field(overflowKey(0))
	lonFrac := row.Field(overflowKey(1))
	if latFrac == "" || lonFrac == "" {
		return 0, 0, false
	}
	if !isWhole(lat) || !isWhole(lon) {
		return 0, 0, false
	}

	rlat, ok1 := attachFraction(lat, latFrac)
	rlon, ok2 := attachFraction(lon, lonFrac)
	if ok1 && ok2 && inRegion(rlat, rlon, region) {
		return rlat, rlon, true
	}
	return 0, 0, false
}

func isWhole(v float64) bool {
	return !math.IsNaN(v) && v == math.Trunc(v)
}

// attachFraction glues decimal digits onto an integer degree value,
// preserving the sign: attachFraction(-33, "4489") == -33.4489.
func attachFraction(whole float64, digits string) (float64, bool) {
	digits = strings.TrimSpace(digits)
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	frac, err := strconv.ParseFloat("0."+digits, 64)
	if err != nil {
		return 0, false
	}
	if whole < 0 || strings.HasPrefix(strconv.FormatFloat(whole, 'f', -1, 64), "-") {
		return whole - frac, true
	}
	return whole + frac, true
}
