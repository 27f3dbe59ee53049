// Package geocode resolves free-text addresses to coordinates through
// the Nominatim (OpenStreetMap) search API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wayfinder.opentransit.org/internal/planner"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// Nominatim requires an identifying User-Agent on every request.
const userAgent = "wayfinder/1.0 (transit journey planner)"

// Viewbox biases results toward a region, in Nominatim's
// "west,north,east,south" order.
type Viewbox struct {
	West  float64
	North float64
	East  float64
	South float64
}

func (v Viewbox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", v.West, v.North, v.East, v.South)
}

// Config narrows searches to one deployment's coverage area.
type Config struct {
	BaseURL     string
	CountryCode string // ISO 3166-1 alpha-2, e.g. "cl"
	Viewbox     *Viewbox
	Timeout     time.Duration
}

// Client is an HTTP Nominatim client implementing planner.Geocoder.
type Client struct {
	config Config
	http   *http.Client
	logger *slog.Logger
}

var _ planner.Geocoder = (*Client)(nil)

func NewClient(config Config, logger *slog.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

type nominatimResult struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}

// GeocodeAddress searches Nominatim for an address and returns matches
// ordered by the service's own ranking.
func (c *Client) GeocodeAddress(ctx context.Context, text string, limit int) ([]planner.GeocodeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty address")
	}
	if limit <= 0 || limit > 10 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", text)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("addressdetails", "1")
	if c.config.CountryCode != "" {
		params.Set("countrycodes", c.config.CountryCode)
	}
	if c.config.Viewbox != nil {
		params.Set("bounded", "1")
		params.Set("viewbox", c.config.Viewbox.String())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building geocode request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding service: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}

	var raw []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding geocode response: %w", err)
	}

	results := make([]planner.GeocodeResult, 0, len(raw))
	for _, r := range raw {
		lat, latErr := strconv.ParseFloat(r.Lat, 64)
		lon, lonErr := strconv.ParseFloat(r.Lon, 64)
		if latErr != nil || lonErr != nil {
			c.logger.Warn("skipping geocode result with bad coordinates",
				slog.String("lat", r.Lat), slog.String("lon", r.Lon))
			continue
		}
		results = append(results, planner.GeocodeResult{
			Lat:          lat,
			Lon:          lon,
			DisplayName:  r.DisplayName,
			ShortAddress: shortAddress(r.DisplayName),
		})
	}
	return results, nil
}

// shortAddress keeps the first two comma-separated components of a
// Nominatim display name, enough for a list entry.
func shortAddress(displayName string) string {
	parts := strings.SplitN(displayName, ",", 3)
	if len(parts) < 2 {
		return strings.TrimSpace(displayName)
	}
	return strings.TrimSpace(parts[0]) + ", " + strings.TrimSpace(parts[1])
}
