package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocodeAddress(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"lat": "-33.4372", "lon": "-70.6506", "display_name": "Plaza de Armas, Santiago, Chile", "importance": 0.8},
			{"lat": "bogus", "lon": "-70.0", "display_name": "Broken", "importance": 0.1}
		]`))
	}))
	defer server.Close()

	c := NewClient(Config{
		BaseURL:     server.URL,
		CountryCode: "cl",
		Viewbox:     &Viewbox{West: -70.85, North: -33.35, East: -70.45, South: -33.65},
	}, nil)

	results, err := c.GeocodeAddress(context.Background(), "plaza de armas", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.InDelta(t, -33.4372, results[0].Lat, 1e-9)
	assert.InDelta(t, -70.6506, results[0].Lon, 1e-9)
	assert.Equal(t, "Plaza de Armas, Santiago", results[0].ShortAddress)

	assert.Contains(t, gotQuery, "countrycodes=cl")
	assert.Contains(t, gotQuery, "bounded=1")
}

func TestGeocodeAddressEmptyQuery(t *testing.T) {
	c := NewClient(Config{}, nil)

	_, err := c.GeocodeAddress(context.Background(), "   ", 5)
	assert.Error(t, err)
}

func TestGeocodeAddressServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL}, nil)
	_, err := c.GeocodeAddress(context.Background(), "somewhere", 5)
	assert.Error(t, err)
}

func TestGeocodeAddressNoMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL}, nil)
	results, err := c.GeocodeAddress(context.Background(), "nowhere at all", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
