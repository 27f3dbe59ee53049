package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfinder.opentransit.org/internal/cache"
	"wayfinder.opentransit.org/internal/model"
)

func TestFindNearbyStopsSortsAndTruncates(t *testing.T) {
	store := newMockStore()
	// Plaza de Armas area. ~111 m per 0.001 degree of latitude.
	store.addStop(model.Stop{ID: "far", Name: "Far", Lat: -33.445, Lon: -70.6506})
	store.addStop(model.Stop{ID: "near", Name: "Near", Lat: -33.4372, Lon: -70.6506})
	store.addStop(model.Stop{ID: "mid", Name: "Mid", Lat: -33.4400, Lon: -70.6506})

	f := NewNearbyFinder(store, nil)
	got, err := f.FindNearbyStops(context.Background(), -33.4370, -70.6506, 500, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "near", got[0].Stop.ID)
	assert.Equal(t, "mid", got[1].Stop.ID)
	assert.Less(t, got[0].DistanceMeters, got[1].DistanceMeters)
	assert.Greater(t, got[0].WalkingMinutes, 0)
}

func TestFindNearbyStopsRadiusFilter(t *testing.T) {
	store := newMockStore()
	store.addStop(model.Stop{ID: "inside", Lat: -33.4372, Lon: -70.6506})
	store.addStop(model.Stop{ID: "outside", Lat: -33.4500, Lon: -70.6506})

	f := NewNearbyFinder(store, nil)
	got, err := f.FindNearbyStops(context.Background(), -33.4370, -70.6506, 300, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "inside", got[0].Stop.ID)
}

func TestFindNearbyStopsEmptyIsNotError(t *testing.T) {
	f := NewNearbyFinder(newMockStore(), nil)
	got, err := f.FindNearbyStops(context.Background(), 0, 0, 500, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindNearbyStopsPropagatesStoreError(t *testing.T) {
	store := newMockStore()
	store.failBounds = errors.New("db gone")

	f := NewNearbyFinder(store, nil)
	_, err := f.FindNearbyStops(context.Background(), 0, 0, 500, 10)
	assert.Error(t, err)
}

func TestFindNearbyStopsUsesCache(t *testing.T) {
	store := newMockStore()
	store.addStop(model.Stop{ID: "a", Lat: -33.4372, Lon: -70.6506})

	c := cache.New(time.Minute, 0)
	defer c.Stop()

	f := NewNearbyFinder(store, c)
	ctx := context.Background()

	_, err := f.FindNearbyStops(ctx, -33.4370, -70.6506, 500, 5)
	require.NoError(t, err)
	_, err = f.FindNearbyStops(ctx, -33.4370, -70.6506, 500, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, store.boundsCalls)
}
