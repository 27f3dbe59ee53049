package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	c := New(time.Minute, time.Minute)
	defer c.Stop()

	c.Set("stop:PA433", "value")

	got, found := c.Get("stop:PA433")
	require.True(t, found)
	assert.Equal(t, "value", got)

	_, found = c.Get("missing")
	assert.False(t, found)
}

func TestExpiration(t *testing.T) {
	c := New(time.Minute, time.Minute)
	defer c.Stop()

	c.SetWithTTL("short", 42, 10*time.Millisecond)

	_, found := c.Get("short")
	assert.True(t, found)

	time.Sleep(25 * time.Millisecond)

	_, found = c.Get("short")
	assert.False(t, found)
}

func TestNoExpiryWhenTTLZero(t *testing.T) {
	c := New(0, time.Minute)
	defer c.Stop()

	c.Set("forever", 1)
	time.Sleep(5 * time.Millisecond)

	_, found := c.Get("forever")
	assert.True(t, found)
}

func TestDeleteAndClear(t *testing.T) {
	c := New(time.Minute, time.Minute)
	defer c.Stop()

	c.Set("a", 1)
	c.Set("b", 2)
	assert.Equal(t, 2, c.Len())

	c.Delete("a")
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestStopIsIdempotent(t *testing.T) {
	c := New(time.Minute, time.Millisecond)
	assert.NotPanics(t, func() {
		c.Stop()
		c.Stop()
	})
}
