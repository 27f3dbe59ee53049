// Package cache provides a small thread-safe in-memory TTL cache. The
// planner uses it to memoize geocoding results and nearby-stop lookups
// keyed by quantized coordinates; a miss only means a slower search.
package cache

import (
	"sync"
	"time"
)

type item struct {
	value      any
	expiration int64 // unix nanoseconds, 0 means no expiry
}

// Cache is a thread-safe key-value store with per-entry expiration.
type Cache struct {
	mu                sync.RWMutex
	items             map[string]item
	defaultExpiration time.Duration
	stopCleanup       chan struct{}
	stopOnce          sync.Once
}

// New creates a cache with the given default TTL. cleanupInterval
// drives a background sweep of expired entries.
func New(defaultExpiration, cleanupInterval time.Duration) *Cache {
	c := &Cache{
		items:             make(map[string]item),
		defaultExpiration: defaultExpiration,
		stopCleanup:       make(chan struct{}),
	}

	go c.cleanupLoop(cleanupInterval)

	return c
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.defaultExpiration)
}

// SetWithTTL stores a value with an explicit TTL. A non-positive
// duration stores the value without expiry.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}

	c.mu.Lock()
	c.items[key] = item{value: value, expiration: expiration}
	c.mu.Unlock()
}

// Get returns the value for key and whether it was present and fresh.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	it, found := c.items[key]
	c.mu.RUnlock()

	if !found {
		return nil, false
	}
	if it.expiration > 0 && time.Now().UnixNano() > it.expiration {
		c.Delete(key)
		return nil, false
	}
	return it.value, true
}

// Delete removes a key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]item)
	c.mu.Unlock()
}

// Len returns the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop terminates the background cleanup goroutine.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCleanup)
	})
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *Cache) deleteExpired() {
	now := time.Now().UnixNano()

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, it := range c.items {
		if it.expiration > 0 && now > it.expiration {
			delete(c.items, key)
		}
	}
}
