package remote

import (
	"sort"
	"sync"
	"time"
)

type entry struct {
	data      []Option
	timestamp time.Time
}

// Cache maps data-source keys to their last loaded option list.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

var defaultCache = NewCache()

// DefaultCache returns the process-wide cache used by loaders that were not
// given one.
func DefaultCache() *Cache {
	return defaultCache
}

// Fresh returns the entry stored under key when it is younger than ttl.
func (c *Cache) Fresh(key string, ttl time.Duration, now time.Time) ([]Option, bool) {
	if ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || now.Sub(e.timestamp) >= ttl {
		return nil, false
	}
	return e.data, true
}

// Store records data under key.
func (c *Cache) Store(key string, data []Option, at time.Time) {
	c.mu.Lock()
	c.entries[key] = entry{data: data, timestamp: at}
	c.mu.Unlock()
}

// Delete removes the named keys.
func (c *Cache) Delete(keys ...string) {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Keys lists the stored keys in sorted order.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns every stored list keyed by cache key, regardless of age.
func (c *Cache) Snapshot() map[string][]Option {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]Option, len(c.entries))
	for key, e := range c.entries {
		out[key] = e.data
	}
	return out
}
