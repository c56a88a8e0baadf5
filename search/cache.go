package search

import (
	"slices"
	"sync"
	"time"
)

// Cache is a small in-memory TTL cache of merged result lists.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	results []Result
	expires time.Time
}

// NewCache creates a cache whose entries expire after ttl.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{ttl: ttl, now: now, entries: make(map[string]cacheEntry)}
}

// Get returns a copy of the cached results for key.
func (c *Cache) Get(key string) ([]Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false
	}

	return slices.Clone(e.results), true
}

// Set stores a copy of results under key, evicting expired entries.
func (c *Cache) Set(key string, results []Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}

	c.entries[key] = cacheEntry{results: slices.Clone(results), expires: now.Add(c.ttl)}
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
