package catalog

import (
	"sync"
	"time"
)

// cacheEntry is one cached catalog payload.
type cacheEntry struct {
	value        any
	expiresAt    time.Time
	lastAccessed time.Time
}

// Cache is a thread-safe in-memory TTL cache with LRU eviction, owned by the
// composition root and passed by reference. The clock is injected so expiry is
// testable. It is an optimization only; every lookup is safe to recompute.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	metrics    *Metrics
}

// NewCache creates a cache. A nil clock uses time.Now.
func NewCache(ttl time.Duration, maxEntries int, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries:    make(map[string]*cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        now,
	}
}

// SetMetrics attaches optional hit/miss metrics.
func (c *Cache) SetMetrics(m *Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.recordMiss()
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		c.recordMiss()
		return nil, false
	}
	e.lastAccessed = c.now()
	if c.metrics != nil {
		c.metrics.hits.Inc()
	}
	return e.value, true
}

// Set stores a value, evicting the least recently used entry at capacity.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}

	now := c.now()
	c.entries[key] = &cacheEntry{
		value:        value,
		expiresAt:    now.Add(c.ttl),
		lastAccessed: now,
	}
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// evictLRU removes the least recently accessed entry. Caller holds the lock.
func (c *Cache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for k, e := range c.entries {
		if first || e.lastAccessed.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.lastAccessed
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *Cache) recordMiss() {
	if c.metrics != nil {
		c.metrics.misses.Inc()
	}
}
