package cascade

import "sync"

type cacheKey struct {
	scenario string
	hour     int
}

// Cache memoizes results by scenario and forecast hour. Concurrent misses on
// the same key may compute twice; the last writer wins. Results are copied in
// and out so callers never share state with the cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]Result
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]Result)}
}

// Get returns the cached result for the key, if any.
func (c *Cache) Get(scenario string, hour int) (Result, bool) {
	c.mu.RLock()
	r, ok := c.entries[cacheKey{scenario, hour}]
	c.mu.RUnlock()
	if !ok {
		cacheLookups.WithLabelValues("miss").Inc()
		return Result{}, false
	}
	cacheLookups.WithLabelValues("hit").Inc()
	return r.Clone(), true
}

// Put stores r under its own scenario and forecast hour.
func (c *Cache) Put(r Result) {
	c.mu.Lock()
	c.entries[cacheKey{r.Scenario, r.ForecastHour}] = r.Clone()
	c.mu.Unlock()
}

// GetOrRun returns the cached result or computes, stores and returns a new
// one. The boolean reports whether run was invoked.
func (c *Cache) GetOrRun(scenario string, hour int, run func() Result) (Result, bool) {
	if r, ok := c.Get(scenario, hour); ok {
		return r, false
	}
	r := run()
	c.mu.Lock()
	c.entries[cacheKey{scenario, hour}] = r.Clone()
	c.mu.Unlock()
	return r, true
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops every cached result.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]Result)
	c.mu.Unlock()
}
