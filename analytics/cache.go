package analytics

import (
	"sync"
	"time"
)

// PanelCache is an in-memory TTL cache of computed panel data, keyed by
// panel kind, application and date range.
type PanelCache struct {
	mu      sync.RWMutex
	entries map[PanelKey]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// PanelKey identifies one cached aggregate.
type PanelKey struct {
	Kind     string
	AppID    int64
	From, To int64
	Limit    int
}

type cacheEntry struct {
	value   any
	fetched time.Time
}

// NewPanelCache creates a cache whose entries expire after ttl. A zero ttl disables caching.
func NewPanelCache(ttl time.Duration) *PanelCache {
	return &PanelCache{
		entries: make(map[PanelKey]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value for key, calling load to refresh it when
// missing or expired. Errors from load are not cached.
func (c *PanelCache) Get(key PanelKey, load func() (any, error)) (any, error) {
	if c.ttl <= 0 {
		return load()
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(e.fetched) < c.ttl {
		return e.value, nil
	}

	v, err := load()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{value: v, fetched: c.now()}
	c.pruneLocked()
	c.mu.Unlock()
	return v, nil
}

// Invalidate drops every entry.
func (c *PanelCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[PanelKey]cacheEntry)
	c.mu.Unlock()
}

// InvalidateApp drops the entries of one application, so the next read
// sees events collected since they were computed.
func (c *PanelCache) InvalidateApp(appID int64) {
	c.mu.Lock()
	for k := range c.entries {
		if k.AppID == appID {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// pruneLocked removes expired entries once the map grows past a small bound.
func (c *PanelCache) pruneLocked() {
	if len(c.entries) < 256 {
		return
	}
	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.fetched) >= c.ttl {
			delete(c.entries, k)
		}
	}
}
