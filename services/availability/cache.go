package availability

import (
	"sync"
	"time"
)

// cacheEntry is one cached payload plus the bookkeeping the throttle and
// TTL checks need. StoredAt is refreshed only on success; a failed fetch
// leaves the entry untouched.
type cacheEntry struct {
	payload     any
	storedAt    time.Time
	completedAt time.Time
}

// MemoryCache is the session-scoped availability cache. In-memory only,
// never persisted. The mutex covers the map; for a given key writes come
// only from the single in-flight fetch winner.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry)}
}

// Lookup returns the cached payload for key, whether it is still fresh
// under ttl, and whether an entry exists at all. Stale entries are still
// returned; stale-while-revalidate is the caller's policy.
func (c *MemoryCache) Lookup(key string, now time.Time, ttl time.Duration) (any, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	fresh := now.Sub(entry.storedAt) < ttl
	return entry.payload, fresh, true
}

// CompletedWithin reports whether a fetch for key finished inside the
// throttle window. Only meaningful alongside an existing entry.
func (c *MemoryCache) CompletedWithin(key string, now time.Time, window time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	return now.Sub(entry.completedAt) < window
}

// Store records a successful fetch, refreshing the entry's timestamps.
func (c *MemoryCache) Store(key string, payload any, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{payload: payload, storedAt: now, completedAt: now}
}

// Sweep drops entries stale for longer than maxAge and returns how many
// were removed. Called by the janitor, not the request path.
func (c *MemoryCache) Sweep(now time.Time, maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) > maxAge {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
