package search

import (
	"sync"
	"time"
)

// DefaultTTL is the validity window for cached results when no per-type
// override is configured.
const DefaultTTL = time.Hour

// Cache stores raw provider results keyed by the full query parameter set.
// Each query type has its own namespace, so concurrent flight and hotel
// searches can never collide on a key. Entries expire after the query
// type's TTL and are evicted lazily on lookup; there is no background
// sweep.
//
// The cache is shared across sessions and safe for concurrent use.
type Cache struct {
	namespaces map[QueryType]*namespace
}

// namespace is the per-query-type shard.
type namespace struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

type entry struct {
	results  *Results
	storedAt time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets the TTL for one query type.
func WithTTL(queryType QueryType, ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ns, ok := c.namespaces[queryType]; ok && ttl > 0 {
			ns.ttl = ttl
		}
	}
}

// NewCache creates a cache with DefaultTTL for every query type.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		namespaces: map[QueryType]*namespace{
			QueryFlight:      newNamespace(),
			QueryHotel:       newNamespace(),
			QueryDestination: newNamespace(),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newNamespace() *namespace {
	return &namespace{
		ttl:     DefaultTTL,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached results for a key, or false when absent or
// expired. An expired entry is deleted on the way out.
func (c *Cache) Get(queryType QueryType, key string) (*Results, bool) {
	ns, ok := c.namespaces[queryType]
	if !ok {
		return nil, false
	}

	ns.mu.RLock()
	e, ok := ns.entries[key]
	expired := ok && ns.now().Sub(e.storedAt) > ns.ttl
	ns.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if expired {
		ns.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have
		// refreshed the entry.
		if cur, still := ns.entries[key]; still && ns.now().Sub(cur.storedAt) > ns.ttl {
			delete(ns.entries, key)
		}
		ns.mu.Unlock()
		return nil, false
	}
	return e.results, true
}

// Put inserts or overwrites the entry for a key, stamping it with the
// current time.
func (c *Cache) Put(queryType QueryType, key string, results *Results) {
	ns, ok := c.namespaces[queryType]
	if !ok {
		return
	}

	ns.mu.Lock()
	ns.entries[key] = entry{results: results, storedAt: ns.now()}
	ns.mu.Unlock()
}

// Len reports the number of live entries for a query type. Expired entries
// still awaiting lazy eviction are counted. Useful for tests.
func (c *Cache) Len(queryType QueryType) int {
	ns, ok := c.namespaces[queryType]
	if !ok {
		return 0
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return len(ns.entries)
}

// setClock overrides the namespace clocks. Test hook.
func (c *Cache) setClock(now func() time.Time) {
	for _, ns := range c.namespaces {
		ns.mu.Lock()
		ns.now = now
		ns.mu.Unlock()
	}
}
