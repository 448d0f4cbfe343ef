package quotes

import (
	"context"
	"errors"
	"sync"
	"time"

	"inflated-puts/services"
)

// Snapshot is the last known market for one option contract
type Snapshot struct {
	Bid             float64
	Ask             float64
	Last            float64
	PrevClose       float64
	Volume          *int64
	OpenInterest    *int64
	UnderlyingPrice float64
	UpdatedAt       time.Time
}

// HasQuote reports whether either side of the snapshot market is non-zero
func (s Snapshot) HasQuote() bool {
	return s.Bid > 0 || s.Ask > 0
}

type cacheEntry struct {
	snapshot Snapshot
	storedAt time.Time
}

// Cache holds per-contract snapshots so a contract's snapshot is fetched at
// most once while the entry is fresh. Each adapter owns one, and a scan
// builds fresh adapters, so entries never outlive a scan.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

// NewCache creates a new Cache with the specified TTL.
// A TTL of 0 keeps entries for the life of the cache.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// DefaultCacheTTL bounds how stale a cached snapshot may get within one scan
const DefaultCacheTTL = 5 * time.Minute

// Get returns the cached snapshot for an option symbol and whether it is fresh
func (c *Cache) Get(optionSymbol string) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[optionSymbol]
	if !ok || !c.fresh(entry) {
		return Snapshot{}, false
	}
	return entry.snapshot, true
}

// Set stores a snapshot for an option symbol
func (c *Cache) Set(optionSymbol string, snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[optionSymbol] = cacheEntry{snapshot: snap, storedAt: time.Now()}
}

// GetOrFetch returns the cached snapshot or calls fetch and caches its
// result. A not-found answer is cached as an empty snapshot; other failures
// are not cached, so the next call fetches again.
func (c *Cache) GetOrFetch(ctx context.Context, optionSymbol string, fetch func(context.Context) (Snapshot, error)) (Snapshot, error) {
	if snap, ok := c.Get(optionSymbol); ok {
		return snap, nil
	}
	snap, err := fetch(ctx)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.Set(optionSymbol, Snapshot{})
		}
		return Snapshot{}, err
	}
	c.Set(optionSymbol, snap)
	return snap, nil
}

// Invalidate clears every entry
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of cached entries, fresh or not
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// TTL returns the cache's time-to-live duration.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) fresh(entry cacheEntry) bool {
	return c.ttl == 0 || time.Since(entry.storedAt) < c.ttl
}
