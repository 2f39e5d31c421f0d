// Package cache implements the in-process caching layers used by the read
// endpoints: a TTL key/value store, a bounded change-event log, the smart
// cache composing the two, and the startup cache warmer. All structures are
// process-local singletons; in a multi-instance deployment each instance
// keeps its own state and invalidation does not propagate across instances.
package cache

import (
	"strings"
	"sync"
	"time"
)

// entry is a stored value with its absolute expiry and an insertion
// sequence number used for FIFO eviction.
type entry struct {
	data       any
	insertedAt time.Time
	expiresAt  time.Time
	seq        uint64
}

// TTLCache is a size-bounded key/value store with per-entry expiry.
// Expired entries are deleted lazily on access; a background janitor may
// additionally sweep them to bound memory, but is not required for
// correctness. Eviction on overflow removes the single oldest-inserted
// entry (FIFO, not LRU) — deterministic and deliberately simple.
type TTLCache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	capacity int
	seq      uint64
	stop     chan struct{}
	now      func() time.Time
}

// NewTTLCache returns a cache bounded to capacity entries. A capacity of
// zero or less means unbounded. When sweep is positive a janitor goroutine
// removes expired entries at that interval until Close is called.
func NewTTLCache(capacity int, sweep time.Duration) *TTLCache {
	c := &TTLCache{
		entries:  make(map[string]*entry),
		capacity: capacity,
		stop:     make(chan struct{}),
		now:      time.Now,
	}
	if sweep > 0 {
		go c.janitor(sweep)
	}
	return c
}

// Set stores data under key with an absolute expiry of now+ttl. Inserting
// into a full cache evicts the oldest-inserted entry first.
func (c *TTLCache) Set(key string, data any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && c.capacity > 0 && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.seq++
	c.entries[key] = &entry{
		data:       data,
		insertedAt: now,
		expiresAt:  now.Add(ttl),
		seq:        c.seq,
	}
}

// Get returns the stored value, or (nil, false) when the key is absent or
// expired. Expired entries are deleted on access.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.data, true
}

// InsertedAt reports when the entry for key was stored. The zero time is
// returned for absent or expired entries.
func (c *TTLCache) InsertedAt(key string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return time.Time{}
	}
	return e.insertedAt
}

// ClearByPattern deletes every key containing the given substring and
// returns the number of entries removed.
func (c *TTLCache) ClearByPattern(substring string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.entries {
		if strings.Contains(k, substring) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// ClearAll wipes every entry.
func (c *TTLCache) ClearAll() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// Len returns the current number of stored entries, expired or not.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the janitor goroutine if one is running.
func (c *TTLCache) Close() {
	close(c.stop)
}

// evictOldestLocked removes the entry with the lowest insertion sequence.
// Caller must hold mu.
func (c *TTLCache) evictOldestLocked() {
	var (
		oldestKey string
		oldestSeq uint64
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.seq < oldestSeq {
			oldestKey, oldestSeq, found = k, e.seq, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

func (c *TTLCache) janitor(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			c.deleteExpired()
		}
	}
}

func (c *TTLCache) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
