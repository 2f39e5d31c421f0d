package cache

import (
	"log"
	"time"

	"github.com/scriptvoid/scriptvoid/internal/metrics"
)

// EntryMeta carries listing metadata alongside a cached payload so list
// endpoints can serve totals and caching headers without recomputing.
type EntryMeta struct {
	TotalCount   int
	LastModified time.Time
}

type smartEntry struct {
	data any
	meta EntryMeta
}

// SmartCache composes the TTL cache with the change-event log: an entry is
// served only while it is TTL-fresh AND no relevant change event postdates
// its insertion. Mutation routes invalidate proactively through the named
// wrappers; the change-event check is a safety net for entries a route
// forgot to clear. Caching is a performance optimization, never a
// correctness dependency, so every failure path degrades to a miss.
type SmartCache struct {
	ttl     *TTLCache
	changes *ChangeLog
	now     func() time.Time
}

// NewSmartCache wires a TTL cache to a change log.
func NewSmartCache(ttl *TTLCache, changes *ChangeLog) *SmartCache {
	return &SmartCache{ttl: ttl, changes: changes, now: time.Now}
}

// Changes exposes the underlying change log so mutation routes can append
// events through the same handle they invalidate with.
func (s *SmartCache) Changes() *ChangeLog { return s.changes }

// Get returns the cached payload and its metadata, or ok=false when the
// entry is absent, expired, or made stale by a relevant change event.
func (s *SmartCache) Get(key string) (any, EntryMeta, bool) {
	v, ok := s.ttl.Get(key)
	if !ok {
		metrics.CacheMiss()
		return nil, EntryMeta{}, false
	}
	e, ok := v.(smartEntry)
	if !ok {
		// Someone stored a raw value through the TTL layer; treat as miss.
		metrics.CacheMiss()
		return nil, EntryMeta{}, false
	}
	if s.staleByChanges(key) {
		metrics.CacheStale()
		return nil, EntryMeta{}, false
	}
	metrics.CacheHit()
	return e.data, e.meta, true
}

// Set stores data under key for the given TTL.
func (s *SmartCache) Set(key string, data any, ttl time.Duration, meta EntryMeta) {
	s.ttl.Set(key, smartEntry{data: data, meta: meta}, ttl)
}

// ClearByPattern deletes every entry whose key contains the substring.
func (s *SmartCache) ClearByPattern(substring string) int {
	return s.ttl.ClearByPattern(substring)
}

// ClearScripts invalidates every cached script listing (browse, popular,
// newest). Called by upload/edit/delete/engagement routes.
func (s *SmartCache) ClearScripts() int {
	return s.ttl.ClearByPattern("scripts")
}

// ClearProfile invalidates the cached profile pages of one user.
func (s *SmartCache) ClearProfile(username string) int {
	return s.ttl.ClearByPattern("profile:" + username)
}

// ClearAll wipes the whole cache.
func (s *SmartCache) ClearAll() {
	s.ttl.ClearAll()
}

// staleByChanges asks the change log whether the entry's window saw a
// relevant mutation. A panicking or misbehaving check fails open: serving a
// recompute is always safe, serving stale data silently is not.
func (s *SmartCache) staleByChanges(key string) (stale bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[CACHE] change-log check failed for key %q: %v", key, r)
			stale = true
		}
	}()
	insertedAt := s.ttl.InsertedAt(key)
	if insertedAt.IsZero() {
		return true
	}
	return s.changes.HasRelevantChanges(key, s.now().Sub(insertedAt))
}
