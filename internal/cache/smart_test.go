package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSmartCache() (*SmartCache, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	ttl := NewTTLCache(0, 0)
	ttl.now = clock
	changes := NewChangeLog(10)
	changes.now = clock
	s := NewSmartCache(ttl, changes)
	s.now = clock
	return s, &now
}

func TestSmartCacheHit(t *testing.T) {
	s, _ := newTestSmartCache()

	meta := EntryMeta{TotalCount: 42, LastModified: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}
	s.Set("scripts:popular:page:1", "payload", time.Minute, meta)

	v, m, ok := s.Get("scripts:popular:page:1")
	require.True(t, ok)
	assert.Equal(t, "payload", v)
	assert.Equal(t, 42, m.TotalCount)
	assert.Equal(t, meta.LastModified, m.LastModified)
}

func TestSmartCacheStaleByChangeEvent(t *testing.T) {
	s, now := newTestSmartCache()

	s.Set("scripts:popular:page:1", "payload", time.Hour, EntryMeta{})
	*now = now.Add(time.Second)

	_, _, ok := s.Get("scripts:popular:page:1")
	require.True(t, ok, "fresh entry with no events serves")

	s.Changes().AddScriptChange("s1", "created", nil)
	*now = now.Add(time.Second)

	_, _, ok = s.Get("scripts:popular:page:1")
	assert.False(t, ok, "a script event after insertion makes listings stale long before the ttl")
}

func TestSmartCacheEventBeforeInsertionIsIgnored(t *testing.T) {
	s, now := newTestSmartCache()

	s.Changes().AddScriptChange("s1", "created", nil)
	*now = now.Add(time.Second)
	s.Set("scripts:popular:page:1", "payload", time.Hour, EntryMeta{})
	*now = now.Add(time.Second)

	_, _, ok := s.Get("scripts:popular:page:1")
	assert.True(t, ok, "only events newer than the entry count against it")
}

func TestSmartCacheRawValueIsMiss(t *testing.T) {
	s, _ := newTestSmartCache()

	s.ttl.Set("scripts:popular:page:1", "not a smartEntry", time.Minute)

	_, _, ok := s.Get("scripts:popular:page:1")
	assert.False(t, ok)
}

func TestSmartCacheFailsOpenOnPanic(t *testing.T) {
	ttl := NewTTLCache(0, 0)
	s := NewSmartCache(ttl, nil) // nil change log panics inside the staleness check

	s.Set("scripts:popular:page:1", "payload", time.Minute, EntryMeta{})

	_, _, ok := s.Get("scripts:popular:page:1")
	assert.False(t, ok, "a broken staleness check must degrade to a miss, not a hit")
}

func TestSmartCacheClearHelpers(t *testing.T) {
	s, _ := newTestSmartCache()

	s.Set("scripts:popular:page:1", 1, time.Minute, EntryMeta{})
	s.Set("profile:alice:page:1", 2, time.Minute, EntryMeta{})
	s.Set("profile:bob:page:1", 3, time.Minute, EntryMeta{})

	assert.Equal(t, 1, s.ClearProfile("alice"))
	_, _, ok := s.Get("profile:bob:page:1")
	assert.True(t, ok, "other profiles are untouched")

	assert.Equal(t, 1, s.ClearScripts())

	s.ClearAll()
	_, _, ok = s.Get("profile:bob:page:1")
	assert.False(t, ok)
}
