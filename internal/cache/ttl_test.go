package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTTLCache(capacity int) (*TTLCache, *time.Time) {
	c := NewTTLCache(capacity, 0)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestTTLCacheSetGet(t *testing.T) {
	c, _ := newTestTTLCache(0)

	c.Set("scripts:popular:1", []int{1, 2, 3}, time.Minute)

	v, ok := c.Get("scripts:popular:1")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, v)

	_, ok = c.Get("scripts:popular:2")
	assert.False(t, ok)
}

func TestTTLCacheExpiry(t *testing.T) {
	c, now := newTestTTLCache(0)

	c.Set("k", "v", 30*time.Second)

	*now = now.Add(29 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry must survive inside its ttl")

	*now = now.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry must expire exactly at now+ttl")
	assert.Equal(t, 0, c.Len(), "expired entry is deleted on access")
}

func TestTTLCacheInsertedAt(t *testing.T) {
	c, now := newTestTTLCache(0)
	inserted := *now

	c.Set("k", "v", time.Minute)
	assert.Equal(t, inserted, c.InsertedAt("k"))

	*now = now.Add(2 * time.Minute)
	assert.True(t, c.InsertedAt("k").IsZero(), "expired entries report the zero time")
	assert.True(t, c.InsertedAt("missing").IsZero())
}

func TestTTLCacheFIFOEviction(t *testing.T) {
	c, _ := newTestTTLCache(2)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Set("c", 3, time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest insertion is evicted first")
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestTTLCacheOverwriteDoesNotEvict(t *testing.T) {
	c, _ := newTestTTLCache(2)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Set("a", 10, time.Minute)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	_, ok = c.Get("b")
	assert.True(t, ok, "overwriting an existing key must not evict others")
}

func TestTTLCacheClearByPattern(t *testing.T) {
	c, _ := newTestTTLCache(0)

	c.Set("scripts:popular:page:1", 1, time.Minute)
	c.Set("scripts:newest:page:1", 2, time.Minute)
	c.Set("profile:alice:page:1", 3, time.Minute)

	removed := c.ClearByPattern("scripts")
	assert.Equal(t, 2, removed)

	_, ok := c.Get("profile:alice:page:1")
	assert.True(t, ok, "non-matching keys must survive pattern invalidation")

	assert.Equal(t, 0, c.ClearByPattern("scripts"), "second clear finds nothing")
}

func TestTTLCacheClearAll(t *testing.T) {
	c, _ := newTestTTLCache(0)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.ClearAll()

	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheJanitorSweepsExpired(t *testing.T) {
	c := NewTTLCache(0, 10*time.Millisecond)
	defer c.Close()

	c.Set("gone", "v", time.Millisecond)
	c.Set("kept", "v", time.Hour)

	assert.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 10*time.Millisecond)

	_, ok := c.Get("kept")
	assert.True(t, ok)
}
