package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChangeLog(max int) (*ChangeLog, *time.Time) {
	l := NewChangeLog(max)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestChangeLogRingBound(t *testing.T) {
	l, _ := newTestChangeLog(3)

	l.AddScriptChange("s1", "created", nil)
	l.AddScriptChange("s2", "created", nil)
	l.AddScriptChange("s3", "created", nil)
	l.AddScriptChange("s4", "created", nil)

	events := l.Recent(10)
	require.Len(t, events, 3, "ring must drop the oldest event at capacity")
	assert.Equal(t, "s4", events[0].ID, "newest first")
	assert.Equal(t, "s2", events[2].ID, "s1 was dropped")
}

func TestChangeLogRelevance(t *testing.T) {
	l, _ := newTestChangeLog(10)

	l.AddScriptChange("s1", "updated", nil)

	assert.True(t, l.HasRelevantChanges("scripts:popular:page:1", time.Minute),
		"script events invalidate script listings")
	assert.True(t, l.HasRelevantChanges("profile:alice:page:1", time.Minute),
		"profile pages list a user's scripts, so script events touch them too")
	assert.False(t, l.HasRelevantChanges("user:alice", time.Minute),
		"user keys only react to user events")

	l.AddUserChange("alice", "verified", nil)
	assert.True(t, l.HasRelevantChanges("user:alice", time.Minute))
}

func TestChangeLogWindow(t *testing.T) {
	l, now := newTestChangeLog(10)

	l.AddScriptChange("s1", "created", nil)
	*now = now.Add(10 * time.Minute)

	assert.False(t, l.HasRelevantChanges("scripts:popular", 5*time.Minute),
		"events older than the window must not count")
	assert.True(t, l.HasRelevantChanges("scripts:popular", 11*time.Minute))
}

func TestChangeLogKeyMatchingSeveralPatterns(t *testing.T) {
	l, _ := newTestChangeLog(10)

	// A browse key whose title filter happens to contain "user" matches
	// two relevance patterns; it must react to both event families.
	key := "scripts:sort:popular:page:1:title:userscript"

	l.AddScriptChange("s1", "created", nil)
	assert.True(t, l.HasRelevantChanges(key, time.Minute))

	l2, _ := newTestChangeLog(10)
	l2.AddUserChange("alice", "verified", nil)
	assert.True(t, l2.HasRelevantChanges(key, time.Minute))
}

func TestChangeLogUnknownKey(t *testing.T) {
	l, _ := newTestChangeLog(10)
	l.AddScriptChange("s1", "created", nil)

	assert.False(t, l.HasRelevantChanges("sessions:abc", time.Hour),
		"keys outside the relevance table never go stale by events")
}

func TestChangeLogRecent(t *testing.T) {
	l, _ := newTestChangeLog(10)

	l.AddScriptChange("s1", "created", nil)
	l.AddScriptChange("s2", "liked", map[string]any{"by": "bob"})

	events := l.Recent(1)
	require.Len(t, events, 1)
	assert.Equal(t, "script_liked", events[0].Type)
	assert.Equal(t, "bob", events[0].Data["by"])

	assert.Len(t, l.Recent(0), 2, "n<=0 returns everything")
}
