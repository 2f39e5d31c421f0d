package cache

import (
	"strings"
	"sync"
	"time"
)

// ChangeEvent records one mutation of a script or user, appended by the
// mutation routes right after they write to the database.
type ChangeEvent struct {
	Type      string // e.g. "script_created", "user_updated"
	ID        string // subject identifier (script id or username)
	Timestamp time.Time
	Data      map[string]any // optional extra payload
}

// relevance maps a cache-key substring to the event-type prefixes that make
// entries under that key stale. This is a small fixed table, not a
// subscription system: profile pages list a user's scripts, so both user
// and script events invalidate them. A key matching several patterns is
// stale under the union of their prefixes.
var relevance = []struct {
	pattern  string
	prefixes []string
}{
	{"scripts", []string{"script"}},
	{"profile", []string{"user", "script"}},
	{"user", []string{"user"}},
}

// ChangeLog is an append-only ring of recent mutation events. The buffer is
// capped; the oldest events are dropped first regardless of age. It backs
// the smart cache's staleness check for entries a route forgot to
// invalidate explicitly.
type ChangeLog struct {
	mu     sync.Mutex
	events []ChangeEvent
	max    int
	now    func() time.Time
}

// DefaultChangeLogSize bounds the ring when callers pass a non-positive max.
const DefaultChangeLogSize = 100

// NewChangeLog returns a log holding at most max events.
func NewChangeLog(max int) *ChangeLog {
	if max <= 0 {
		max = DefaultChangeLogSize
	}
	return &ChangeLog{max: max, now: time.Now}
}

// AddChange appends an event, evicting the oldest when the ring is full.
func (l *ChangeLog) AddChange(eventType, id string, data map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, ChangeEvent{
		Type:      eventType,
		ID:        id,
		Timestamp: l.now(),
		Data:      data,
	})
	if len(l.events) > l.max {
		l.events = l.events[len(l.events)-l.max:]
	}
}

// AddScriptChange records a script mutation ("created", "updated",
// "deleted", ...) under the "script_" type prefix.
func (l *ChangeLog) AddScriptChange(scriptID, change string, data map[string]any) {
	l.AddChange("script_"+change, scriptID, data)
}

// AddUserChange records a user mutation ("updated",
// "verification_changed", ...) under the "user_" type prefix.
func (l *ChangeLog) AddUserChange(username, change string, data map[string]any) {
	l.AddChange("user_"+change, username, data)
}

// HasRelevantChanges reports whether any event within the window matches
// the relevance rule for the given cache key.
func (l *ChangeLog) HasRelevantChanges(key string, window time.Duration) bool {
	prefixes := prefixesFor(key)
	if len(prefixes) == 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-window)
	// Newest events live at the tail; scan backwards and stop once events
	// fall out of the window.
	for i := len(l.events) - 1; i >= 0; i-- {
		ev := l.events[i]
		if ev.Timestamp.Before(cutoff) {
			break
		}
		for _, p := range prefixes {
			if strings.HasPrefix(ev.Type, p) {
				return true
			}
		}
	}
	return false
}

// Recent returns up to n most recent events, newest first.
func (l *ChangeLog) Recent(n int) []ChangeEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > len(l.events) {
		n = len(l.events)
	}
	out := make([]ChangeEvent, 0, n)
	for i := len(l.events) - 1; i >= len(l.events)-n; i-- {
		out = append(out, l.events[i])
	}
	return out
}

func prefixesFor(key string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range relevance {
		if !strings.Contains(key, r.pattern) {
			continue
		}
		for _, p := range r.prefixes {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}
