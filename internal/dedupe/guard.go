// ABOUTME: Thread-safe TTL guard for suppressing duplicate one-shot actions
// ABOUTME: Used for once-per-session end signals and in-flight feedback submissions

package dedupe

import (
	"sync"
	"time"
)

// Guard tracks keys that have been acted on so the same action is not
// performed twice. Entries expire after the TTL; a zero TTL means entries
// never expire for the lifetime of the guard.
//
// Two widget concerns use it: the conversation-end signal (graceful and
// abrupt teardown may both fire, only the first may transmit) and feedback
// submission (a retry click while a submit is in flight must not produce a
// second request).
type Guard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

// New creates a guard with the given entry TTL.
func New(ttl time.Duration) *Guard {
	return &Guard{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// CheckAndMark atomically checks whether key has been seen and marks it if
// not. Returns true if the key was already seen (the action must be
// suppressed), false if it is new and now marked.
func (g *Guard) CheckAndMark(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if t, ok := g.seen[key]; ok && !g.expired(t) {
		return true
	}
	g.seen[key] = time.Now()
	return false
}

// Check reports whether key has been seen and is not expired.
func (g *Guard) Check(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.seen[key]
	return ok && !g.expired(t)
}

// Release forgets key, allowing the action to run again. Used when a
// guarded action fails and should stay retryable.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.seen, key)
}

func (g *Guard) expired(t time.Time) bool {
	if g.ttl == 0 {
		return false
	}
	return time.Since(t) >= g.ttl
}
