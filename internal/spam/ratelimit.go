package spam

import (
	"sync"
	"time"
)

// windowEntry tracks submissions for one identity within the current
// window.
type windowEntry struct {
	count int
	start time.Time
}

// RateLimiter is a keyed sliding-window submission limiter. It is
// process-local and best effort: no persistence, no cross-instance
// coordination. It is injected into the Gate rather than shared module
// state so tests can reset it and deployments can scope it.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	max     int
	window  time.Duration
	now     func() time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		entries: make(map[string]*windowEntry),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

// Exceeded records a submission attempt for key and reports whether the
// limit is hit. The window restarts (count back to 1) once the elapsed
// time since its start passes the configured duration. Stale entries are
// pruned lazily on each check.
func (rl *RateLimiter) Exceeded(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for k, e := range rl.entries {
		if now.Sub(e.start) > rl.window {
			delete(rl.entries, k)
		}
	}

	e, ok := rl.entries[key]
	if !ok || now.Sub(e.start) > rl.window {
		rl.entries[key] = &windowEntry{count: 1, start: now}
		return false
	}

	if e.count >= rl.max {
		return true
	}

	e.count++
	return false
}

// Reset clears all windows.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.entries = make(map[string]*windowEntry)
}
