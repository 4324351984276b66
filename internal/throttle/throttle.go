// Package throttle implements the per-connection sliding-window
// message-rate limiter.
package throttle

import (
	"sync"
	"time"

	"github.com/FirasLatrech/Whispr/internal/domain"
)

// Throttle tracks recent event timestamps per connection id. At most
// max events are admitted inside any trailing window.
type Throttle struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	max     int
	window  time.Duration
	now     func() time.Time
}

func New() *Throttle {
	return &Throttle{
		windows: make(map[string][]time.Time),
		max:     domain.RateLimitMax,
		window:  domain.RateLimitWindow,
		now:     time.Now,
	}
}

// Check discards timestamps older than the window and, if the
// connection is under the limit, records the current instant and
// allows the event. A denied event is not recorded.
func (t *Throttle) Check(connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	cutoff := now.Add(-t.window)

	recent := t.windows[connID][:0]
	for _, ts := range t.windows[connID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= t.max {
		t.windows[connID] = recent
		return false
	}

	t.windows[connID] = append(recent, now)
	return true
}

// Remove discards all state for a connection. Called on disconnect to
// bound memory.
func (t *Throttle) Remove(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.windows, connID)
}
