package loop

import (
	"sync"
	"time"
)

// EventClock is a clock that only moves when an event says so. A replay
// hands its Now to the containers so recast timers follow the timestamps
// recorded in the capture instead of the wall clock.
type EventClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewEventClock returns a clock reading start.
func NewEventClock(start time.Time) *EventClock {
	return &EventClock{now: start}
}

// Now returns the time of the latest event applied to the clock.
func (c *EventClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock to t and reports whether it moved. The clock never
// runs backwards; zero and earlier times are ignored.
func (c *EventClock) Advance(t time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.IsZero() || !t.After(c.now) {
		return false
	}
	c.now = t
	return true
}
