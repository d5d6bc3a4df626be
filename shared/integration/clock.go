package integration

import (
	"sync"
	"time"
)

// UniqueClock hands out strictly increasing millisecond timestamps, so
// every launch in a cycle gets a distinct execution_time even when items
// are transformed within the same millisecond.
type UniqueClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewUniqueClock creates a clock over time.Now
func NewUniqueClock() *UniqueClock {
	return &UniqueClock{now: time.Now}
}

// Now returns the current time in UTC truncated to milliseconds, bumped
// past the previous value when needed
func (c *UniqueClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return time.UnixMilli(ms).UTC()
}
