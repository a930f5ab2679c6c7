package engine

import (
	"sync"
	"time"
)

// WallClock is the production Clock: wall-clock nanoseconds, nudged
// forward by one when two calls land on the same tick, so that entries
// written back-to-back within a single page still carry non-decreasing
// timestamps as §4.7 requires.
type WallClock struct {
	mu   sync.Mutex
	last uint64
}

// NewWallClock returns a ready-to-use WallClock.
func NewWallClock() *WallClock {
	return &WallClock{}
}

// Now returns a timestamp strictly greater than every timestamp this
// WallClock has previously returned.
func (c *WallClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := uint64(time.Now().UnixNano())
	if now <= c.last {
		now = c.last + 1
	}
	c.last = now
	return now
}
