package worker

import (
	"sync/atomic"
)

// Counter is the shared work counter of one Generate call. Workers claim
// contiguous index ranges from it with a single fetch-and-add, so claims
// never overlap and the counter only moves forward between resets.
type Counter struct {
	next atomic.Int64
}

// NewCounter creates a counter starting from 0.
func NewCounter() *Counter {
	return &Counter{}
}

// Claim reserves n indices and returns the first of them.
// Thread-safe for concurrent use across multiple goroutines.
func (c *Counter) Claim(n int) int {
	return int(c.next.Add(int64(n)) - int64(n))
}

// Load returns the next unclaimed index without claiming it.
func (c *Counter) Load() int {
	return int(c.next.Load())
}

// Reset moves the counter back to 0. It must not race with Claim.
func (c *Counter) Reset() {
	c.next.Store(0)
}
