package transport

import "sync/atomic"

// epochClock is a monotonic logical clock numbering connection epochs.
//
// Ordering decisions never use wall time: a read pump compares its own epoch
// against Current() and stands down when it is stale. Each call to Next()
// returns a unique, strictly increasing value.
type epochClock struct {
	seq atomic.Int64
}

// Next returns the next epoch number and advances the clock.
func (c *epochClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the live epoch without advancing.
func (c *epochClock) Current() int64 {
	return c.seq.Load()
}
