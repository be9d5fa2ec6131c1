// Package testutil holds deterministic stand-ins for the wall clock and run
// id generation, so the same scenario always produces byte-identical
// journals and traces.
package testutil

import "sync"

// DeterministicClock is a fake physical clock. Each Now call returns the
// previous value plus a fixed step.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start int64
	step  int64
	now   int64
}

// NewDeterministicClock creates a clock whose first Now returns start and
// each later call advances by step. A zero step freezes time at start.
func NewDeterministicClock(start, step int64) *DeterministicClock {
	return &DeterministicClock{start: start, step: step, now: start}
}

// Now returns the current time and advances the clock by one step.
//
// Its signature matches sim.WithPhysicalClock.
func (c *DeterministicClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now += c.step
	return t
}

// Peek returns what the next Now will return without advancing.
func (c *DeterministicClock) Peek() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset rewinds the clock to its start value.
//
// Used for test reuse. After Reset(), the next call to Now() returns start.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
