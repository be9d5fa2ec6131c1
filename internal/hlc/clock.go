package hlc

// Clock is one granule's logical clock. It follows Lamport's two rules:
//
//	Tick (internal event):  counter = counter + 1
//	Receive (message):      counter = max(counter, remote) + 1
//
// Each call hands back a fresh Timestamp stamped with the granule's causal id.
// Not goroutine-safe; a simulator owns its clocks.
type Clock struct {
	causal  int64
	counter int64
}

// NewClock creates a clock for the granule with the given id, counter at 0.
func NewClock(causal int64) *Clock {
	return &Clock{causal: causal}
}

// Tick advances the counter for an internal event and returns the new stamp.
func (c *Clock) Tick(physical int64) Timestamp {
	c.counter++
	return c.stamp(physical)
}

// Receive merges a remote counter and returns the new stamp.
func (c *Clock) Receive(remote Timestamp, physical int64) Timestamp {
	if remote.LogicalCounter > c.counter {
		c.counter = remote.LogicalCounter
	}
	c.counter++
	return c.stamp(physical)
}

// Now returns the current stamp without advancing.
func (c *Clock) Now(physical int64) Timestamp { return c.stamp(physical) }

// Set seeds the counter, e.g. when a scenario pins explicit counters.
func (c *Clock) Set(counter int64) { c.counter = counter }

// CausalID returns the granule id this clock stamps with.
func (c *Clock) CausalID() int64 { return c.causal }

func (c *Clock) stamp(physical int64) Timestamp {
	return Timestamp{PhysicalTime: physical, LogicalCounter: c.counter, CausalID: c.causal}
}

// NewClocks returns one clock per granule, with causal ids 0..n-1.
func NewClocks(n int) []*Clock {
	clocks := make([]*Clock, n)
	for i := range clocks {
		clocks[i] = NewClock(int64(i))
	}
	return clocks
}

// TickAll ticks every clock once and returns the resulting timestamp vector,
// aligned by granule index.
func TickAll(clocks []*Clock, physical int64) []Timestamp {
	out := make([]Timestamp, len(clocks))
	for i, c := range clocks {
		out[i] = c.Tick(physical)
	}
	return out
}
