package engine

import "sync/atomic"

// Clock hands out arrival numbers. The engine takes one per applied event,
// so Seq is 1, 2, 3, ... in application order for a clock started at 0.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock whose first Next is start+1.
func NewClock(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Last returns the value most recently handed out, or the start value.
func (c *Clock) Last() int64 {
	return c.seq.Load()
}
