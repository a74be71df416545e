package logic

import "sync/atomic"

// MaxPendingTicks is the saturation point of a TickCounter.
const MaxPendingTicks = 1 << 20

// TickCounter counts timer ticks that the engine has not consumed yet.
// Inc is called from the timer context and TryTake from the engine; every
// read-modify-write is a single compare-and-swap, so an increment can never
// be lost between the engine's read and its write.
type TickCounter struct {
	n        atomic.Uint32
	overruns atomic.Uint64
}

// Inc records one elapsed tick. It returns false, and counts an overrun,
// when the counter is already saturated.
func (c *TickCounter) Inc() bool {
	for {
		n := c.n.Load()
		if n >= MaxPendingTicks {
			c.overruns.Add(1)
			return false
		}
		if c.n.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// TryTake consumes one tick if any is pending.
func (c *TickCounter) TryTake() bool {
	for {
		n := c.n.Load()
		if n == 0 {
			return false
		}
		if c.n.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// Pending returns the number of ticks waiting.
func (c *TickCounter) Pending() uint32 {
	return c.n.Load()
}

// Overruns returns the number of ticks dropped at saturation.
func (c *TickCounter) Overruns() uint64 {
	return c.overruns.Load()
}

// Reset clears pending ticks and the overrun count.
func (c *TickCounter) Reset() {
	c.n.Store(0)
	c.overruns.Store(0)
}
