package logic

import (
	"sync"
	"testing"
)

func TestTickCounterTakeEmpty(t *testing.T) {
	var c TickCounter
	if c.TryTake() {
		t.Error("TryTake on empty counter succeeded")
	}
}

func TestTickCounterIncAndTake(t *testing.T) {
	var c TickCounter
	for i := 0; i < 3; i++ {
		if !c.Inc() {
			t.Fatalf("Inc %d failed", i)
		}
	}
	if c.Pending() != 3 {
		t.Fatalf("pending: got %d, want 3", c.Pending())
	}
	n := 0
	for c.TryTake() {
		n++
	}
	if n != 3 {
		t.Errorf("taken: got %d, want 3", n)
	}
	if c.Pending() != 0 {
		t.Errorf("pending after drain: got %d", c.Pending())
	}
}

func TestTickCounterSaturates(t *testing.T) {
	var c TickCounter
	c.n.Store(MaxPendingTicks)

	if c.Inc() {
		t.Error("Inc past saturation succeeded")
	}
	if c.Pending() != MaxPendingTicks {
		t.Errorf("pending: got %d, want %d", c.Pending(), MaxPendingTicks)
	}
	if c.Overruns() != 1 {
		t.Errorf("overruns: got %d, want 1", c.Overruns())
	}

	c.Reset()
	if c.Pending() != 0 || c.Overruns() != 0 {
		t.Errorf("after reset: pending=%d overruns=%d", c.Pending(), c.Overruns())
	}
}

// Producer and consumer race; no increment may be lost.
func TestTickCounterConcurrentNoLostUpdates(t *testing.T) {
	var c TickCounter
	const total = 20000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			c.Inc()
		}
	}()

	taken := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		if c.TryTake() {
			taken++
			continue
		}
		select {
		case <-done:
			for c.TryTake() {
				taken++
			}
			if taken != total {
				t.Errorf("taken: got %d, want %d", taken, total)
			}
			return
		default:
		}
	}
}
