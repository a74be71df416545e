// Package events is the system event queue that receives confirmed sensor
// transitions from the debounce engine and hands them to consumers.
package events

import (
	"log"
	"sync"

	"github.com/sweeney/button-sensor/internal/logic"
)

// DefaultCapacity is the queue size used by the daemon.
const DefaultCapacity = 64

// Queue is a bounded FIFO of transitions. Put never blocks: when the queue
// is full the oldest entry is dropped. Safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	buf      []logic.Transition
	head     int // oldest entry
	count    int
	dropped  uint64
	overflow bool // true while dropping; cleared by the next pop
}

// NewQueue creates a queue holding up to capacity transitions.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{buf: make([]logic.Transition, capacity)}
}

// Put appends a transition, evicting the oldest one if the queue is full.
func (q *Queue) Put(t logic.Transition) {
	q.mu.Lock()
	if q.count == len(q.buf) {
		if !q.overflow {
			log.Printf("events: queue full (%d), dropping oldest", len(q.buf))
			q.overflow = true
		}
		q.head = (q.head + 1) % len(q.buf)
		q.count--
		q.dropped++
	}
	q.buf[(q.head+q.count)%len(q.buf)] = t
	q.count++
	q.mu.Unlock()
}

func (q *Queue) pop() (logic.Transition, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return logic.Transition{}, false
	}
	t := q.buf[q.head]
	q.buf[q.head] = logic.Transition{}
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.overflow = false
	return t, true
}

// Drain removes and returns everything queued, oldest first.
func (q *Queue) Drain() []logic.Transition {
	var out []logic.Transition
	for {
		t, ok := q.pop()
		if !ok {
			return out
		}
		out = append(out, t)
	}
}

// Len returns the number of queued transitions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Dropped returns how many transitions were evicted because the queue was full.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
