package mqtt

import "log"

// pending is a serialized publish held back while the broker is unreachable.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox keeps the most recent publishes made while disconnected, oldest
// first. Not safe for concurrent use; the caller must synchronize.
type outbox struct {
	slots    []pending
	next     int // slot the next push writes
	n        int
	dropped  uint64
	dropping bool // set once an overflow is logged, cleared by take
}

func newOutbox(size int) *outbox {
	if size < 1 {
		size = 1
	}
	return &outbox{slots: make([]pending, size)}
}

func (o *outbox) push(p pending) {
	if o.n == len(o.slots) {
		if !o.dropping {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", len(o.slots))
			o.dropping = true
		}
		o.dropped++
		// next already points at the oldest slot
		o.slots[o.next] = p
		o.next = (o.next + 1) % len(o.slots)
		return
	}
	o.slots[o.next] = p
	o.next = (o.next + 1) % len(o.slots)
	o.n++
}

// take empties the outbox and returns its contents, oldest first.
func (o *outbox) take() []pending {
	if o.n == 0 {
		return nil
	}
	out := make([]pending, 0, o.n)
	first := (o.next - o.n + len(o.slots)) % len(o.slots)
	for i := 0; i < o.n; i++ {
		out = append(out, o.slots[(first+i)%len(o.slots)])
	}
	o.n = 0
	o.next = 0
	o.dropping = false
	return out
}

func (o *outbox) len() int {
	return o.n
}
