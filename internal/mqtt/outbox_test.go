package mqtt

import (
	"testing"
)

func TestOutboxEmptyTake(t *testing.T) {
	o := newOutbox(10)
	if got := o.take(); got != nil {
		t.Errorf("expected nil from empty take, got %d items", len(got))
	}
}

func TestOutboxPushAndTake(t *testing.T) {
	o := newOutbox(10)
	for i := 0; i < 5; i++ {
		o.push(pending{topic: "t", payload: []byte{byte(i)}})
	}
	if o.len() != 5 {
		t.Fatalf("expected len 5, got %d", o.len())
	}

	got := o.take()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := 0; i < 5; i++ {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: expected payload %d, got %d", i, i, got[i].payload[0])
		}
	}
	if again := o.take(); again != nil {
		t.Errorf("expected nil from second take, got %d items", len(again))
	}
}

func TestOutboxOverflowKeepsNewest(t *testing.T) {
	size := 5
	o := newOutbox(size)

	// Push 0..7; the oldest three are dropped.
	for i := 0; i < size+3; i++ {
		o.push(pending{topic: "t", payload: []byte{byte(i)}})
	}
	if o.dropped != 3 {
		t.Errorf("expected 3 dropped, got %d", o.dropped)
	}

	got := o.take()
	if len(got) != size {
		t.Fatalf("expected %d items, got %d", size, len(got))
	}
	for i := 0; i < size; i++ {
		want := byte(i + 3)
		if got[i].payload[0] != want {
			t.Errorf("item %d: expected payload %d, got %d", i, want, got[i].payload[0])
		}
	}
	if o.dropping {
		t.Error("dropping flag should reset after take")
	}
}

func TestOutboxMultipleCycles(t *testing.T) {
	o := newOutbox(3)

	o.push(pending{payload: []byte{1}})
	o.push(pending{payload: []byte{2}})
	if got := o.take(); len(got) != 2 {
		t.Fatalf("cycle 1: expected 2 items, got %d", len(got))
	}

	for i := 10; i < 14; i++ {
		o.push(pending{payload: []byte{byte(i)}})
	}
	got := o.take()
	if len(got) != 3 {
		t.Fatalf("cycle 2: expected 3 items, got %d", len(got))
	}
	if got[0].payload[0] != 11 || got[2].payload[0] != 13 {
		t.Errorf("cycle 2: got %v .. %v", got[0].payload, got[2].payload)
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(2)
	o.push(pending{topic: "a/system", payload: []byte("x"), qos: 1, retained: true})

	got := o.take()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	m := got[0]
	if m.topic != "a/system" || string(m.payload) != "x" || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
}

func TestOutboxMinimumSize(t *testing.T) {
	o := newOutbox(0)
	o.push(pending{payload: []byte{1}})
	o.push(pending{payload: []byte{2}})
	got := o.take()
	if len(got) != 1 || got[0].payload[0] != 2 {
		t.Errorf("expected only the newest item, got %v", got)
	}
}
