package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/button-sensor/internal/logic"
)

// FakeReader is a test double that returns scripted pin levels.
// Safe for concurrent use so tests can change levels while a loop runs.
type FakeReader struct {
	mu sync.Mutex

	// samples holds the scripted levels per pin. Each ReadPin call consumes
	// the next level for that pin; the last one repeats.
	samples map[logic.Pin][]logic.Level
	index   map[logic.Pin]int

	// Idle is returned for pins with no script (released, pulled up).
	Idle logic.Level

	// ReadError, if set, will be returned by ReadPin for every pin.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool

	// Reads counts ReadPin calls per pin.
	Reads map[logic.Pin]int
}

// NewFakeReader creates a FakeReader with no scripts; every pin reads High.
func NewFakeReader() *FakeReader {
	return &FakeReader{
		samples: make(map[logic.Pin][]logic.Level),
		index:   make(map[logic.Pin]int),
		Idle:    logic.High,
		Reads:   make(map[logic.Pin]int),
	}
}

// Script replaces the levels returned for p and rewinds it.
func (f *FakeReader) Script(p logic.Pin, levels ...logic.Level) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples[p] = levels
	f.index[p] = 0
}

// Set makes p read level from now on.
func (f *FakeReader) Set(p logic.Pin, level logic.Level) {
	f.Script(p, level)
}

// ReadPin returns the next scripted level for p.
func (f *FakeReader) ReadPin(p logic.Pin) (logic.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Reads[p]++
	if f.ReadError != nil {
		return logic.Low, f.ReadError
	}
	if f.Closed {
		return logic.Low, errors.New("reader closed")
	}

	seq := f.samples[p]
	if len(seq) == 0 {
		return f.Idle, nil
	}
	i := f.index[p]
	if i < len(seq)-1 {
		f.index[p] = i + 1
	}
	return seq[i], nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reset rewinds every script and reopens the reader.
func (f *FakeReader) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for p := range f.index {
		f.index[p] = 0
	}
	f.Closed = false
	f.Reads = make(map[logic.Pin]int)
}
