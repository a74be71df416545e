package logic

import (
	"errors"
	"testing"
)

// scriptReader returns scripted levels per pin. Each ReadPin call consumes
// the next level for that pin; the last one repeats.
type scriptReader struct {
	levels map[Pin][]Level
	pos    map[Pin]int
	fail   map[Pin]bool
	reads  []Pin
}

func newScriptReader() *scriptReader {
	return &scriptReader{
		levels: make(map[Pin][]Level),
		pos:    make(map[Pin]int),
		fail:   make(map[Pin]bool),
	}
}

func (r *scriptReader) script(p Pin, levels ...Level) {
	r.levels[p] = levels
	r.pos[p] = 0
}

func (r *scriptReader) ReadPin(p Pin) (Level, error) {
	r.reads = append(r.reads, p)
	if r.fail[p] {
		return Low, errors.New("line read failed")
	}
	seq := r.levels[p]
	if len(seq) == 0 {
		return High, nil
	}
	i := r.pos[p]
	if i < len(seq)-1 {
		r.pos[p] = i + 1
	}
	return seq[i], nil
}

// sliceSink records transitions in order.
type sliceSink struct {
	got []Transition
}

func (s *sliceSink) Put(t Transition) {
	s.got = append(s.got, t)
}

var (
	pinA = Pin{Port: "gpiochip0", Line: 10}
	pinB = Pin{Port: "gpiochip0", Line: 11}
)

func buttonConfig(id SensorID, p Pin, depth int) SensorConfig {
	return SensorConfig{
		ID:            id,
		Pin:           p,
		ActiveLevel:   Low,
		DebounceDepth: depth,
		SignalUp:      Signal(string(id) + "_UP"),
		SignalDown:    Signal(string(id) + "_DOWN"),
	}
}

// newTestEngine builds an initialised engine over the given configs.
func newTestEngine(t testing.TB, configs ...SensorConfig) (*Engine, *TickCounter, *scriptReader, *sliceSink) {
	t.Helper()
	reg, err := NewRegistry(configs)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	ticks := &TickCounter{}
	reader := newScriptReader()
	sink := &sliceSink{}
	e := NewEngine(reg, ticks, reader, sink)
	e.Init()
	return e, ticks, reader, sink
}

// stepN queues one tick and runs Update, n times.
func stepN(e *Engine, ticks *TickCounter, n int) {
	for i := 0; i < n; i++ {
		ticks.Inc()
		e.Update()
	}
}
