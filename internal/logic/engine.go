package logic

import "log"

// PinReader samples a raw pin level. It must not block.
type PinReader interface {
	ReadPin(p Pin) (Level, error)
}

// SignalSink receives confirmed transitions. Put must not block.
type SignalSink interface {
	Put(t Transition)
}

// Engine debounces every sensor of a Registry, one step per elapsed tick.
// It is meant to be driven from a single goroutine; only the TickCounter is
// shared with the timer.
type Engine struct {
	reg    *Registry
	ticks  *TickCounter
	reader PinReader
	sink   SignalSink

	executions uint64
	steps      uint64
	readErrors uint64
	presses    uint64
	releases   uint64
	// readFailing marks sensors whose last read failed, so a failing pin is
	// logged once per run of failures instead of on every step.
	readFailing []bool
}

// NewEngine wires an engine to its registry, tick source, pin reader and
// signal sink. A nil sink discards transitions.
func NewEngine(reg *Registry, ticks *TickCounter, reader PinReader, sink SignalSink) *Engine {
	return &Engine{
		reg:         reg,
		ticks:       ticks,
		reader:      reader,
		sink:        sink,
		readFailing: make([]bool, reg.Len()),
	}
}

// Init resets the execution counter, the tick counter and every sensor's
// runtime state, then logs the initial state of each sensor. Calling it
// again starts over.
func (e *Engine) Init() {
	log.Printf("sensor: init, %d sensors, polled debounce by tick", e.reg.Len())

	e.executions = 0
	e.steps = 0
	e.readErrors = 0
	e.presses = 0
	e.releases = 0
	for i := range e.readFailing {
		e.readFailing[i] = false
	}
	e.reg.Reset()

	log.Printf("sensor: executions=%d", e.executions)
	for i, s := range e.reg.sensors {
		log.Printf("sensor: index=%d id=%s pin=%s depth=%d state=%s event=%s",
			i, s.cfg.ID, s.cfg.Pin, s.cfg.DebounceDepth, s.rt.State, s.rt.LastRaw)
	}

	e.ticks.Reset()
}

// Update runs one scheduler pass: it drains pending ticks one at a time and
// runs one debounce step over all sensors for each. It returns the number of
// steps run, which is zero when no tick was pending.
func (e *Engine) Update() int {
	e.executions++

	n := 0
	for e.ticks.TryTake() {
		e.step()
		n++
	}
	return n
}

// step samples every sensor once, in registry order, and advances its FSM.
func (e *Engine) step() {
	e.steps++
	for i, s := range e.reg.sensors {
		ev := e.sample(i, s)
		edge, ok := s.advance(ev)
		if !ok {
			continue
		}

		t := Transition{Sensor: s.cfg.ID, Edge: edge, Step: e.steps}
		if edge == EdgeDown {
			t.Signal = s.cfg.SignalDown
			e.presses++
		} else {
			t.Signal = s.cfg.SignalUp
			e.releases++
		}
		if e.sink != nil {
			e.sink.Put(t)
		}
	}
}

// sample reads a sensor's pin and applies its polarity. A failed read keeps
// the previous raw event.
func (e *Engine) sample(i int, s *Sensor) RawEvent {
	level, err := e.reader.ReadPin(s.cfg.Pin)
	if err != nil {
		e.readErrors++
		if !e.readFailing[i] {
			log.Printf("sensor: read %s (%s) failed: %v", s.cfg.ID, s.cfg.Pin, err)
			e.readFailing[i] = true
		}
		return s.rt.LastRaw
	}
	if e.readFailing[i] {
		log.Printf("sensor: read %s (%s) recovered", s.cfg.ID, s.cfg.Pin)
		e.readFailing[i] = false
	}

	if level == s.cfg.ActiveLevel {
		return RawDown
	}
	return RawUp
}

// Stats returns a copy of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Executions: e.executions,
		Steps:      e.steps,
		Pending:    e.ticks.Pending(),
		Overruns:   e.ticks.Overruns(),
		ReadErrors: e.readErrors,
		Presses:    e.presses,
		Releases:   e.releases,
	}
}

// Registry returns the registry the engine drives.
func (e *Engine) Registry() *Registry {
	return e.reg
}
