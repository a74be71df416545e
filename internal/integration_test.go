package internal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/sweeney/button-sensor/internal/config"
	"github.com/sweeney/button-sensor/internal/events"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/mqtt"
	"github.com/sweeney/button-sensor/internal/sched"
)

type pipeline struct {
	reg       *logic.Registry
	ticks     *logic.TickCounter
	reader    *gpio.FakeReader
	queue     *events.Queue
	engine    *logic.Engine
	scheduler *sched.Scheduler
	publisher *mqtt.FakePublisher
	clock     time.Time
}

// newPipeline wires the default board, with its debounce depth overridden,
// to a fake reader and a fake publisher.
func newPipeline(t *testing.T, depth int) *pipeline {
	t.Helper()
	cfg := config.Default()
	for i := range cfg.Sensors {
		cfg.Sensors[i].Debounce = config.Ticks(depth)
	}
	sensors, err := cfg.SensorConfigs()
	if err != nil {
		t.Fatalf("SensorConfigs: %v", err)
	}
	reg, err := logic.NewRegistry(sensors)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	p := &pipeline{
		reg:       reg,
		ticks:     &logic.TickCounter{},
		reader:    gpio.NewFakeReader(),
		queue:     events.NewQueue(events.DefaultCapacity),
		publisher: mqtt.NewFakePublisher(),
		clock:     time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	p.engine = logic.NewEngine(reg, p.ticks, p.reader, p.queue)
	p.scheduler = sched.New(sched.Task{Name: "sensor", Init: p.engine.Init, Update: func() { p.engine.Update() }})
	p.scheduler.Init()
	return p
}

// pass simulates n timer ticks followed by one scheduler pass, then
// publishes whatever the engine queued.
func (p *pipeline) pass(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		p.ticks.Inc()
	}
	p.scheduler.Pass()
	for _, tr := range p.queue.Drain() {
		p.clock = p.clock.Add(time.Millisecond)
		if err := p.publisher.Publish(mqtt.NewMessage(tr, p.clock)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
}

func pinOf(t *testing.T, reg *logic.Registry, id logic.SensorID) logic.Pin {
	t.Helper()
	s, ok := reg.Lookup(id)
	if !ok {
		t.Fatalf("sensor %s not found", id)
	}
	return s.Config().Pin
}

func TestIntegrationFullFlow(t *testing.T) {
	p := newPipeline(t, 3)
	s1 := pinOf(t, p.reg, "BTN_S1")
	// S1: pressed for 5 steps, then released.
	p.reader.Script(s1, logic.Low, logic.Low, logic.Low, logic.Low, logic.Low, logic.High)

	for i := 0; i < 4; i++ {
		p.pass(t, 3)
	}

	if len(p.publisher.Messages) != 2 {
		t.Fatalf("expected 2 events, got %d", len(p.publisher.Messages))
	}

	down := p.publisher.Messages[0].Transition
	if down.Sensor != "BTN_S1" || down.Edge != logic.EdgeDown || down.Signal != "SIG_BTN_S1_DOWN" {
		t.Errorf("event 0: got %+v", down)
	}
	if down.Step != 3 {
		t.Errorf("event 0: step %d, want 3", down.Step)
	}

	up := p.publisher.Messages[1].Transition
	if up.Edge != logic.EdgeUp || up.Signal != "SIG_BTN_S1_UP" {
		t.Errorf("event 1: got %+v", up)
	}
	if up.Step != 8 {
		t.Errorf("event 1: step %d, want 8", up.Step)
	}

	st := p.engine.Stats()
	if st.Steps != 12 || st.Executions != 4 || st.Presses != 1 || st.Releases != 1 {
		t.Errorf("stats: got %+v", st)
	}
}

func TestIntegrationNoEventsAtStartup(t *testing.T) {
	p := newPipeline(t, config.DefaultDebounceTicks)

	for i := 0; i < 20; i++ {
		p.pass(t, 10)
	}

	if len(p.publisher.Messages) != 0 {
		t.Errorf("expected no events with every button idle, got %d", len(p.publisher.Messages))
	}
	for _, s := range p.reg.Sensors() {
		if s.Runtime().State != logic.Released {
			t.Errorf("%s: state %v, want RELEASED", s.Config().ID, s.Runtime().State)
		}
	}
}

func TestIntegrationBounceRejection(t *testing.T) {
	p := newPipeline(t, 5)
	k1 := pinOf(t, p.reg, "BTN_K1")
	// Contact bounce: low, high, low, high, then settles high.
	p.reader.Script(k1, logic.Low, logic.High, logic.Low, logic.High)

	p.pass(t, 20)

	if len(p.publisher.Messages) != 0 {
		t.Errorf("expected bounce to be rejected, got %d events", len(p.publisher.Messages))
	}
}

func TestIntegrationDefaultDepth(t *testing.T) {
	p := newPipeline(t, config.DefaultDebounceTicks)
	a := pinOf(t, p.reg, "BTN_A")
	p.reader.Set(a, logic.Low)

	// One short of the window: nothing yet.
	p.pass(t, config.DefaultDebounceTicks-1)
	if len(p.publisher.Messages) != 0 {
		t.Fatalf("confirmed early after %d steps", config.DefaultDebounceTicks-1)
	}

	p.pass(t, 1)
	if len(p.publisher.Messages) != 1 {
		t.Fatalf("expected press after %d steps, got %d events", config.DefaultDebounceTicks, len(p.publisher.Messages))
	}
	if p.publisher.Messages[0].Transition.Sensor != "BTN_A" {
		t.Errorf("sensor: got %s, want BTN_A", p.publisher.Messages[0].Transition.Sensor)
	}
}

func TestIntegrationSimultaneousPresses(t *testing.T) {
	p := newPipeline(t, 4)
	for _, id := range []logic.SensorID{"BTN_K2", "BTN_S2", "BTN_A"} {
		p.reader.Set(pinOf(t, p.reg, id), logic.Low)
	}

	p.pass(t, 4)

	if len(p.publisher.Messages) != 3 {
		t.Fatalf("expected 3 events, got %d", len(p.publisher.Messages))
	}
	// Within a step, transitions follow registry order.
	want := []logic.SensorID{"BTN_S2", "BTN_K2", "BTN_A"}
	for i, id := range want {
		if got := p.publisher.Messages[i].Transition.Sensor; got != id {
			t.Errorf("event %d: got %s, want %s", i, got, id)
		}
	}
}

func TestIntegrationBatchingEquivalence(t *testing.T) {
	script := []logic.Level{logic.Low, logic.Low, logic.High, logic.Low, logic.Low, logic.Low, logic.Low, logic.High}

	run := func(batches []int) []logic.Transition {
		p := newPipeline(t, 3)
		p.reader.Script(pinOf(t, p.reg, "BTN_S3"), script...)
		for _, n := range batches {
			p.pass(t, n)
		}
		var out []logic.Transition
		for _, m := range p.publisher.Messages {
			out = append(out, m.Transition)
		}
		return out
	}

	one := run([]int{12})
	many := run([]int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1})
	mixed := run([]int{0, 5, 0, 2, 5})

	if len(one) == 0 {
		t.Fatal("expected transitions")
	}
	for name, got := range map[string][]logic.Transition{"many": many, "mixed": mixed} {
		if len(got) != len(one) {
			t.Errorf("%s: got %d transitions, want %d", name, len(got), len(one))
			continue
		}
		for i := range one {
			if got[i] != one[i] {
				t.Errorf("%s[%d]: got %+v, want %+v", name, i, got[i], one[i])
			}
		}
	}
}

func TestIntegrationPayloadFormat(t *testing.T) {
	p := newPipeline(t, 2)
	p.reader.Set(pinOf(t, p.reg, "BTN_S4"), logic.Low)
	p.pass(t, 2)

	if len(p.publisher.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(p.publisher.Payloads))
	}

	var parsed mqtt.Payload
	if err := json.Unmarshal(p.publisher.Payloads[0], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	b := parsed.Button
	if b.Sensor != "BTN_S4" || b.Signal != "SIG_BTN_S4_DOWN" || b.Edge != "DOWN" || b.Step != 2 {
		t.Errorf("payload: got %+v", b)
	}
	if b.Timestamp != "2026-01-01T12:00:00.001Z" {
		t.Errorf("timestamp: got %s", b.Timestamp)
	}
	if b.ID == "" {
		t.Error("payload has no id")
	}
}

func TestIntegrationCBORPayload(t *testing.T) {
	p := newPipeline(t, 2)
	p.publisher.Encoding = mqtt.EncodingCBOR
	p.reader.Set(pinOf(t, p.reg, "BTN_S4"), logic.Low)
	p.pass(t, 2)

	var parsed mqtt.Payload
	if err := cbor.Unmarshal(p.publisher.Payloads[0], &parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parsed.Button.Sensor != "BTN_S4" {
		t.Errorf("sensor: got %s", parsed.Button.Sensor)
	}
}

func TestIntegrationRealTimer(t *testing.T) {
	p := newPipeline(t, 5)
	p.reader.Set(pinOf(t, p.reg, "BTN_S1"), logic.Low)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.RunTimer(ctx, time.Millisecond, p.ticks)

	deadline := time.Now().Add(5 * time.Second)
	for len(p.publisher.Messages) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no press confirmed with a running timer")
		}
		time.Sleep(5 * time.Millisecond)
		p.pass(t, 0)
	}

	if got := p.publisher.Messages[0].Transition; got.Step != 5 || got.Edge != logic.EdgeDown {
		t.Errorf("transition: got %+v", got)
	}
}
