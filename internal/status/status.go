// Package status provides a thread-safe status tracker for the button-sensor daemon.
// It is read by the HTTP handlers and by the heartbeat publisher.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TickMs      int64
	PassMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Encoding    string
	GPIO        string
}

// SensorView is the displayed state of one sensor.
type SensorView struct {
	ID        logic.SensorID
	Pin       string
	Depth     int
	State     logic.State
	Remaining int
	Raw       logic.RawEvent
	Presses   uint64
	Releases  uint64
}

// Counters are pipeline counters kept outside the engine.
type Counters struct {
	Passes       uint64 // completed scheduler passes
	QueueDropped uint64 // transitions evicted from the full event queue
	FeedDropped  uint64 // live feed broadcasts dropped while the hub was busy
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Sensors       []SensorView
	Stats         logic.Stats
	Counters      Counters
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

type edgeCounts struct {
	presses  uint64
	releases uint64
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu     sync.RWMutex
	snap   Snapshot
	counts map[logic.SensorID]edgeCounts
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		counts: make(map[logic.SensorID]edgeCounts),
	}
}

// Update copies the sensors' runtime state, the engine counters and the
// pipeline counters. Called from runLoop after every scheduler pass.
func (t *Tracker) Update(sensors []*logic.Sensor, stats logic.Stats, counters Counters) {
	views := make([]SensorView, 0, len(sensors))
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range sensors {
		cfg, rt := s.Config(), s.Runtime()
		c := t.counts[cfg.ID]
		views = append(views, SensorView{
			ID:        cfg.ID,
			Pin:       cfg.Pin.String(),
			Depth:     cfg.DebounceDepth,
			State:     rt.State,
			Remaining: rt.Remaining,
			Raw:       rt.LastRaw,
			Presses:   c.presses,
			Releases:  c.releases,
		})
	}
	t.snap.Sensors = views
	t.snap.Stats = stats
	t.snap.Counters = counters
}

// RecordTransition counts a confirmed press or release for its sensor.
func (t *Tracker) RecordTransition(tr logic.Transition) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.counts[tr.Sensor]
	if tr.Edge == logic.EdgeDown {
		c.presses++
	} else {
		c.releases++
	}
	t.counts[tr.Sensor] = c
	for i := range t.snap.Sensors {
		if t.snap.Sensors[i].ID == tr.Sensor {
			t.snap.Sensors[i].Presses = c.presses
			t.snap.Sensors[i].Releases = c.releases
		}
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Sensors = append([]SensorView(nil), t.snap.Sensors...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
