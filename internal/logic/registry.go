package logic

import (
	"errors"
	"fmt"
)

// MaxDebounceDepth bounds SensorConfig.DebounceDepth.
const MaxDebounceDepth = 10000

var (
	ErrDuplicateSensor = errors.New("duplicate sensor id")
	ErrInvalidDepth    = errors.New("invalid debounce depth")
	ErrInvalidLevel    = errors.New("invalid active level")
)

// Sensor pairs a sensor's configuration with its runtime state.
type Sensor struct {
	cfg SensorConfig
	rt  SensorRuntime
}

// Config returns the sensor configuration.
func (s *Sensor) Config() SensorConfig {
	return s.cfg
}

// Runtime returns a copy of the current debounce state.
func (s *Sensor) Runtime() SensorRuntime {
	return s.rt
}

func (s *Sensor) reset() {
	s.rt = SensorRuntime{State: Released, Remaining: 0, LastRaw: RawUp}
}

// Registry is the fixed, ordered set of sensors an Engine drives.
// Sensors cannot be added or removed once it is built.
type Registry struct {
	sensors []*Sensor
	byID    map[SensorID]*Sensor
}

// NewRegistry validates configs and builds a registry in the given order.
// An empty list is valid.
func NewRegistry(configs []SensorConfig) (*Registry, error) {
	r := &Registry{
		sensors: make([]*Sensor, 0, len(configs)),
		byID:    make(map[SensorID]*Sensor, len(configs)),
	}
	for i, cfg := range configs {
		if err := validateConfig(cfg); err != nil {
			return nil, fmt.Errorf("sensor %d (%s): %w", i, cfg.ID, err)
		}
		if _, ok := r.byID[cfg.ID]; ok {
			return nil, fmt.Errorf("sensor %d: %w: %s", i, ErrDuplicateSensor, cfg.ID)
		}
		s := &Sensor{cfg: cfg}
		s.reset()
		r.sensors = append(r.sensors, s)
		r.byID[cfg.ID] = s
	}
	return r, nil
}

func validateConfig(cfg SensorConfig) error {
	if cfg.DebounceDepth < 1 || cfg.DebounceDepth > MaxDebounceDepth {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidDepth, cfg.DebounceDepth, MaxDebounceDepth)
	}
	if cfg.ActiveLevel != Low && cfg.ActiveLevel != High {
		return fmt.Errorf("%w: %v", ErrInvalidLevel, cfg.ActiveLevel)
	}
	return nil
}

// Len returns the number of sensors.
func (r *Registry) Len() int {
	return len(r.sensors)
}

// At returns the sensor at index i (registry order).
func (r *Registry) At(i int) *Sensor {
	return r.sensors[i]
}

// Lookup finds a sensor by ID.
func (r *Registry) Lookup(id SensorID) (*Sensor, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// Sensors returns the sensors in registry order. The slice is a copy; the
// sensors are shared.
func (r *Registry) Sensors() []*Sensor {
	out := make([]*Sensor, len(r.sensors))
	copy(out, r.sensors)
	return out
}

// Reset puts every sensor back to Released with no pending window.
func (r *Registry) Reset() {
	for _, s := range r.sensors {
		s.reset()
	}
}
