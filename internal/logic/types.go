// Package logic contains the pure debounce engine for polled button inputs.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time enters only as ticks counted by a TickCounter.
package logic

import (
	"fmt"
	"strings"
)

// SensorID is the logical identifier of a sensor, unique within a registry.
type SensorID string

// Signal is the identifier handed to the system event queue on a confirmed
// transition.
type Signal string

// Pin references a physical input line: a GPIO port (chip) and a line offset.
type Pin struct {
	Port string
	Line int
}

func (p Pin) String() string {
	return fmt.Sprintf("%s:%d", p.Port, p.Line)
}

// Level is a raw digital pin reading.
type Level int

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	switch l {
	case Low:
		return "LOW"
	case High:
		return "HIGH"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel converts "low"/"high" (any case) into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "0":
		return Low, nil
	case "high", "1":
		return High, nil
	}
	return Low, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// State is the debounce FSM state of one sensor.
type State int

const (
	Released State = iota
	FallingDebounce
	Pressed
	RisingDebounce
)

func (s State) String() string {
	switch s {
	case Released:
		return "RELEASED"
	case FallingDebounce:
		return "FALLING"
	case Pressed:
		return "PRESSED"
	case RisingDebounce:
		return "RISING"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// RawEvent is a raw sample after polarity has been applied.
type RawEvent int

const (
	RawUp RawEvent = iota
	RawDown
)

func (e RawEvent) String() string {
	if e == RawDown {
		return "DOWN"
	}
	return "UP"
}

// Edge tells which way a confirmed transition went.
type Edge string

const (
	EdgeDown Edge = "DOWN" // confirmed press
	EdgeUp   Edge = "UP"   // confirmed release
)

// SensorConfig is the immutable configuration of one sensor.
type SensorConfig struct {
	ID          SensorID
	Pin         Pin
	ActiveLevel Level // raw level that means "pressed"
	// DebounceDepth is the number of consecutive steps the raw input must
	// hold before a transition is confirmed.
	DebounceDepth int
	SignalUp      Signal
	SignalDown    Signal
}

// SensorRuntime is the mutable debounce state of one sensor.
type SensorRuntime struct {
	State State
	// Remaining counts down inside a debounce window. It is left at its last
	// value in the steady states.
	Remaining int
	LastRaw   RawEvent
}

// Transition is a confirmed press or release, queued for the rest of the
// application.
type Transition struct {
	Sensor SensorID
	Signal Signal
	Edge   Edge
	// Step is the engine step number (1-based) at which the transition was
	// confirmed.
	Step uint64
}

// Stats is a point-in-time copy of the engine counters.
type Stats struct {
	Executions uint64 // Update calls since Init
	Steps      uint64 // debounce steps run since Init
	Pending    uint32 // ticks waiting to be drained
	Overruns   uint64 // ticks dropped because the counter was saturated
	ReadErrors uint64
	Presses    uint64
	Releases   uint64
}
