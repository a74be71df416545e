// Package mqtt publishes button transitions and lifecycle events to MQTT,
// with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/sweeney/button-sensor/internal/logic"
)

// DefaultTopicPrefix is prepended to the events and system topics.
const DefaultTopicPrefix = "buttons/sensor"

// EventsTopic returns the topic for button transitions.
func EventsTopic(prefix string) string {
	return prefix + "/events"
}

// SystemTopic returns the topic for lifecycle events.
func SystemTopic(prefix string) string {
	return prefix + "/system"
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a button transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(msg Message) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Encoding selects the wire format of transition payloads.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// ParseEncoding accepts "json" or "cbor".
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case EncodingJSON, EncodingCBOR:
		return Encoding(s), nil
	}
	return "", fmt.Errorf("mqtt: unknown encoding %q", s)
}

// Message is a transition stamped for publishing.
type Message struct {
	ID         string
	Timestamp  time.Time
	Transition logic.Transition
}

// NewMessage stamps t with a fresh ID and the given time.
func NewMessage(t logic.Transition, ts time.Time) Message {
	return Message{ID: uuid.NewString(), Timestamp: ts, Transition: t}
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the transition message payload structure.
type Payload struct {
	Button ButtonPayload `json:"button" cbor:"button"`
}

// ButtonPayload contains the transition details.
type ButtonPayload struct {
	ID        string `json:"id" cbor:"id"`
	Timestamp string `json:"timestamp" cbor:"timestamp"`
	Sensor    string `json:"sensor" cbor:"sensor"`
	Signal    string `json:"signal" cbor:"signal"`
	Edge      string `json:"edge" cbor:"edge"`
	Step      uint64 `json:"step" cbor:"step"`
}

var cborMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("mqtt: cbor encoder: %v", err))
	}
	return em
}

func newPayload(msg Message) Payload {
	return Payload{
		Button: ButtonPayload{
			ID:        msg.ID,
			Timestamp: msg.Timestamp.UTC().Format(time.RFC3339Nano),
			Sensor:    string(msg.Transition.Sensor),
			Signal:    string(msg.Transition.Signal),
			Edge:      string(msg.Transition.Edge),
			Step:      msg.Transition.Step,
		},
	}
}

// FormatPayload encodes a transition message.
func FormatPayload(msg Message, enc Encoding) ([]byte, error) {
	payload := newPayload(msg)
	switch enc {
	case EncodingCBOR:
		return cborMode.Marshal(payload)
	case EncodingJSON, "":
		return json.Marshal(payload)
	}
	return nil, fmt.Errorf("mqtt: unknown encoding %q", enc)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
// A zero Timestamp is left out.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Event:  event.Event,
			Reason: event.Reason,
		},
	}
	if !event.Timestamp.IsZero() {
		payload.System.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(payload)
}
