package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Sensors       []SensorJSON `json:"sensors"`
	Engine        EngineJSON   `json:"engine"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// SensorJSON is the JSON representation of one sensor.
type SensorJSON struct {
	ID        string `json:"id"`
	Pin       string `json:"pin"`
	Depth     int    `json:"debounce_ticks"`
	State     string `json:"state"`
	Remaining int    `json:"remaining"`
	Raw       string `json:"raw"`
	Presses   uint64 `json:"presses"`
	Releases  uint64 `json:"releases"`
}

// EngineJSON is the JSON representation of the engine counters.
type EngineJSON struct {
	Executions   uint64 `json:"executions"`
	Steps        uint64 `json:"steps"`
	Passes       uint64 `json:"passes"`
	Pending      uint32 `json:"pending_ticks"`
	Overruns     uint64 `json:"overruns"`
	QueueDropped uint64 `json:"queue_dropped"`
	FeedDropped  uint64 `json:"feed_dropped"`
	ReadErrors   uint64 `json:"read_errors"`
	Presses      uint64 `json:"presses"`
	Releases     uint64 `json:"releases"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	PassMs      int64  `json:"pass_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Encoding    string `json:"encoding"`
	GPIO        string `json:"gpio"`
}

func buildInner(snap Snapshot) StatusInner {
	sensors := make([]SensorJSON, 0, len(snap.Sensors))
	for _, s := range snap.Sensors {
		sensors = append(sensors, SensorJSON{
			ID:        string(s.ID),
			Pin:       s.Pin,
			Depth:     s.Depth,
			State:     s.State.String(),
			Remaining: s.Remaining,
			Raw:       s.Raw.String(),
			Presses:   s.Presses,
			Releases:  s.Releases,
		})
	}

	st := snap.Stats
	return StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Sensors:       sensors,
		Engine: EngineJSON{
			Executions:   st.Executions,
			Steps:        st.Steps,
			Passes:       snap.Counters.Passes,
			Pending:      st.Pending,
			Overruns:     st.Overruns,
			QueueDropped: snap.Counters.QueueDropped,
			FeedDropped:  snap.Counters.FeedDropped,
			ReadErrors:   st.ReadErrors,
			Presses:      st.Presses,
			Releases:     st.Releases,
		},
		Config: ConfigJSON{
			TickMs:      snap.Config.TickMs,
			PassMs:      snap.Config.PassMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Encoding:    snap.Config.Encoding,
			GPIO:        snap.Config.GPIO,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
