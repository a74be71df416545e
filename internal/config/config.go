// Package config loads the daemon configuration, including the sensor table,
// from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Timing  TimingConfig   `yaml:"timing"`
	GPIO    GPIOConfig     `yaml:"gpio"`
	MQTT    MQTTConfig     `yaml:"mqtt"`
	HTTP    HTTPConfig     `yaml:"http"`
	Sensors []SensorConfig `yaml:"sensors"`
}

// TimingConfig sets the tick source and scheduler rates.
type TimingConfig struct {
	Tick      time.Duration `yaml:"tick"`      // timer period; one debounce step per tick
	Pass      time.Duration `yaml:"pass"`      // scheduler pass period
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables
}

// GPIOConfig selects the pin backend.
type GPIOConfig struct {
	Backend string `yaml:"backend"` // "gpiocdev" or "periph"
	Bias    string `yaml:"bias"`    // "pull-up", "pull-down", "none"
}

// MQTTConfig contains broker settings.
type MQTTConfig struct {
	Broker      string `yaml:"broker"` // empty disables publishing
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	Encoding    string `yaml:"encoding"` // "json" or "cbor"
	BufferSize  int    `yaml:"buffer_size"`
}

// HTTPConfig contains the status server address.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables
}

// SensorConfig is one row of the sensor table.
type SensorConfig struct {
	ID          string `yaml:"id"`
	Port        string `yaml:"port"`
	Line        int    `yaml:"line"`
	ActiveLevel string `yaml:"active_level"`
	Debounce    *int   `yaml:"debounce_ticks"` // nil when omitted; an explicit 0 is rejected
	SignalUp    string `yaml:"signal_up"`
	SignalDown  string `yaml:"signal_down"`
}

// Ticks returns a pointer to n, for SensorConfig.Debounce.
func Ticks(n int) *int {
	return &n
}

// Debounce depth of the stock buttons, in ticks.
const DefaultDebounceTicks = 50

// Default returns the stock board: seven push buttons, active low,
// debounced over 50 one-millisecond ticks.
func Default() *Config {
	return &Config{
		Timing: TimingConfig{
			Tick:      time.Millisecond,
			Pass:      10 * time.Millisecond,
			Heartbeat: 15 * time.Minute,
		},
		GPIO: GPIOConfig{
			Backend: "gpiocdev",
			Bias:    "pull-up",
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "button-sensor",
			TopicPrefix: "buttons/sensor",
			Encoding:    "json",
			BufferSize:  100,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		Sensors: []SensorConfig{
			defaultButton("BTN_S1", 10),
			defaultButton("BTN_S2", 5),
			defaultButton("BTN_S3", 4),
			defaultButton("BTN_S4", 27),
			defaultButton("BTN_K1", 8),
			defaultButton("BTN_K2", 9),
			defaultButton("BTN_A", 17),
		},
	}
}

func defaultButton(id string, line int) SensorConfig {
	return SensorConfig{
		ID:          id,
		Port:        "gpiochip0",
		Line:        line,
		ActiveLevel: "low",
		Debounce:    Ticks(DefaultDebounceTicks),
		SignalUp:    "SIG_" + id + "_UP",
		SignalDown:  "SIG_" + id + "_DOWN",
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist it
// returns the defaults; fields missing from the file keep their defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults fills zero values with defaults. A sensor list given in the
// file replaces the default list entirely; per-sensor zero fields are filled.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Timing.Tick == 0 {
		c.Timing.Tick = def.Timing.Tick
	}
	if c.Timing.Pass == 0 {
		c.Timing.Pass = def.Timing.Pass
	}
	if c.GPIO.Backend == "" {
		c.GPIO.Backend = def.GPIO.Backend
	}
	if c.GPIO.Bias == "" {
		c.GPIO.Bias = def.GPIO.Bias
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = def.MQTT.TopicPrefix
	}
	if c.MQTT.Encoding == "" {
		c.MQTT.Encoding = def.MQTT.Encoding
	}
	if c.MQTT.BufferSize == 0 {
		c.MQTT.BufferSize = def.MQTT.BufferSize
	}

	for i := range c.Sensors {
		s := &c.Sensors[i]
		if s.Port == "" {
			s.Port = "gpiochip0"
		}
		if s.ActiveLevel == "" {
			s.ActiveLevel = "low"
		}
		if s.Debounce == nil {
			s.Debounce = Ticks(DefaultDebounceTicks)
		}
		if s.SignalUp == "" {
			s.SignalUp = "SIG_" + s.ID + "_UP"
		}
		if s.SignalDown == "" {
			s.SignalDown = "SIG_" + s.ID + "_DOWN"
		}
	}
}

// Validate checks the settings the daemon cannot run without. The sensor
// table itself is checked by SensorConfigs.
func (c *Config) Validate() error {
	if c.Timing.Tick <= 0 {
		return errors.New("timing.tick must be positive")
	}
	if c.Timing.Pass <= 0 {
		return errors.New("timing.pass must be positive")
	}
	if c.Timing.Heartbeat < 0 {
		return errors.New("timing.heartbeat must not be negative")
	}
	switch c.GPIO.Backend {
	case "gpiocdev", "periph", "fake":
	default:
		return fmt.Errorf("unknown gpio backend %q", c.GPIO.Backend)
	}
	switch c.MQTT.Encoding {
	case "json", "cbor":
	default:
		return fmt.Errorf("unknown mqtt encoding %q", c.MQTT.Encoding)
	}
	if c.MQTT.BufferSize < 0 {
		return errors.New("mqtt.buffer_size must not be negative")
	}
	_, err := c.SensorConfigs()
	return err
}

// SensorConfigs converts the sensor table into engine configuration.
func (c *Config) SensorConfigs() ([]logic.SensorConfig, error) {
	out := make([]logic.SensorConfig, 0, len(c.Sensors))
	for i, s := range c.Sensors {
		if s.ID == "" {
			return nil, fmt.Errorf("sensor %d: missing id", i)
		}
		level, err := logic.ParseLevel(s.ActiveLevel)
		if err != nil {
			return nil, fmt.Errorf("sensor %s: %w", s.ID, err)
		}
		depth := DefaultDebounceTicks
		if s.Debounce != nil {
			depth = *s.Debounce
		}
		if depth < 1 || depth > logic.MaxDebounceDepth {
			return nil, fmt.Errorf("sensor %s: %w: %d", s.ID, logic.ErrInvalidDepth, depth)
		}
		if s.Line < 0 {
			return nil, fmt.Errorf("sensor %s: negative line %d", s.ID, s.Line)
		}
		out = append(out, logic.SensorConfig{
			ID:            logic.SensorID(s.ID),
			Pin:           logic.Pin{Port: s.Port, Line: s.Line},
			ActiveLevel:   level,
			DebounceDepth: depth,
			SignalUp:      logic.Signal(s.SignalUp),
			SignalDown:    logic.Signal(s.SignalDown),
		})
	}
	return out, nil
}

// Pins returns the distinct pins of the sensor table in order.
func (c *Config) Pins() []logic.Pin {
	seen := make(map[logic.Pin]bool, len(c.Sensors))
	var pins []logic.Pin
	for _, s := range c.Sensors {
		p := logic.Pin{Port: s.Port, Line: s.Line}
		if seen[p] {
			continue
		}
		seen[p] = true
		pins = append(pins, p)
	}
	return pins
}
