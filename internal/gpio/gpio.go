// Package gpio provides raw pin reads with hardware abstraction.
// The real implementations use the Linux GPIO character device (gpiocdev)
// or periph.io. The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"
	"strings"

	"github.com/sweeney/button-sensor/internal/logic"
)

// Reader reads raw pin levels. It satisfies logic.PinReader.
type Reader interface {
	// ReadPin returns the physical level of p. It does not block.
	ReadPin(p logic.Pin) (logic.Level, error)

	// Close releases GPIO resources.
	Close() error
}

// Bias selects the input bias requested for every line.
type Bias int

const (
	BiasPullUp Bias = iota // buttons wired to ground, pressed = LOW
	BiasPullDown
	BiasNone
)

func (b Bias) String() string {
	switch b {
	case BiasPullUp:
		return "pull-up"
	case BiasPullDown:
		return "pull-down"
	case BiasNone:
		return "none"
	}
	return fmt.Sprintf("Bias(%d)", int(b))
}

// ParseBias converts "pull-up", "pull-down" or "none".
func ParseBias(s string) (Bias, error) {
	switch strings.ToLower(s) {
	case "pull-up", "pullup", "up", "":
		return BiasPullUp, nil
	case "pull-down", "pulldown", "down":
		return BiasPullDown, nil
	case "none", "disabled", "float":
		return BiasNone, nil
	}
	return BiasPullUp, fmt.Errorf("gpio: unknown bias %q", s)
}

// DefaultChip is the GPIO character device used when a pin has no port.
const DefaultChip = "gpiochip0"

func chipName(p logic.Pin) string {
	if p.Port == "" {
		return DefaultChip
	}
	return p.Port
}

func levelFromValue(v int) logic.Level {
	if v == 0 {
		return logic.Low
	}
	return logic.High
}
