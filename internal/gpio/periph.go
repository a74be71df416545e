package gpio

import (
	"fmt"
	"sync"

	"github.com/sweeney/button-sensor/internal/logic"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var periphInit struct {
	once sync.Once
	err  error
}

// PeriphReader reads pins through periph.io. Pins are looked up by their
// BCM name, GPIO<line>; the port is ignored.
type PeriphReader struct {
	pins map[logic.Pin]gpio.PinIn
}

func periphPull(b Bias) gpio.Pull {
	switch b {
	case BiasPullDown:
		return gpio.PullDown
	case BiasNone:
		return gpio.Float
	}
	return gpio.PullUp
}

// PeriphName returns the periph.io registry name for p.
func PeriphName(p logic.Pin) string {
	return fmt.Sprintf("GPIO%d", p.Line)
}

// NewPeriphReader initialises the periph host drivers and configures every
// pin as an input without edge detection.
func NewPeriphReader(pins []logic.Pin, bias Bias) (*PeriphReader, error) {
	periphInit.once.Do(func() {
		_, periphInit.err = host.Init()
	})
	if periphInit.err != nil {
		return nil, fmt.Errorf("init periph host: %w", periphInit.err)
	}

	r := &PeriphReader{pins: make(map[logic.Pin]gpio.PinIn)}
	for _, p := range pins {
		if _, ok := r.pins[p]; ok {
			continue
		}
		name := PeriphName(p)
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("periph: no pin named %s", name)
		}
		if err := pin.In(periphPull(bias), gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("configure %s: %w", name, err)
		}
		r.pins[p] = pin
	}
	return r, nil
}

// ReadPin returns the current level of p.
func (r *PeriphReader) ReadPin(p logic.Pin) (logic.Level, error) {
	pin, ok := r.pins[p]
	if !ok {
		return logic.Low, fmt.Errorf("pin %s not configured", p)
	}
	if pin.Read() == gpio.Low {
		return logic.Low, nil
	}
	return logic.High, nil
}

// Close halts every configured pin.
func (r *PeriphReader) Close() error {
	var errs []error
	for p, pin := range r.pins {
		if err := pin.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt %s: %w", PeriphName(p), err))
		}
	}
	r.pins = map[logic.Pin]gpio.PinIn{}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
