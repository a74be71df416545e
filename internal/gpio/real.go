//go:build linux

package gpio

import (
	"fmt"

	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads pins through the Linux GPIO character device.
type RealReader struct {
	chips map[string]*gpiocdev.Chip
	lines map[logic.Pin]*gpiocdev.Line
	order []logic.Pin
}

func biasOption(b Bias) gpiocdev.LineReqOption {
	switch b {
	case BiasPullDown:
		return gpiocdev.WithPullDown
	case BiasNone:
		return gpiocdev.WithBiasDisabled
	}
	return gpiocdev.WithPullUp
}

// NewRealReader requests every pin as an input with the given bias.
// Pins sharing a chip share one chip handle.
func NewRealReader(pins []logic.Pin, bias Bias) (*RealReader, error) {
	r := &RealReader{
		chips: make(map[string]*gpiocdev.Chip),
		lines: make(map[logic.Pin]*gpiocdev.Line),
	}

	for _, p := range pins {
		if _, ok := r.lines[p]; ok {
			continue
		}
		name := chipName(p)
		chip, ok := r.chips[name]
		if !ok {
			c, err := gpiocdev.NewChip(name)
			if err != nil {
				r.Close()
				return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
			}
			r.chips[name] = c
			chip = c
		}

		line, err := chip.RequestLine(p.Line, gpiocdev.AsInput, biasOption(bias))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request pin %s: %w", p, err)
		}
		r.lines[p] = line
		r.order = append(r.order, p)
	}

	return r, nil
}

// ReadPin returns the physical level of p.
func (r *RealReader) ReadPin(p logic.Pin) (logic.Level, error) {
	line, ok := r.lines[p]
	if !ok {
		return logic.Low, fmt.Errorf("pin %s not requested", p)
	}
	v, err := line.Value()
	if err != nil {
		return logic.Low, fmt.Errorf("read pin %s: %w", p, err)
	}
	return levelFromValue(v), nil
}

// Close releases GPIO resources.
// Reconfigures lines to input with pull-down (matching Pi boot defaults)
// before closing so external hardware sees a clean state on reboot.
func (r *RealReader) Close() error {
	var errs []error

	for _, p := range r.order {
		line := r.lines[p]
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %s: %w", p, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %s: %w", p, err))
		}
	}
	for name, chip := range r.chips {
		if err := chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip %s: %w", name, err))
		}
	}
	r.lines = map[logic.Pin]*gpiocdev.Line{}
	r.chips = map[string]*gpiocdev.Chip{}
	r.order = nil

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
