//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

var _ Selector = (*MuxSelector)(nil)

// MuxSelector drives the select lines of a 16-way analog multiplexer.
type MuxSelector struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
	last  int
}

// NewMuxSelector requests pins as outputs on the named chip, all driven low.
func NewMuxSelector(chipName string, pins [SelectLines]int) (*MuxSelector, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("harp-strings"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	lines, err := chip.RequestLines(pins[:], gpiocdev.AsOutput(0, 0, 0, 0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request select pins %v: %w", pins, err)
	}

	return &MuxSelector{
		chip:  chip,
		lines: lines,
		last:  0,
	}, nil
}

// Select sets all four select lines in one request.
// Re-selecting the current input does not touch the hardware.
func (m *MuxSelector) Select(index int) error {
	if index < 0 || index > MaxInput {
		return fmt.Errorf("mux input %d out of range 0-%d", index, MaxInput)
	}
	if index == m.last {
		return nil
	}
	if err := m.lines.SetValues(levels(index)); err != nil {
		return fmt.Errorf("set select lines: %w", err)
	}
	m.last = index
	return nil
}

// Close returns the select lines to inputs with pull-down (matching Pi boot
// defaults) and releases them.
func (m *MuxSelector) Close() error {
	var errs []error

	if m.lines != nil {
		if err := m.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure select pins: %w", err))
		}
		if err := m.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close select pins: %w", err))
		}
	}
	if m.chip != nil {
		if err := m.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
