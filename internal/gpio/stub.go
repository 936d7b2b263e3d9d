//go:build !linux

package gpio

import "errors"

var _ Selector = (*MuxSelector)(nil)

// MuxSelector is not available on non-Linux platforms.
type MuxSelector struct{}

// NewMuxSelector returns an error on non-Linux platforms.
func NewMuxSelector(chipName string, pins [SelectLines]int) (*MuxSelector, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Select is not implemented on non-Linux platforms.
func (m *MuxSelector) Select(index int) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (m *MuxSelector) Close() error {
	return nil
}
