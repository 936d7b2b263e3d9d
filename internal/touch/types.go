// Package touch samples a capacitive input and classifies it as touched.
// This package has NO hardware dependencies. Readings and multiplexer
// selection come in through the Sampler and Selector interfaces, and time is
// always passed in by the caller.
package touch

import "errors"

// Millis is a timestamp in milliseconds on a monotonically non-decreasing
// clock supplied by the caller.
type Millis int64

const (
	// BufferSize is the number of samples averaged by a Sensor.
	BufferSize = 10

	// DefaultThreshold is the averaged reading above which a channel is touched.
	DefaultThreshold uint16 = 5000
)

// Sampler reads one raw value from an analog channel.
// Implementations must be fast relative to the sample period.
type Sampler interface {
	Read(channel int) (uint16, error)
}

// Selector routes a multiplexer to the given input before a read.
// Bits 0-3 of index drive select lines SEL0..SEL3.
type Selector interface {
	Select(index int) error
}

// ErrNoSelector is returned by Update for a multiplexed sensor that was given
// no Selector.
var ErrNoSelector = errors.New("touch: multiplexed sensor has no selector")

// Option configures a Sensor at construction.
type Option func(*Sensor)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(t uint16) Option {
	return func(s *Sensor) {
		s.threshold = t
	}
}

// WithMultiplexer marks the sensor as sitting behind a multiplexer input.
// sel is asked to select index before every read; a nil sel makes every
// Update fail with ErrNoSelector.
func WithMultiplexer(index int, sel Selector) Option {
	return func(s *Sensor) {
		s.mux = index
		s.selector = sel
	}
}
