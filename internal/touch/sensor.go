package touch

import "fmt"

// Sensor keeps a moving average of one analog channel.
// Not safe for concurrent use.
type Sensor struct {
	channel    int
	period     Millis
	lastSample Millis
	samples    [BufferSize]uint16
	index      int
	sum        uint32
	threshold  uint16
	mux        int // -1 when wired directly
	sampler    Sampler
	selector   Selector
}

// NewSensor creates a sensor for channel that samples at most once every
// period milliseconds. The buffer starts zero-filled, so Value is biased
// toward zero until BufferSize samples have been taken.
func NewSensor(channel int, period Millis, sampler Sampler, opts ...Option) *Sensor {
	s := &Sensor{
		channel:   channel,
		period:    period,
		threshold: DefaultThreshold,
		mux:       -1,
		sampler:   sampler,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update takes one sample if more than the sample period has passed since the
// last one, and is a no-op otherwise. On a select or read failure the buffer
// is left untouched and the sample is retried on the next call.
func (s *Sensor) Update(now Millis) error {
	if now <= s.lastSample+s.period {
		return nil
	}

	if s.mux >= 0 {
		if s.selector == nil {
			return fmt.Errorf("mux input %d: %w", s.mux, ErrNoSelector)
		}
		if err := s.selector.Select(s.mux); err != nil {
			return fmt.Errorf("select mux input %d: %w", s.mux, err)
		}
	}

	val, err := s.sampler.Read(s.channel)
	if err != nil {
		return fmt.Errorf("read channel %d: %w", s.channel, err)
	}

	s.lastSample = now
	s.sum -= uint32(s.samples[s.index])
	s.samples[s.index] = val
	s.sum += uint32(val)
	s.index = (s.index + 1) % BufferSize
	return nil
}

// Value returns the running average, truncated.
func (s *Sensor) Value() uint16 {
	return uint16(s.sum / BufferSize)
}

// Touched reports whether the average is above the touch threshold.
func (s *Sensor) Touched() bool {
	return s.Value() > s.threshold
}

// SetThreshold replaces the touch threshold.
func (s *Sensor) SetThreshold(t uint16) {
	s.threshold = t
}

// Threshold returns the current touch threshold.
func (s *Sensor) Threshold() uint16 {
	return s.threshold
}

// Channel returns the analog channel this sensor reads.
func (s *Sensor) Channel() int {
	return s.channel
}

// Multiplexed returns the multiplexer input, if any.
func (s *Sensor) Multiplexed() (int, bool) {
	return s.mux, s.mux >= 0
}

// Sum returns the running sum of the buffered samples.
func (s *Sensor) Sum() uint32 {
	return s.sum
}

// Samples returns a copy of the ring buffer in slot order.
func (s *Sensor) Samples() [BufferSize]uint16 {
	return s.samples
}

// LastSample returns the time of the last accepted sample.
func (s *Sensor) LastSample() Millis {
	return s.lastSample
}
