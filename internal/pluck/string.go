package pluck

import (
	"errors"
	"fmt"

	"github.com/sweeney/harp-strings/internal/touch"
)

// String wraps one touch sensor with the pluck state machine.
// Not safe for concurrent use.
type String struct {
	sensor     *touch.Sensor
	sink       Sink
	state      State
	noteOnTime touch.Millis
	note       uint8
	velocity   uint8
	channel    uint8
	sustain    touch.Millis
}

// NewString creates an idle string reading sensor and emitting to sink.
func NewString(sensor *touch.Sensor, sink Sink) *String {
	return &String{
		sensor:   sensor,
		sink:     sink,
		state:    StateIdle,
		velocity: DefaultVelocity,
		channel:  DefaultChannel,
		sustain:  DefaultSustain,
	}
}

// Update samples the sensor (if due) and then advances the state machine.
//
// A sensor error does not stop evaluation: the previous average is still the
// freshest value available. Sink errors are returned alongside it.
func (s *String) Update(now touch.Millis) error {
	var errs []error
	if err := s.sensor.Update(now); err != nil {
		errs = append(errs, err)
	}

	touched := s.sensor.Touched()

	switch s.state {
	case StateIdle:
		if touched {
			s.state = StateArmed
		}

	case StateArmed:
		if !touched {
			errs = append(errs, s.noteOn())
			s.state = StateSounding
			s.noteOnTime = now
		}

	case StateSounding:
		if touched {
			// Touching a vibrating string damps it. noteOnTime is left as is;
			// the next release overwrites it.
			errs = append(errs, s.noteOff())
			s.state = StateArmed
		} else if now-s.noteOnTime > s.sustain {
			errs = append(errs, s.noteOff())
			s.noteOnTime = 0
			s.state = StateIdle
		}

	default:
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidState, int(s.state)))
	}

	return errors.Join(errs...)
}

func (s *String) noteOn() error {
	if err := s.sink.NoteOn(s.note, s.velocity, s.channel); err != nil {
		return fmt.Errorf("note on %d: %w", s.note, err)
	}
	return nil
}

func (s *String) noteOff() error {
	if err := s.sink.NoteOff(s.note, s.velocity, s.channel); err != nil {
		return fmt.Errorf("note off %d: %w", s.note, err)
	}
	return nil
}

// SetNote sets the note emitted by future events.
func (s *String) SetNote(note uint8) {
	s.note = note
}

// SetSustain sets how long a plucked string sounds. The value is read on every
// comparison, so changing it while sounding moves the current deadline too.
func (s *String) SetSustain(d touch.Millis) {
	s.sustain = d
}

// SetVelocity sets the velocity sent with note events.
func (s *String) SetVelocity(v uint8) {
	s.velocity = v
}

// SetChannel sets the 1-based channel sent with note events.
func (s *String) SetChannel(ch uint8) {
	s.channel = ch
}

// State returns the current state.
func (s *String) State() State {
	return s.state
}

// NoteOnTime returns when the current note started, or 0 when idle.
func (s *String) NoteOnTime() touch.Millis {
	return s.noteOnTime
}

// Note returns the configured note.
func (s *String) Note() uint8 {
	return s.note
}

// Velocity returns the configured velocity.
func (s *String) Velocity() uint8 {
	return s.velocity
}

// Channel returns the configured 1-based channel.
func (s *String) Channel() uint8 {
	return s.channel
}

// Sustain returns the configured sustain duration.
func (s *String) Sustain() touch.Millis {
	return s.sustain
}

// Sensor returns the underlying touch sensor.
func (s *String) Sensor() *touch.Sensor {
	return s.sensor
}

// Silence sends a note-off if the string is sounding and returns it to idle.
// Used on shutdown so no note is left hanging on the output.
func (s *String) Silence() error {
	if s.state != StateSounding {
		return nil
	}
	err := s.noteOff()
	s.noteOnTime = 0
	s.state = StateIdle
	return err
}
