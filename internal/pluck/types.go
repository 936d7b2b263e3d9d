// Package pluck turns a touch sensor's touch/release signal into note events.
// A note fires when the string is released after being touched, and stops
// after the sustain duration or when the string is touched again.
package pluck

import (
	"errors"

	"github.com/sweeney/harp-strings/internal/touch"
)

// State is the position of a string in the pluck cycle.
type State int

// The zero State is deliberately invalid.
const (
	StateIdle State = iota + 1
	StateArmed
	StateSounding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateArmed:
		return "ARMED"
	case StateSounding:
		return "SOUNDING"
	default:
		return "INVALID"
	}
}

const (
	// DefaultSustain is how long a plucked string sounds if left alone.
	DefaultSustain touch.Millis = 2000

	// DefaultVelocity is sent with every note event.
	DefaultVelocity uint8 = 100

	// DefaultChannel is the 1-based MIDI channel notes are sent on.
	DefaultChannel uint8 = 1
)

// ErrInvalidState is returned by Update when the state machine holds a value
// outside the pluck cycle. The state is left unchanged.
var ErrInvalidState = errors.New("pluck: invalid state")

// Sink receives note events. Calls are fire-and-forget: a returned error is
// reported but never changes the state machine.
type Sink interface {
	NoteOn(note, velocity, channel uint8) error
	NoteOff(note, velocity, channel uint8) error
}
