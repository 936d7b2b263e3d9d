// Package harp runs a set of pluck strings as one instrument: it drives every
// string once per tick, turns their note calls into timestamped events and
// hands those to the configured outputs.
package harp

import (
	"time"

	"github.com/sweeney/harp-strings/internal/pluck"
)

// EventType is the kind of note event.
type EventType string

const (
	EventNoteOn  EventType = "NOTE_ON"
	EventNoteOff EventType = "NOTE_OFF"
)

// Event is a note event emitted by one string.
type Event struct {
	Timestamp time.Time
	Type      EventType
	String    string
	Note      uint8
	Velocity  uint8
	Channel   uint8
}

// EventSink receives every event after a tick, in emission order.
type EventSink interface {
	Emit(event Event) error
}

// EventCounts tracks events and update errors since startup.
type EventCounts struct {
	NoteOn  int
	NoteOff int
	Errors  int
}

// StringStatus is a point-in-time view of one string.
type StringStatus struct {
	Name      string
	State     pluck.State
	Value     uint16
	Threshold uint16
	Touched   bool
	Note      uint8
	Input     int
	Mux       int // -1 when wired directly
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
