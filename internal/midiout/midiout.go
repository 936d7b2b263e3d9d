// Package midiout sends note events to a MIDI output port.
package midiout

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Sender writes note messages through a send function, as returned by
// midi.SendTo.
type Sender struct {
	send func(midi.Message) error
	port drivers.Out
}

// NewSender wraps an existing send function. Used by tests and by callers
// that manage the port themselves.
func NewSender(send func(midi.Message) error) *Sender {
	return &Sender{send: send}
}

// Open finds the first output port whose name contains name
// (case-insensitive) and opens it.
func Open(name string) (*Sender, error) {
	port, err := findOut(name)
	if err != nil {
		return nil, err
	}
	send, err := midi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open midi port %q: %w", port.String(), err)
	}
	return &Sender{send: send, port: port}, nil
}

// OutPorts lists the names of the available output ports.
func OutPorts() []string {
	var names []string
	for _, p := range midi.GetOutPorts() {
		names = append(names, p.String())
	}
	return names
}

func findOut(name string) (drivers.Out, error) {
	want := strings.ToLower(name)
	for _, p := range midi.GetOutPorts() {
		if strings.Contains(strings.ToLower(p.String()), want) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("midi output %q not found", name)
}

// NoteOn sends a note-on. channel is 1-based.
func (s *Sender) NoteOn(note, velocity, channel uint8) error {
	ch, err := wireChannel(channel)
	if err != nil {
		return err
	}
	return s.send(midi.NoteOn(ch, note, velocity))
}

// NoteOff sends a note-off with release velocity. channel is 1-based.
func (s *Sender) NoteOff(note, velocity, channel uint8) error {
	ch, err := wireChannel(channel)
	if err != nil {
		return err
	}
	return s.send(midi.NoteOffVelocity(ch, note, velocity))
}

// Port returns the name of the open port, or "" for a wrapped send function.
func (s *Sender) Port() string {
	if s.port == nil {
		return ""
	}
	return s.port.String()
}

// Close closes the output port if Open created it.
func (s *Sender) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}

func wireChannel(channel uint8) (uint8, error) {
	if channel < 1 || channel > 16 {
		return 0, fmt.Errorf("midi channel %d out of range 1-16", channel)
	}
	return channel - 1, nil
}
