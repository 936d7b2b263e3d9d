package pluck

// NoteEvent is one call recorded by FakeSink.
type NoteEvent struct {
	On       bool
	Note     uint8
	Velocity uint8
	Channel  uint8
}

// FakeSink records note events for test assertions.
type FakeSink struct {
	// Events contains every NoteOn/NoteOff call in order.
	Events []NoteEvent

	// Err, if set, is returned by NoteOn and NoteOff (the event is still recorded).
	Err error
}

// NewFakeSink creates an empty FakeSink.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

// NoteOn records a note-on.
func (f *FakeSink) NoteOn(note, velocity, channel uint8) error {
	f.Events = append(f.Events, NoteEvent{On: true, Note: note, Velocity: velocity, Channel: channel})
	return f.Err
}

// NoteOff records a note-off.
func (f *FakeSink) NoteOff(note, velocity, channel uint8) error {
	f.Events = append(f.Events, NoteEvent{On: false, Note: note, Velocity: velocity, Channel: channel})
	return f.Err
}

// Ons returns the number of recorded note-ons.
func (f *FakeSink) Ons() int {
	n := 0
	for _, e := range f.Events {
		if e.On {
			n++
		}
	}
	return n
}

// Offs returns the number of recorded note-offs.
func (f *FakeSink) Offs() int {
	return len(f.Events) - f.Ons()
}

// Reset clears recorded events.
func (f *FakeSink) Reset() {
	f.Events = nil
	f.Err = nil
}
