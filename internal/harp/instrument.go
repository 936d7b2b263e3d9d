package harp

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/sweeney/harp-strings/internal/pluck"
	"github.com/sweeney/harp-strings/internal/touch"
)

// Instrument owns every string and is the only caller of their Update.
// Not safe for concurrent use.
type Instrument struct {
	startTime     time.Time
	now           time.Time
	strings       []*voice
	output        pluck.Sink
	sinks         []EventSink
	pending       []Event
	counts        EventCounts
	lastHeartbeat time.Time
	logger        *slog.Logger
}

type voice struct {
	name string
	str  *pluck.String
}

// New creates an empty instrument. Note calls are forwarded to output (which
// may be nil) and every resulting Event is passed to sinks. A nil logger
// means slog.Default().
func New(startTime time.Time, output pluck.Sink, logger *slog.Logger, sinks ...EventSink) *Instrument {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instrument{
		startTime:     startTime,
		now:           startTime,
		output:        output,
		sinks:         sinks,
		lastHeartbeat: startTime,
		logger:        logger,
	}
}

// AddString creates a pluck string on sensor and registers it under name.
// Strings are updated in the order they were added.
func (in *Instrument) AddString(name string, sensor *touch.Sensor) *pluck.String {
	v := &voice{name: name}
	v.str = pluck.NewString(sensor, &voiceSink{in: in, name: name})
	in.strings = append(in.strings, v)
	return v.str
}

// AddSink registers another event sink.
func (in *Instrument) AddSink(sink EventSink) {
	in.sinks = append(in.sinks, sink)
}

// Close closes every sink that holds resources (such as an AsyncSink),
// waiting for queued events to be delivered.
func (in *Instrument) Close() error {
	var errs []error
	for _, sink := range in.sinks {
		if c, ok := sink.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Millis converts a wall-clock time to the instrument's millisecond clock.
func (in *Instrument) Millis(t time.Time) touch.Millis {
	return touch.Millis(t.Sub(in.startTime).Milliseconds())
}

// Tick updates every string once and returns the events they emitted.
// Errors are logged and counted; they never stop the tick.
func (in *Instrument) Tick(now time.Time) []Event {
	in.now = now
	ms := in.Millis(now)

	for _, v := range in.strings {
		if err := v.str.Update(ms); err != nil {
			in.counts.Errors++
			in.logger.Error("string update failed", "string", v.name, "state", v.str.State(), "err", err)
		}
	}

	return in.flush()
}

// Silence stops every sounding string, e.g. before shutdown.
func (in *Instrument) Silence(now time.Time) []Event {
	in.now = now
	for _, v := range in.strings {
		if err := v.str.Silence(); err != nil {
			in.counts.Errors++
			in.logger.Error("silence failed", "string", v.name, "err", err)
		}
	}
	return in.flush()
}

func (in *Instrument) flush() []Event {
	if len(in.pending) == 0 {
		return nil
	}
	events := in.pending
	in.pending = nil

	for _, e := range events {
		for _, sink := range in.sinks {
			if err := sink.Emit(e); err != nil {
				in.logger.Warn("event sink failed", "event", e.Type, "string", e.String, "err", err)
			}
		}
	}
	return events
}

// record is called synchronously from a string's Update.
func (in *Instrument) record(name string, typ EventType, note, velocity, channel uint8) {
	switch typ {
	case EventNoteOn:
		in.counts.NoteOn++
	case EventNoteOff:
		in.counts.NoteOff++
	}
	in.pending = append(in.pending, Event{
		Timestamp: in.now,
		Type:      typ,
		String:    name,
		Note:      note,
		Velocity:  velocity,
		Channel:   channel,
	})
}

// Lookup returns the named string, or nil.
func (in *Instrument) Lookup(name string) *pluck.String {
	for _, v := range in.strings {
		if v.name == name {
			return v.str
		}
	}
	return nil
}

// Len returns the number of strings.
func (in *Instrument) Len() int {
	return len(in.strings)
}

// Counts returns a copy of the event counts.
func (in *Instrument) Counts() EventCounts {
	return in.counts
}

// Status returns the state of every string in update order.
func (in *Instrument) Status() []StringStatus {
	out := make([]StringStatus, 0, len(in.strings))
	for _, v := range in.strings {
		sensor := v.str.Sensor()
		mux, ok := sensor.Multiplexed()
		if !ok {
			mux = -1
		}
		out = append(out, StringStatus{
			Name:      v.name,
			State:     v.str.State(),
			Value:     sensor.Value(),
			Threshold: sensor.Threshold(),
			Touched:   sensor.Touched(),
			Note:      v.str.Note(),
			Input:     sensor.Channel(),
			Mux:       mux,
		})
	}
	return out
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed or
// if interval is <= 0 (disabled).
func (in *Instrument) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(in.lastHeartbeat) < interval {
		return nil
	}

	in.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(in.startTime),
		Counts:    in.counts,
	}
}

// voiceSink is the pluck.Sink handed to each string. It records the event
// and forwards the call to the instrument's output.
type voiceSink struct {
	in   *Instrument
	name string
}

func (s *voiceSink) NoteOn(note, velocity, channel uint8) error {
	s.in.record(s.name, EventNoteOn, note, velocity, channel)
	if s.in.output == nil {
		return nil
	}
	return s.in.output.NoteOn(note, velocity, channel)
}

func (s *voiceSink) NoteOff(note, velocity, channel uint8) error {
	s.in.record(s.name, EventNoteOff, note, velocity, channel)
	if s.in.output == nil {
		return nil
	}
	return s.in.output.NoteOff(note, velocity, channel)
}
