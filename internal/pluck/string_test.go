package pluck

import (
	"errors"
	"math"
	"testing"

	"github.com/sweeney/harp-strings/internal/touch"
)

type constSampler uint16

func (c constSampler) Read(int) (uint16, error) { return uint16(c), nil }

type failingSampler struct{ err error }

func (f failingSampler) Read(int) (uint16, error) { return 0, f.err }

// harness holds a string whose sensor average is pinned at 1000. Touch and
// release are simulated by moving the threshold below or above that value.
type harness struct {
	t      *testing.T
	str    *String
	sink   *FakeSink
	sensor *touch.Sensor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sensor := touch.NewSensor(0, 0, constSampler(1000))
	for now := touch.Millis(1); now <= touch.BufferSize; now++ {
		if err := sensor.Update(now); err != nil {
			t.Fatalf("prime sensor: %v", err)
		}
	}
	if sensor.Value() != 1000 {
		t.Fatalf("expected primed value 1000, got %d", sensor.Value())
	}
	sensor.SetThreshold(math.MaxUint16)

	sink := NewFakeSink()
	str := NewString(sensor, sink)
	str.SetNote(60)
	return &harness{t: t, str: str, sink: sink, sensor: sensor}
}

func (h *harness) touch()   { h.sensor.SetThreshold(0) }
func (h *harness) release() { h.sensor.SetThreshold(math.MaxUint16) }

func (h *harness) update(now touch.Millis) {
	h.t.Helper()
	if err := h.str.Update(now); err != nil {
		h.t.Fatalf("update at %d: %v", now, err)
	}
}

func (h *harness) expectState(want State) {
	h.t.Helper()
	if got := h.str.State(); got != want {
		h.t.Fatalf("expected state %s, got %s", want, got)
	}
}

func (h *harness) expectEvents(ons, offs int) {
	h.t.Helper()
	if h.sink.Ons() != ons || h.sink.Offs() != offs {
		h.t.Fatalf("expected %d note-on / %d note-off, got %d / %d", ons, offs, h.sink.Ons(), h.sink.Offs())
	}
}

// pluckAt arms the string at now-100 and releases it at now.
func (h *harness) pluckAt(now touch.Millis) {
	h.t.Helper()
	h.touch()
	h.update(now - 100)
	h.expectState(StateArmed)
	h.release()
	h.update(now)
	h.expectState(StateSounding)
}

func TestNewStringDefaults(t *testing.T) {
	str := NewString(touch.NewSensor(0, 0, constSampler(0)), NewFakeSink())
	if str.State() != StateIdle {
		t.Errorf("expected IDLE, got %s", str.State())
	}
	if str.Sustain() != DefaultSustain {
		t.Errorf("expected sustain %d, got %d", DefaultSustain, str.Sustain())
	}
	if str.Velocity() != 100 || str.Channel() != 1 {
		t.Errorf("expected velocity 100 channel 1, got %d %d", str.Velocity(), str.Channel())
	}
	if str.NoteOnTime() != 0 {
		t.Errorf("expected noteOnTime 0, got %d", str.NoteOnTime())
	}
}

func TestIdleStaysIdleWhenUntouched(t *testing.T) {
	h := newHarness(t)
	for now := touch.Millis(100); now < 200; now += 10 {
		h.update(now)
		h.expectState(StateIdle)
	}
	h.expectEvents(0, 0)
}

func TestTouchArms(t *testing.T) {
	h := newHarness(t)
	h.touch()
	h.update(100)
	h.expectState(StateArmed)
	h.expectEvents(0, 0)

	// Holding does nothing
	for now := touch.Millis(110); now < 500; now += 10 {
		h.update(now)
		h.expectState(StateArmed)
	}
	h.expectEvents(0, 0)
}

func TestReleaseFiresNoteOn(t *testing.T) {
	h := newHarness(t)
	h.pluckAt(1000)

	h.expectEvents(1, 0)
	got := h.sink.Events[0]
	want := NoteEvent{On: true, Note: 60, Velocity: 100, Channel: 1}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if h.str.NoteOnTime() != 1000 {
		t.Errorf("expected noteOnTime 1000, got %d", h.str.NoteOnTime())
	}
}

func TestSustainBoundaryIsStrict(t *testing.T) {
	h := newHarness(t)
	h.str.SetSustain(2000)
	h.pluckAt(1000)

	h.update(3000)
	h.expectState(StateSounding)
	h.expectEvents(1, 0)

	h.update(3001)
	h.expectState(StateIdle)
	h.expectEvents(1, 1)
	if h.str.NoteOnTime() != 0 {
		t.Errorf("expected noteOnTime reset to 0, got %d", h.str.NoteOnTime())
	}
	if h.sink.Events[1].On || h.sink.Events[1].Note != 60 {
		t.Errorf("unexpected second event %+v", h.sink.Events[1])
	}
}

func TestNoDuplicateNoteOffAfterSustain(t *testing.T) {
	h := newHarness(t)
	h.str.SetSustain(2000)
	h.pluckAt(1000)

	for now := touch.Millis(3001); now < 6000; now += 250 {
		h.update(now)
		h.expectState(StateIdle)
	}
	h.expectEvents(1, 1)
}

func TestRetouchDampsAndRearms(t *testing.T) {
	h := newHarness(t)
	h.str.SetSustain(2000)
	h.pluckAt(1000)

	h.touch()
	h.update(1500)
	h.expectState(StateArmed)
	h.expectEvents(1, 1)
	if h.str.NoteOnTime() != 1000 {
		t.Errorf("retouch must leave noteOnTime at 1000, got %d", h.str.NoteOnTime())
	}

	// Holding after the damp never re-triggers, even past the old deadline
	for now := touch.Millis(1600); now <= 4000; now += 200 {
		h.update(now)
		h.expectState(StateArmed)
	}
	h.expectEvents(1, 1)

	// Next release starts a fresh episode
	h.release()
	h.update(4100)
	h.expectState(StateSounding)
	h.expectEvents(2, 1)
	if h.str.NoteOnTime() != 4100 {
		t.Errorf("expected fresh noteOnTime 4100, got %d", h.str.NoteOnTime())
	}

	h.update(6100)
	h.expectState(StateSounding)
	h.update(6101)
	h.expectState(StateIdle)
	h.expectEvents(2, 2)
}

func TestRetouchAfterDeadlineWins(t *testing.T) {
	h := newHarness(t)
	h.str.SetSustain(2000)
	h.pluckAt(1000)

	// Touched and past the deadline on the same tick: the touch damps the
	// note and arms, rather than going idle.
	h.touch()
	h.update(5000)
	h.expectState(StateArmed)
	h.expectEvents(1, 1)
	if h.str.NoteOnTime() != 1000 {
		t.Errorf("expected noteOnTime left at 1000, got %d", h.str.NoteOnTime())
	}
}

func TestSustainChangeAppliesToCurrentNote(t *testing.T) {
	h := newHarness(t)
	h.str.SetSustain(2000)
	h.pluckAt(1000)

	h.update(1400)
	h.expectState(StateSounding)

	// Shortening while sounding moves the live deadline to 1000+500
	h.str.SetSustain(500)
	h.update(1500)
	h.expectState(StateSounding)
	h.update(1501)
	h.expectState(StateIdle)
	h.expectEvents(1, 1)
}

func TestSetNoteAffectsNextEvent(t *testing.T) {
	h := newHarness(t)
	h.pluckAt(1000)

	h.str.SetNote(72)
	h.str.SetVelocity(64)
	h.str.SetChannel(10)
	h.touch()
	h.update(1100)

	h.expectEvents(1, 1)
	want := NoteEvent{On: false, Note: 72, Velocity: 64, Channel: 10}
	if got := h.sink.Events[1]; got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestInvalidStateReported(t *testing.T) {
	h := newHarness(t)
	h.str.state = State(42)
	h.touch()

	err := h.str.Update(100)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if h.str.State() != State(42) {
		t.Errorf("state must be left unchanged, got %d", h.str.State())
	}
	if h.str.State().String() != "INVALID" {
		t.Errorf("expected INVALID, got %s", h.str.State())
	}
	h.expectEvents(0, 0)
}

func TestZeroStateIsInvalid(t *testing.T) {
	var s String
	s.sensor = touch.NewSensor(0, 0, constSampler(0))
	if err := s.Update(1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for zero State, got %v", err)
	}
}

func TestSinkErrorDoesNotBlockTransition(t *testing.T) {
	h := newHarness(t)
	h.sink.Err = errors.New("port closed")

	h.touch()
	h.update(100)
	h.release()
	err := h.str.Update(200)

	if !errors.Is(err, h.sink.Err) {
		t.Errorf("expected sink error to be returned, got %v", err)
	}
	h.expectState(StateSounding)
	if h.str.NoteOnTime() != 200 {
		t.Errorf("expected noteOnTime 200, got %d", h.str.NoteOnTime())
	}
}

func TestSensorErrorStillEvaluates(t *testing.T) {
	readErr := errors.New("adc timeout")
	sensor := touch.NewSensor(0, 0, failingSampler{err: readErr})
	sensor.SetThreshold(math.MaxUint16)
	sink := NewFakeSink()
	str := NewString(sensor, sink)

	str.state = StateArmed
	err := str.Update(10)
	if !errors.Is(err, readErr) {
		t.Errorf("expected read error, got %v", err)
	}
	if str.State() != StateSounding {
		t.Errorf("expected SOUNDING after release with stale average, got %s", str.State())
	}
	if sink.Ons() != 1 {
		t.Errorf("expected 1 note-on, got %d", sink.Ons())
	}
}

func TestSamplingPrecedesEvaluation(t *testing.T) {
	// One reading of 60000 lifts the zero-filled average to 6000 on the same tick.
	sensor := touch.NewSensor(0, 5, constSampler(60000))
	sink := NewFakeSink()
	str := NewString(sensor, sink)

	if err := str.Update(3); err != nil {
		t.Fatal(err)
	}
	if str.State() != StateIdle {
		t.Fatalf("no sample due yet, expected IDLE, got %s", str.State())
	}

	if err := str.Update(6); err != nil {
		t.Fatal(err)
	}
	if str.State() != StateArmed {
		t.Errorf("expected ARMED on the tick the sample lands, got %s", str.State())
	}
}

func TestSilence(t *testing.T) {
	h := newHarness(t)
	if err := h.str.Silence(); err != nil {
		t.Fatal(err)
	}
	h.expectEvents(0, 0)

	h.pluckAt(1000)
	if err := h.str.Silence(); err != nil {
		t.Fatal(err)
	}
	h.expectState(StateIdle)
	h.expectEvents(1, 1)
	if h.str.NoteOnTime() != 0 {
		t.Errorf("expected noteOnTime 0, got %d", h.str.NoteOnTime())
	}
}
