package touch

import (
	"errors"
	"testing"
)

// scriptSampler returns scripted readings; the last one repeats.
type scriptSampler struct {
	values []uint16
	calls  int
	err    error
}

func (s *scriptSampler) Read(channel int) (uint16, error) {
	if s.err != nil {
		return 0, s.err
	}
	i := s.calls
	if i >= len(s.values) {
		i = len(s.values) - 1
	}
	s.calls++
	return s.values[i], nil
}

// constSampler always returns the same reading.
type constSampler uint16

func (c constSampler) Read(int) (uint16, error) { return uint16(c), nil }

type recordingSelector struct {
	selected []int
	err      error
}

func (r *recordingSelector) Select(index int) error {
	if r.err != nil {
		return r.err
	}
	r.selected = append(r.selected, index)
	return nil
}

func bufferSum(b [BufferSize]uint16) uint32 {
	var sum uint32
	for _, v := range b {
		sum += uint32(v)
	}
	return sum
}

func TestNewSensorDefaults(t *testing.T) {
	s := NewSensor(3, 5, constSampler(0))
	if s.Channel() != 3 {
		t.Errorf("expected channel 3, got %d", s.Channel())
	}
	if s.Threshold() != DefaultThreshold {
		t.Errorf("expected threshold %d, got %d", DefaultThreshold, s.Threshold())
	}
	if _, ok := s.Multiplexed(); ok {
		t.Error("sensor without multiplexer should report direct wiring")
	}
	if s.Value() != 0 {
		t.Errorf("expected zero value before sampling, got %d", s.Value())
	}
	if s.Touched() {
		t.Error("fresh sensor should not be touched")
	}
}

func TestConstantReadingAboveThreshold(t *testing.T) {
	s := NewSensor(0, 1, constSampler(6000), WithThreshold(5000))

	for now := Millis(2); now <= 20; now += 2 {
		if err := s.Update(now); err != nil {
			t.Fatalf("update at %d: %v", now, err)
		}
	}

	if s.Value() != 6000 {
		t.Errorf("expected value 6000, got %d", s.Value())
	}
	if !s.Touched() {
		t.Error("expected touched with value 6000 over threshold 5000")
	}
}

func TestRunningSumMatchesBuffer(t *testing.T) {
	readings := []uint16{
		100, 65535, 7, 0, 4999, 5001, 12000, 3, 3, 9000,
		65535, 65535, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 40000, 0, 22,
	}
	sampler := &scriptSampler{values: readings}
	s := NewSensor(0, 0, sampler)

	for i := range readings {
		if err := s.Update(Millis(i + 1)); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		if got, want := s.Sum(), bufferSum(s.Samples()); got != want {
			t.Fatalf("after sample %d: running sum %d, buffer sum %d", i, got, want)
		}
		if got, want := s.Value(), uint16(s.Sum()/BufferSize); got != want {
			t.Fatalf("after sample %d: value %d, want %d", i, got, want)
		}
	}
}

func TestValueTruncates(t *testing.T) {
	// 19 / 10 truncates to 1
	sampler := &scriptSampler{values: []uint16{10, 9, 0}}
	s := NewSensor(0, 0, sampler)
	s.Update(1)
	s.Update(2)

	if s.Value() != 1 {
		t.Errorf("expected truncated value 1, got %d", s.Value())
	}
}

func TestRingBufferEvictsOldest(t *testing.T) {
	values := make([]uint16, BufferSize+1)
	for i := range values {
		values[i] = uint16(i + 1)
	}
	s := NewSensor(0, 0, &scriptSampler{values: values})

	for i := range values {
		s.Update(Millis(i + 1))
	}

	// slot 0 held 1 and is now overwritten with 11
	got := s.Samples()
	if got[0] != 11 {
		t.Errorf("expected slot 0 to hold 11, got %d", got[0])
	}
	if s.Sum() != 65 { // 2+3+...+11
		t.Errorf("expected sum 65, got %d", s.Sum())
	}
}

func TestStartupBias(t *testing.T) {
	s := NewSensor(0, 0, constSampler(6000))

	s.Update(1)
	if s.Value() != 600 {
		t.Errorf("expected biased value 600 after one sample, got %d", s.Value())
	}
	if s.Touched() {
		t.Error("single sample should not cross threshold while zero-filled")
	}
}

func TestUpdateRespectsSamplePeriod(t *testing.T) {
	sampler := &scriptSampler{values: []uint16{1000}}
	s := NewSensor(0, 10, sampler)

	tests := []struct {
		now       Millis
		wantCalls int
	}{
		{0, 0},  // not > 0+10
		{10, 0}, // equal is not enough
		{11, 1}, // first sample
		{15, 1}, // within period
		{21, 1}, // 21 is not > 11+10
		{22, 2},
		{22, 2}, // same tick again is a no-op
	}

	for _, tt := range tests {
		if err := s.Update(tt.now); err != nil {
			t.Fatalf("update at %d: %v", tt.now, err)
		}
		if sampler.calls != tt.wantCalls {
			t.Errorf("now=%d: expected %d reads, got %d", tt.now, tt.wantCalls, sampler.calls)
		}
	}
	if s.LastSample() != 22 {
		t.Errorf("expected last sample time 22, got %d", s.LastSample())
	}
}

func TestSetThreshold(t *testing.T) {
	s := NewSensor(0, 0, constSampler(3000))
	for i := 1; i <= BufferSize; i++ {
		s.Update(Millis(i))
	}
	if s.Touched() {
		t.Fatal("3000 should not be touched at default threshold")
	}

	s.SetThreshold(2999)
	if !s.Touched() {
		t.Error("expected touched after lowering threshold")
	}

	s.SetThreshold(3000)
	if s.Touched() {
		t.Error("value equal to threshold must not count as touched")
	}
}

func TestMultiplexerSelectedBeforeRead(t *testing.T) {
	sel := &recordingSelector{}
	s := NewSensor(0, 0, constSampler(10), WithMultiplexer(9, sel))

	if idx, ok := s.Multiplexed(); !ok || idx != 9 {
		t.Fatalf("expected multiplexer input 9, got %d (%v)", idx, ok)
	}

	s.Update(1)
	s.Update(1) // no-op, period not elapsed
	s.Update(2)

	if len(sel.selected) != 2 {
		t.Fatalf("expected 2 selections, got %d", len(sel.selected))
	}
	for i, idx := range sel.selected {
		if idx != 9 {
			t.Errorf("selection %d: expected 9, got %d", i, idx)
		}
	}
}

func TestReadErrorLeavesBufferAndRetries(t *testing.T) {
	sampler := &scriptSampler{values: []uint16{500}, err: errors.New("bus fault")}
	s := NewSensor(4, 5, sampler)

	err := s.Update(10)
	if err == nil {
		t.Fatal("expected read error")
	}
	if !errors.Is(err, sampler.err) {
		t.Errorf("expected wrapped bus fault, got %v", err)
	}
	if s.Sum() != 0 || s.LastSample() != 0 {
		t.Errorf("failed read must not change state: sum=%d last=%d", s.Sum(), s.LastSample())
	}

	sampler.err = nil
	if err := s.Update(10); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if s.Sum() != 500 {
		t.Errorf("expected sum 500 after retry, got %d", s.Sum())
	}
}

func TestSelectErrorSkipsRead(t *testing.T) {
	sel := &recordingSelector{err: errors.New("line busy")}
	sampler := &scriptSampler{values: []uint16{500}}
	s := NewSensor(0, 0, sampler, WithMultiplexer(2, sel))

	if err := s.Update(1); err == nil {
		t.Fatal("expected select error")
	}
	if sampler.calls != 0 {
		t.Errorf("read must not happen after failed select, got %d reads", sampler.calls)
	}
}

func TestMultiplexerWithoutSelectorFails(t *testing.T) {
	sampler := &scriptSampler{values: []uint16{500}}
	s := NewSensor(0, 0, sampler, WithMultiplexer(7, nil))

	if err := s.Update(1); !errors.Is(err, ErrNoSelector) {
		t.Fatalf("expected ErrNoSelector, got %v", err)
	}
	if sampler.calls != 0 {
		t.Errorf("must not read an unselected input, got %d reads", sampler.calls)
	}
	if s.Sum() != 0 || s.LastSample() != 0 {
		t.Errorf("failed update must not change state: sum=%d last=%d", s.Sum(), s.LastSample())
	}
}
