package adc

import "errors"

// FakeSampler is a test double that returns scripted readings per channel.
type FakeSampler struct {
	// Readings maps a channel to the values returned by successive reads.
	// When a script is exhausted its last value repeats.
	Readings map[int][]uint16

	// index tracks the position in each channel's script
	index map[int]int

	// Reads counts calls per channel.
	Reads map[int]int

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeSampler creates a FakeSampler with no scripts.
func NewFakeSampler() *FakeSampler {
	return &FakeSampler{
		Readings: make(map[int][]uint16),
		index:    make(map[int]int),
		Reads:    make(map[int]int),
	}
}

// Script sets the readings for channel and rewinds it.
func (f *FakeSampler) Script(channel int, values ...uint16) {
	f.Readings[channel] = values
	f.index[channel] = 0
}

// Read returns the next scripted value for channel.
func (f *FakeSampler) Read(channel int) (uint16, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}

	values := f.Readings[channel]
	if len(values) == 0 {
		return 0, errors.New("no readings configured")
	}

	f.Reads[channel]++
	i := f.index[channel]
	if i < len(values)-1 {
		f.index[channel]++
	}
	return values[i], nil
}
