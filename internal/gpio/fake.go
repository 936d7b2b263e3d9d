package gpio

import "fmt"

var _ Selector = (*FakeSelector)(nil)

// FakeSelector is a test double that records select line changes.
type FakeSelector struct {
	// Selected contains every index passed to Select, in order.
	Selected []int

	// Lines holds the current SEL0..SEL3 levels.
	Lines [SelectLines]int

	// SelectError, if set, will be returned by Select.
	SelectError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeSelector creates a FakeSelector with all lines low.
func NewFakeSelector() *FakeSelector {
	return &FakeSelector{}
}

// Select records index and updates Lines.
func (f *FakeSelector) Select(index int) error {
	if f.SelectError != nil {
		return f.SelectError
	}
	if index < 0 || index > MaxInput {
		return fmt.Errorf("mux input %d out of range 0-%d", index, MaxInput)
	}
	f.Selected = append(f.Selected, index)
	copy(f.Lines[:], levels(index))
	return nil
}

// Close marks the selector as closed.
func (f *FakeSelector) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded selections.
func (f *FakeSelector) Reset() {
	f.Selected = nil
	f.Lines = [SelectLines]int{}
	f.Closed = false
	f.SelectError = nil
}
