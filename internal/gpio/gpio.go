// Package gpio drives the analog multiplexer select lines.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Selector sets the multiplexer select lines.
type Selector interface {
	// Select drives SEL0..SEL3 with bits 0-3 of index.
	Select(index int) error

	// Close releases GPIO resources.
	Close() error
}

// SelectLines is the number of multiplexer select lines.
const SelectLines = 4

// MaxInput is the highest input index addressable with SelectLines lines.
const MaxInput = 1<<SelectLines - 1

// Default select line offsets (BCM numbering) for SEL0..SEL3.
var DefaultSelectPins = [SelectLines]int{2, 3, 4, 5}

// DefaultChip is the GPIO chip the select lines live on.
const DefaultChip = "gpiochip0"

// levels returns the line values for index, SEL0 first.
func levels(index int) []int {
	v := make([]int, SelectLines)
	for i := range v {
		v[i] = (index >> i) & 0x01
	}
	return v
}
