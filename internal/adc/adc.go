// Package adc reads capacitive touch values from the front-end
// microcontroller over a serial link.
package adc

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// ErrTimeout is returned when the front-end does not answer in time.
var ErrTimeout = errors.New("adc: read timeout")

// SerialSampler requests one reading per call over a framed serial protocol.
// Not safe for concurrent use.
type SerialSampler struct {
	rw     io.ReadWriter
	closer io.Closer
}

// NewSerialSampler speaks the frame protocol over rw.
func NewSerialSampler(rw io.ReadWriter) *SerialSampler {
	s := &SerialSampler{rw: rw}
	if c, ok := rw.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Open opens the named serial device. A read that sees no data for timeout
// fails with ErrTimeout.
func Open(name string, baud int, timeout time.Duration) (*SerialSampler, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("reset input buffer: %w", err)
	}
	return &SerialSampler{rw: timeoutPort{port}, closer: port}, nil
}

// Read asks the front-end for channel's current raw value.
func (s *SerialSampler) Read(channel int) (uint16, error) {
	if channel < 0 || channel > 0xFF {
		return 0, fmt.Errorf("channel %d out of range", channel)
	}

	if _, err := s.rw.Write(encodeFrame(CmdRead, []byte{byte(channel)})); err != nil {
		return 0, fmt.Errorf("write read request: %w", err)
	}

	cmd, payload, err := decodeFrame(s.rw)
	if err != nil {
		return 0, err
	}
	if cmd != CmdValue || len(payload) != 3 {
		return 0, fmt.Errorf("adc: unexpected reply cmd=0x%02x len=%d", cmd, len(payload))
	}
	if int(payload[0]) != channel {
		return 0, fmt.Errorf("adc: reply for channel %d, want %d", payload[0], channel)
	}

	return uint16(payload[1])<<8 | uint16(payload[2]), nil
}

// Close closes the underlying port, if it can be closed.
func (s *SerialSampler) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// timeoutPort turns the (0, nil) that serial.Port returns on a read timeout
// into ErrTimeout, so io.ReadFull does not spin.
type timeoutPort struct {
	serial.Port
}

func (p timeoutPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == nil {
		return 0, ErrTimeout
	}
	return n, err
}
