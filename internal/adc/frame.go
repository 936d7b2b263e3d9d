package adc

import (
	"errors"
	"fmt"
	"io"
)

// Wire framing shared with the touch front-end firmware:
//
//	[SOF0][SOF1][LEN][CMD][payload...][CKS]
//
// LEN counts CMD plus payload. CKS is the XOR of LEN, CMD and every payload byte.
const (
	SOF0 = 0xAA
	SOF1 = 0x55

	CmdRead  = 0x20 // payload: [channel]
	CmdValue = 0x21 // payload: [channel][hi][lo]
)

// maxSync bounds how many stray bytes are skipped looking for a frame start.
const maxSync = 64

var (
	ErrChecksum = errors.New("adc: bad frame checksum")
	ErrNoFrame  = errors.New("adc: no frame start found")
)

func encodeFrame(cmd byte, payload []byte) []byte {
	length := byte(len(payload) + 1) // +1 for CMD byte
	cks := length ^ cmd
	for _, b := range payload {
		cks ^= b
	}

	out := make([]byte, 0, len(payload)+5)
	out = append(out, SOF0, SOF1, length, cmd)
	out = append(out, payload...)
	out = append(out, cks)
	return out
}

func decodeFrame(r io.Reader) (byte, []byte, error) {
	var one [1]byte
	synced := false
	prev := byte(0)
	for i := 0; i < maxSync; i++ {
		if _, err := io.ReadFull(r, one[:]); err != nil {
			return 0, nil, fmt.Errorf("read frame start: %w", err)
		}
		if prev == SOF0 && one[0] == SOF1 {
			synced = true
			break
		}
		prev = one[0]
	}
	if !synced {
		return 0, nil, ErrNoFrame
	}

	if _, err := io.ReadFull(r, one[:]); err != nil {
		return 0, nil, fmt.Errorf("read frame length: %w", err)
	}
	length := one[0]
	if length == 0 {
		return 0, nil, fmt.Errorf("adc: empty frame")
	}

	body := make([]byte, int(length)+1) // CMD + payload + CKS
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("read frame body: %w", err)
	}

	cks := length
	for _, b := range body[:length] {
		cks ^= b
	}
	if cks != body[length] {
		return 0, nil, ErrChecksum
	}

	return body[0], body[1:length], nil
}
