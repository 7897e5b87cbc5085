// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bmc provides biphase-mark line coding helpers.
//
// A biphase-mark line is described as a sequence of half-cells: every bit
// cell starts with a transition and carries a second transition, in its
// middle, when the bit is a one.
package bmc // import "github.com/go-lpc/aes3/bmc"

import (
	"errors"
	"fmt"
)

var (
	// ErrViolation is returned when a bit cell does not start with a
	// transition.
	ErrViolation = errors.New("bmc: coding violation")
)

// Encoder is a clocked biphase-mark encoder. The line toggles on each rising
// edge of the data clock and, when the data bit is set, on its falling edge.
type Encoder struct {
	dclk bool
	line bool
}

// Reset clears the encoder.
func (enc *Encoder) Reset() { *enc = Encoder{} }

// Line returns the current level of the line.
func (enc *Encoder) Line() bool { return enc.line }

// Step advances the encoder by one tick and returns the line level.
func (enc *Encoder) Step(din, dclk bool) bool {
	var (
		rising  = dclk && !enc.dclk
		falling = !dclk && enc.dclk
	)
	if rising || (falling && din) {
		enc.line = !enc.line
	}
	enc.dclk = dclk
	return enc.line
}

// Encode returns the half-cells of bits, for a line at level before the
// first bit cell.
func Encode(level bool, bits []bool) []bool {
	cells := make([]bool, 0, 2*len(bits))
	for _, bit := range bits {
		h1 := !level
		h2 := h1 != bit
		cells = append(cells, h1, h2)
		level = h2
	}
	return cells
}

// Decode returns the bits carried by cells, for a line at level before the
// first bit cell. Decode stops at the first coding violation.
func Decode(level bool, cells []bool) ([]bool, error) {
	if len(cells)%2 != 0 {
		return nil, fmt.Errorf("bmc: odd number of half-cells (%d)", len(cells))
	}
	bits := make([]bool, 0, len(cells)/2)
	for i := 0; i < len(cells); i += 2 {
		h1, h2 := cells[i], cells[i+1]
		if h1 == level {
			return bits, fmt.Errorf("bmc: bit cell %d: %w", i/2, ErrViolation)
		}
		bits = append(bits, h1 != h2)
		level = h2
	}
	return bits, nil
}

// Violations returns the indices of the bit cells that do not start with a
// transition, for a line at level before the first bit cell. A trailing
// half-cell is ignored.
func Violations(level bool, cells []bool) []int {
	var out []int
	for i := 0; i+1 < len(cells); i += 2 {
		if cells[i] == level {
			out = append(out, i/2)
		}
		level = cells[i+1]
	}
	return out
}

// Transitions returns the number of level changes in cells.
func Transitions(cells []bool) int {
	n := 0
	for i := 1; i < len(cells); i++ {
		if cells[i] != cells[i-1] {
			n++
		}
	}
	return n
}

// Balance returns the number of high half-cells minus the number of low
// half-cells.
func Balance(cells []bool) int {
	n := 0
	for _, c := range cells {
		if c {
			n++
		} else {
			n--
		}
	}
	return n
}
