// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rx

import (
	"github.com/go-lpc/aes3"
)

// FramerOutput is a decoded byte, with the preamble that preceded it.
type FramerOutput struct {
	Byte     uint8
	Valid    bool
	Preamble aes3.Preamble // preamble of the subframe the byte starts, if any
}

// Framer finds the preambles in the stream of recovered half-cells and
// decodes the biphase-mark data that follows them into bytes, LSB first.
type Framer struct {
	sr    uint16 // last 9 half-cells, newest in bit 8
	deser uint8
	state bool // set on the second half-cell of a bit cell
	cnt   uint8
	xyz   aes3.Preamble

	out FramerOutput
}

// NewFramer returns a framer in its reset state.
func NewFramer() *Framer {
	return &Framer{}
}

// Reset clears all the framer registers.
func (f *Framer) Reset() { *f = Framer{} }

// Out returns the registered output of the framer.
func (f *Framer) Out() FramerOutput { return f.out }

// detect returns the preamble matching the last 8 half-cells, normalized to
// a preceding line level of 0.
func (f *Framer) detect() aes3.Preamble {
	pd := uint8(f.sr >> 1)
	if f.sr&1 == 1 {
		pd = ^pd
	}
	// all the preambles start with 3 ones, then a zero, and end with a zero.
	if pd&0x0f != 0x07 || pd&0x80 != 0 {
		return aes3.None
	}
	switch pd >> 4 & 0x7 {
	case 0b100:
		return aes3.X
	case 0b010:
		return aes3.Y
	case 0b001:
		return aes3.Z
	}
	return aes3.None
}

// Step advances the framer by one tick, with the registered output of the
// DRU.
func (f *Framer) Step(din, valid bool) {
	var (
		pre = f.detect()
		ce  = f.state && valid
		ld  = !f.state && valid && f.cnt == 7
	)

	next := *f
	if valid {
		next.sr = uint16(b2u(din))<<8 | f.sr>>1
		next.state = pre == aes3.None && !f.state

		switch {
		case pre != aes3.None:
			next.cnt = 0
			next.xyz = pre
		case ce:
			next.cnt = (f.cnt + 1) & 0x7
		}
		if pre == aes3.None && f.cnt == 7 {
			next.xyz = aes3.None
		}
	}

	if ce {
		bit := uint8(f.sr>>1^f.sr>>2) & 1
		next.deser = bit<<7 | f.deser>>1
	}

	if ld {
		next.out.Byte = f.deser
		next.out.Preamble = f.xyz
	}
	next.out.Valid = ld

	*f = next
}
