// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package crc

import (
	"fmt"
)

// Register divides a serial bit stream by a polynomial, one bit per Shift.
//
// It is the shift-register-and-conditional-XOR form of Check: after shifting
// a frame followed by deg(poly) zero bits, Remainder returns the same value
// as Check.
type Register struct {
	poly uint64 // polynomial without its leading term
	deg  int
	mask uint64
	reg  uint64
}

func newPoly(poly Bits) (low uint64, deg int, mask uint64, err error) {
	err = validPoly(poly)
	if err != nil {
		return 0, 0, 0, err
	}
	deg = len(poly) - 1
	if deg > 64 {
		return 0, 0, 0, fmt.Errorf("%w: degree %d too large for a serial register", errPoly, deg)
	}
	mask = ^uint64(0) >> (64 - deg)
	low = poly[1:].Uint() & mask
	return low, deg, mask, nil
}

// NewRegister returns a cleared register dividing by poly.
func NewRegister(poly Bits) (*Register, error) {
	low, deg, mask, err := newPoly(poly)
	if err != nil {
		return nil, err
	}
	return &Register{poly: low, deg: deg, mask: mask}, nil
}

// Degree returns the width of the register.
func (r *Register) Degree() int { return r.deg }

// Reset clears the register.
func (r *Register) Reset() { r.reg = 0 }

// Seed folds rem into the register. Seeding a cleared register loads rem;
// seeding a register that just divided a frame (and its deg(poly) zero bits)
// with that frame's remainder clears it.
func (r *Register) Seed(rem Bits) {
	r.reg ^= rem.Uint() & r.mask
}

// Shift clocks one bit into the register.
func (r *Register) Shift(bit uint8) {
	msb := r.reg >> (r.deg - 1) & 1
	r.reg = (r.reg<<1 | uint64(bit&1)) & r.mask
	if msb == 1 {
		r.reg ^= r.poly
	}
}

// Remainder returns the content of the register.
func (r *Register) Remainder() Bits { return FromUint(r.reg, r.deg) }

// Zero reports whether the register is cleared.
func (r *Register) Zero() bool { return r.reg == 0 }

// Framed runs a Register over a bit stream cut in frames of a fixed number
// of bits. The last deg(poly) bits of every frame are the CRC window; the
// position counter wraps at the end of each frame and the register is
// cleared there.
type Framed struct {
	reg Register
	n   int // frame length, in bits
	pos int // position in the current frame
	rem uint64
}

// NewFramed returns a framed CRC for frames of frameLen bits, CRC included.
func NewFramed(poly Bits, frameLen int) (*Framed, error) {
	reg, err := NewRegister(poly)
	if err != nil {
		return nil, err
	}
	if frameLen <= reg.deg {
		return nil, fmt.Errorf(
			"crc: frame length %d too short for a degree %d polynomial",
			frameLen, reg.deg,
		)
	}
	return &Framed{reg: *reg, n: frameLen}, nil
}

// Pos returns the position of the next bit in the current frame.
func (f *Framed) Pos() int { return f.pos }

// Reset restarts the current frame.
func (f *Framed) Reset() {
	f.reg.Reset()
	f.pos = 0
	f.rem = 0
}

func (f *Framed) data() int { return f.n - f.reg.deg }

func (f *Framed) next() {
	f.pos++
	if f.pos == f.n {
		f.Reset()
	}
}

// Generate passes data bits through while dividing them and, inside the
// CRC window, replaces the input with the remainder of the frame, most
// significant bit first.
func (f *Framed) Generate(in uint8) uint8 {
	defer f.next()

	if f.pos < f.data() {
		f.reg.Shift(in)
		return in & 1
	}

	if f.pos == f.data() {
		for i := 0; i < f.reg.deg; i++ {
			f.reg.Shift(0)
		}
		f.rem = f.reg.reg
	}
	i := f.pos - f.data()
	return uint8(f.rem>>(f.reg.deg-1-i)) & 1
}

// Verify divides every bit of the frame, CRC window included. On the last
// bit of a frame it reports end=true, with ErrInvalid if the received CRC
// does not match.
func (f *Framed) Verify(in uint8) (end bool, err error) {
	f.reg.Shift(in)
	if f.pos != f.n-1 {
		f.next()
		return false, nil
	}

	if !f.reg.Zero() {
		err = fmt.Errorf("crc: frame residue %s: %w", f.reg.Remainder(), ErrInvalid)
	}
	f.next()
	return true, err
}

// LFSR is the direct (non augmented) form of a CRC generator, with a preset
// value. The message bits are XORed into the feedback path, so the register
// holds the CRC as soon as the last message bit has been shifted. Shifting the
// CRC itself, most significant bit first, leaves the register cleared.
type LFSR struct {
	poly   uint64
	deg    int
	mask   uint64
	preset uint64
	reg    uint64
}

// NewLFSR returns a register dividing by poly, preset to preset.
func NewLFSR(poly Bits, preset uint64) (*LFSR, error) {
	low, deg, mask, err := newPoly(poly)
	if err != nil {
		return nil, err
	}
	l := &LFSR{poly: low, deg: deg, mask: mask, preset: preset & mask}
	l.Reset()
	return l, nil
}

// Reset loads the preset value.
func (l *LFSR) Reset() { l.reg = l.preset }

// Shift clocks one message bit.
func (l *LFSR) Shift(bit uint8) {
	fb := (l.reg>>(l.deg-1))&1 ^ uint64(bit&1)
	l.reg = (l.reg << 1) & l.mask
	if fb == 1 {
		l.reg ^= l.poly
	}
}

// Sum returns the current CRC value.
func (l *LFSR) Sum() uint64 { return l.reg }
