// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tx implements a cycle based model of an AES3 transmitter.
//
// The Encoder is clocked by the 512 Fs master clock and qualified by the
// enables of a ClockDivider. Subframes are latched once per sample period,
// on the word enable, and shifted out LSB first after their preamble.
// The output line is biphase-mark coded and changes at most once per
// biphase enable.
package tx // import "github.com/go-lpc/aes3/tx"

import (
	"github.com/go-lpc/aes3"
)

const (
	seqWidth = 37
	seqMask  = 1<<seqWidth - 1

	// positions in the bit sequencer, relative to the word enable.
	seqPreamble1 = 0  // X/Z preamble slot starts
	seqLoad1     = 1  // channel 1 shift register and preamble load
	seqData1     = 4  // channel 1 data starts
	seqPreamble2 = 32 // Y preamble slot starts
	seqLoad2     = 33 // channel 2 shift register and preamble load
	seqData2     = 36 // channel 2 data starts
)

// Encoder serializes frames onto a biphase-mark coded line.
//
// All fields are registers: Step computes their next values from their
// current values and commits them at once.
type Encoder struct {
	state  bool // set for the half-cell following a bit enable
	last   bool // line level at the end of the previous bit cell
	in1    uint32
	in2    uint32
	frame0 bool

	sr  uint32 // parity + 27-bit word, shifted out LSB first
	seq uint64 // one-hot sequencer, one step per bit enable
	pre uint8  // preamble half-cells, shifted out LSB first

	setXZ, setY, setCh1, setCh2 bool
	outXZ, outY, outCh1, outCh2 bool

	sdata bool
}

// NewEncoder returns an encoder in its reset state.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Reset forces all registers to their initial value.
func (enc *Encoder) Reset() {
	*enc = Encoder{}
}

// Line returns the current level of the serial output.
func (enc *Encoder) Line() bool { return enc.sdata }

// Step advances the encoder by one master clock period. The frame is only
// sampled when en.Word is asserted. Step returns the level of the line for
// the next period.
func (enc *Encoder) Step(en Enables, frame aes3.Frame) bool {
	var (
		parity1  = aes3.Parity(enc.in1)
		parity2  = aes3.Parity(enc.in2)
		preamble = enc.outXZ || enc.outY
		dout     = enc.sr&1 == 1
		b0, b1   bool
	)

	// biphase-mark candidates: b0 toggles the line, b1 adds the data bit.
	// During a preamble the half-cell pattern is sent verbatim.
	if preamble {
		dout = enc.pre&1 == 1
		b0 = dout
		b1 = dout
	} else {
		b0 = !enc.last
		b1 = b0 != dout
	}

	txd := b1
	if enc.state {
		txd = b0
	}

	next := *enc

	if en.Biphase {
		next.state = en.Bit
		next.sdata = txd
	}

	if en.Word {
		next.in1 = frame.Ch1.Word()
		next.in2 = frame.Ch2.Word()
		next.frame0 = frame.Frame0
	}

	if en.Bit {
		seq := enc.seq
		switch {
		case tap(seq, seqLoad1):
			next.sr = enc.in1 | bit(parity1)<<aes3.WordBits
		case tap(seq, seqLoad2):
			next.sr = enc.in2 | bit(parity2)<<aes3.WordBits
		case enc.outCh1 || enc.outCh2:
			next.sr = enc.sr >> 1
		}

		next.seq = (seq<<1 | uint64(bit(en.Word))) & seqMask

		next.setXZ = tap(seq, seqPreamble1)
		next.setCh1 = tap(seq, seqData1)
		next.setY = tap(seq, seqPreamble2)
		next.setCh2 = tap(seq, seqData2)

		switch {
		case enc.setXZ:
			next.outXZ = true
		case enc.setCh1:
			next.outXZ = false
		}
		switch {
		case enc.setCh1:
			next.outCh1 = true
		case enc.setY:
			next.outCh1 = false
		}
		switch {
		case enc.setY:
			next.outY = true
		case enc.setCh2:
			next.outY = false
		}
		switch {
		case enc.setCh2:
			next.outCh2 = true
		case enc.setXZ:
			next.outCh2 = false
		}

		next.last = b1
	}

	if en.Biphase {
		switch {
		case en.Bit && tap(enc.seq, seqLoad1):
			p := aes3.X
			if enc.frame0 {
				p = aes3.Z
			}
			next.pre = p.CodeFor(b1)
		case en.Bit && tap(enc.seq, seqLoad2):
			next.pre = aes3.Y.CodeFor(b1)
		default:
			next.pre = enc.pre >> 1
		}
	}

	*enc = next
	return enc.sdata
}

func tap(seq uint64, i uint) bool {
	return seq>>i&1 == 1
}

func bit(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
