// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rx

import (
	"github.com/go-lpc/aes3"
)

// Sample is a decoded subframe.
type Sample struct {
	Audio         int32
	Validity      bool
	User          bool
	ChannelStatus bool
	ParityError   bool
}

// Subframe returns the payload of the sample.
func (s Sample) Subframe() aes3.Subframe {
	return aes3.Subframe{
		Audio:         s.Audio,
		Validity:      s.Validity,
		User:          s.User,
		ChannelStatus: s.ChannelStatus,
	}
}

// Formatter reassembles the bytes of the framer into subframes and keeps
// track of the frame index within a block.
type Formatter struct {
	reg    uint32 // 28-bit subframe being assembled
	sub    bool   // set for a channel 2 subframe
	bytes  uint8  // one-hot position of the next byte
	ce     bool
	frames uint8

	out      Sample
	ch1, ch2 bool
}

// NewFormatter returns a formatter in its reset state.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Reset clears all the formatter registers.
func (fm *Formatter) Reset() { *fm = Formatter{} }

// Out returns the last completed subframe and whether it was completed during
// the last tick, for channel 1 or channel 2.
func (fm *Formatter) Out() (s Sample, ch1, ch2 bool) {
	return fm.out, fm.ch1, fm.ch2
}

// Frame returns the index of the current frame in its block.
func (fm *Formatter) Frame() uint8 { return fm.frames }

// Step advances the formatter by one tick, with the registered output of the
// framer.
func (fm *Formatter) Step(in FramerOutput) {
	var (
		pre = in.Preamble
		ld  = fm.ce && fm.bytes&0x8 != 0
	)

	next := *fm
	if in.Valid {
		din := uint32(in.Byte)
		switch {
		case pre != aes3.None:
			next.bytes = 1
			// the first 4 bits of the byte belong to the preamble.
			next.reg = fm.reg&^0xf | din>>4
		case fm.bytes&0x1 != 0:
			next.reg = fm.reg&^(0xff<<4) | din<<4
		case fm.bytes&0x2 != 0:
			next.reg = fm.reg&^(0xff<<12) | din<<12
		case fm.bytes&0x4 != 0:
			next.reg = fm.reg&^(0xff<<20) | din<<20
		}
		if pre == aes3.None {
			next.bytes = fm.bytes << 1 & 0xf
		}

		switch pre {
		case aes3.Y:
			next.sub = true
		case aes3.X:
			next.sub = false
			next.frames = (fm.frames + 1) % aes3.FramesPerBlock
		case aes3.Z:
			next.sub = false
			next.frames = 0
		}
	}

	if ld {
		next.out = Sample{
			Audio:         aes3.SignExtend(fm.reg),
			Validity:      fm.reg>>24&1 == 1,
			User:          fm.reg>>25&1 == 1,
			ChannelStatus: fm.reg>>26&1 == 1,
			ParityError:   aes3.Parity(fm.reg),
		}
	}
	next.ch1 = ld && !fm.sub
	next.ch2 = ld && fm.sub
	next.ce = in.Valid

	*fm = next
}
