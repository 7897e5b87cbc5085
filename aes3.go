// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aes3

import (
	"fmt"
	"math/bits"
)

const (
	AudioBits      = 24  // audio sample width
	WordBits       = 27  // audio + validity + user + channel-status
	SubframeBits   = 28  // WordBits + parity
	PreambleCells  = 4   // bit cells taken by a preamble
	FrameCells     = 64  // bit cells per frame (2 subframes)
	FramesPerBlock = 192 // frames per channel-status block

	AudioMask = 1<<AudioBits - 1
	WordMask  = 1<<WordBits - 1

	bitValidity      = 24
	bitUser          = 25
	bitChannelStatus = 26
	bitParity        = 27

	MinAudio = -(1 << (AudioBits - 1))
	MaxAudio = 1<<(AudioBits-1) - 1
)

// Preamble identifies the synchronisation pattern that starts a subframe.
type Preamble uint8

const (
	None Preamble = iota
	X             // channel 1 subframe
	Y             // channel 2 subframe
	Z             // channel 1 subframe, first frame of a block
)

// Preamble codes, as 8 half-cells shifted out LSB first, when the line level
// preceding the preamble is low. The codes violate the biphase-mark rule
// (three equal half-cells in a row) so they can not appear in data.
const (
	codeX = 0b01000111
	codeY = 0b00100111
	codeZ = 0b00010111
)

// Code returns the half-cell pattern of the preamble for a preceding line
// level of 0.
func (p Preamble) Code() uint8 {
	switch p {
	case X:
		return codeX
	case Y:
		return codeY
	case Z:
		return codeZ
	}
	return 0
}

// Inverted returns the half-cell pattern of the preamble for a preceding line
// level of 1.
func (p Preamble) Inverted() uint8 {
	if p == None {
		return 0
	}
	return ^p.Code()
}

// CodeFor returns the half-cell pattern to transmit after a line level.
func (p Preamble) CodeFor(level bool) uint8 {
	if level {
		return p.Inverted()
	}
	return p.Code()
}

func (p Preamble) String() string {
	switch p {
	case None:
		return "-"
	case X:
		return "X"
	case Y:
		return "Y"
	case Z:
		return "Z"
	}
	return fmt.Sprintf("Preamble(%d)", uint8(p))
}

// Subframe is the payload of one channel in a frame.
type Subframe struct {
	Audio         int32 // 24-bit two's complement sample
	Validity      bool
	User          bool
	ChannelStatus bool
}

// Word packs the subframe into its 27-bit wire representation:
// audio in bits 0-23, then validity, user and channel-status.
func (sf Subframe) Word() uint32 {
	w := uint32(sf.Audio) & AudioMask
	if sf.Validity {
		w |= 1 << bitValidity
	}
	if sf.User {
		w |= 1 << bitUser
	}
	if sf.ChannelStatus {
		w |= 1 << bitChannelStatus
	}
	return w
}

// Parity returns the parity bit that makes the 28-bit subframe even.
func (sf Subframe) Parity() bool {
	return Parity(sf.Word())
}

// SubframeFrom unpacks a 27 or 28-bit wire word. The parity bit, if any, is
// ignored.
func SubframeFrom(w uint32) Subframe {
	return Subframe{
		Audio:         SignExtend(w),
		Validity:      w>>bitValidity&1 == 1,
		User:          w>>bitUser&1 == 1,
		ChannelStatus: w>>bitChannelStatus&1 == 1,
	}
}

// Parity is the XOR-reduction of v.
func Parity(v uint32) bool {
	return bits.OnesCount32(v)&1 == 1
}

// SignExtend interprets the low 24 bits of w as a two's complement sample.
func SignExtend(w uint32) int32 {
	return int32(w<<(32-AudioBits)) >> (32 - AudioBits)
}

// Frame is a pair of subframes, as presented to the transmitter once per
// sample period.
type Frame struct {
	Ch1, Ch2 Subframe

	// Frame0 requests a Z preamble: it must be set once every
	// FramesPerBlock frames.
	Frame0 bool
}
