// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tx

import (
	"github.com/go-lpc/aes3"
	"github.com/go-lpc/aes3/chanstat"
)

// Source provides the frames to transmit, one per sample period.
type Source interface {
	NextFrame() aes3.Frame
}

// SourceFunc adapts a function into a Source.
type SourceFunc func() aes3.Frame

func (f SourceFunc) NextFrame() aes3.Frame { return f() }

// Transmitter drives an Encoder with its own clock divider.
type Transmitter struct {
	div ClockDivider
	enc Encoder
	src Source

	frames int64
}

// New returns a transmitter pulling frames from src.
func New(src Source) *Transmitter {
	return &Transmitter{src: src}
}

// Reset forces the divider and the encoder to their initial state.
func (tx *Transmitter) Reset() {
	tx.div.Reset()
	tx.enc.Reset()
	tx.frames = 0
}

// Frames returns the number of frames pulled from the source.
func (tx *Transmitter) Frames() int64 { return tx.frames }

// Line returns the current level of the serial output.
func (tx *Transmitter) Line() bool { return tx.enc.Line() }

// Tick advances the transmitter by one master clock period and returns the
// line level.
func (tx *Transmitter) Tick() bool {
	en := tx.div.Tick()
	var frame aes3.Frame
	if en.Word {
		frame = tx.src.NextFrame()
		tx.frames++
	}
	return tx.enc.Step(en, frame)
}

// Blocks cuts the frames of a source into blocks of aes3.FramesPerBlock
// frames: it asserts Frame0 on the first frame of every block and, when a
// channel-status block is attached to a channel, replaces the channel-status
// bit of that channel with the bits of the block.
type Blocks struct {
	src    Source
	status [2]*chanstat.Block
	n      int
}

// NewBlocks returns a block-aligned view of src. ch1 and ch2 may be nil.
func NewBlocks(src Source, ch1, ch2 *chanstat.Block) *Blocks {
	return &Blocks{src: src, status: [2]*chanstat.Block{ch1, ch2}}
}

// Index returns the position of the next frame in its block.
func (b *Blocks) Index() int { return b.n }

func (b *Blocks) NextFrame() aes3.Frame {
	f := b.src.NextFrame()
	f.Frame0 = b.n == 0
	if cs := b.status[0]; cs != nil {
		f.Ch1.ChannelStatus = cs.Bit(b.n)
	}
	if cs := b.status[1]; cs != nil {
		f.Ch2.ChannelStatus = cs.Bit(b.n)
	}
	b.n = (b.n + 1) % aes3.FramesPerBlock
	return f
}
