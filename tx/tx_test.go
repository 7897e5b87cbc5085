// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tx

import (
	"testing"

	"github.com/go-lpc/aes3"
	"github.com/go-lpc/aes3/chanstat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// latency is the offset, in half-cells, between the word enable latching a
// frame and the first half-cell of its channel 1 preamble.
const latency = 5

func TestClockDivider(t *testing.T) {
	var div ClockDivider
	nbp, nbit, nword := 0, 0, 0
	for i := 0; i < 2*MasterRatio; i++ {
		en := div.Tick()
		if en.Word {
			nword++
			assert.Equal(t, 0, i%MasterRatio, "tick %d", i)
			assert.True(t, en.Bit)
		}
		if en.Bit {
			nbit++
			assert.True(t, en.Biphase)
		}
		if en.Biphase {
			nbp++
		}
	}
	assert.Equal(t, 2*128, nbp)
	assert.Equal(t, 2*64, nbit)
	assert.Equal(t, 2, nword)
	assert.Equal(t, uint16(0), div.Count())

	div.Tick()
	div.Tick()
	assert.Equal(t, uint16(2), div.Count())
	div.Reset()
	assert.True(t, div.Tick().Word)
}

// halfCells runs an encoder over frames and returns the line level after
// each biphase enable.
func halfCells(frames []aes3.Frame) []bool {
	var (
		div   ClockDivider
		enc   = NewEncoder()
		cells []bool
		i     int
	)
	for n := 0; n < len(frames)*MasterRatio; n++ {
		en := div.Tick()
		var f aes3.Frame
		if en.Word {
			f = frames[i]
			i++
		}
		line := enc.Step(en, f)
		if en.Biphase {
			cells = append(cells, line)
		}
	}
	return cells
}

func checkSubframe(t require.TestingT, cells []bool, p int, pre aes3.Preamble, sf aes3.Subframe) {
	var code uint8
	for i := 0; i < 8; i++ {
		if cells[p+i] {
			code |= 1 << i
		}
	}
	require.Equal(t, pre.CodeFor(cells[p-1]), code, "preamble %v at %d", pre, p)

	w := sf.Word()
	if sf.Parity() {
		w |= 1 << aes3.WordBits
	}
	for j := 0; j < aes3.SubframeBits; j++ {
		c := p + 8 + 2*j
		require.NotEqual(t, cells[c-1], cells[c], "missing transition at start of bit %d", j)
		one := cells[c] != cells[c+1]
		require.Equal(t, w>>j&1 == 1, one, "bit %d of subframe at %d", j, p)
	}
}

func TestEncoder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sf := rapid.Custom(func(t *rapid.T) aes3.Subframe {
			return aes3.Subframe{
				Audio:         rapid.Int32Range(aes3.MinAudio, aes3.MaxAudio).Draw(t, "audio"),
				Validity:      rapid.Bool().Draw(t, "v"),
				User:          rapid.Bool().Draw(t, "u"),
				ChannelStatus: rapid.Bool().Draw(t, "c"),
			}
		})
		frames := make([]aes3.Frame, 6)
		for i := range frames {
			frames[i] = aes3.Frame{
				Ch1:    sf.Draw(t, "ch1"),
				Ch2:    sf.Draw(t, "ch2"),
				Frame0: rapid.Bool().Draw(t, "frame0"),
			}
		}

		cells := halfCells(frames)
		require.Len(t, cells, len(frames)*128)

		for k, f := range frames[:len(frames)-1] {
			p := latency + 128*k
			pre := aes3.X
			if f.Frame0 {
				pre = aes3.Z
			}
			checkSubframe(t, cells, p, pre, f.Ch1)
			checkSubframe(t, cells, p+64, aes3.Y, f.Ch2)
		}
	})
}

func TestEncoderReset(t *testing.T) {
	var (
		div ClockDivider
		enc = NewEncoder()
		f   = aes3.Frame{Ch1: aes3.Subframe{Audio: -1}, Frame0: true}
	)
	for i := 0; i < 3*MasterRatio; i++ {
		en := div.Tick()
		enc.Step(en, f)
	}
	enc.Reset()
	assert.Equal(t, NewEncoder(), enc)
	assert.False(t, enc.Line())
}

func TestTransmitter(t *testing.T) {
	var (
		n   int
		src = SourceFunc(func() aes3.Frame {
			n++
			return aes3.Frame{
				Ch1: aes3.Subframe{Audio: int32(n)},
				Ch2: aes3.Subframe{Audio: int32(-n)},
			}
		})
		cs chanstat.Block
	)
	for i := range cs[:chanstat.Size-1] {
		cs[i] = byte(3*i + 1)
	}
	cs.Seal()

	var (
		frames []aes3.Frame
		blocks = NewBlocks(src, &cs, nil)
		tx     = New(SourceFunc(func() aes3.Frame {
			f := blocks.NextFrame()
			frames = append(frames, f)
			return f
		}))
	)

	const nframes = aes3.FramesPerBlock + 3
	var cells []bool
	for i := 0; i < nframes*MasterRatio; i++ {
		line := tx.Tick()
		if i%4 == 0 {
			cells = append(cells, line)
		}
	}
	require.Equal(t, int64(nframes), tx.Frames())
	require.Len(t, frames, nframes)
	assert.Equal(t, 3, blocks.Index())

	for i, f := range frames {
		assert.Equal(t, i%aes3.FramesPerBlock == 0, f.Frame0, "frame %d", i)
		assert.Equal(t, cs.Bit(i%aes3.FramesPerBlock), f.Ch1.ChannelStatus, "frame %d", i)
		assert.False(t, f.Ch2.ChannelStatus, "frame %d", i)
		assert.Equal(t, int32(i+1), f.Ch1.Audio)
	}

	for _, k := range []int{0, 1, 191, 192, 193} {
		pre := aes3.X
		if frames[k].Frame0 {
			pre = aes3.Z
		}
		p := latency + 128*k
		checkSubframe(t, cells, p, pre, frames[k].Ch1)
		checkSubframe(t, cells, p+64, aes3.Y, frames[k].Ch2)
	}

	tx.Reset()
	assert.Equal(t, int64(0), tx.Frames())
	assert.False(t, tx.Line())
}
