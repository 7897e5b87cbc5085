// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bmc_test

import (
	"testing"

	"github.com/go-lpc/aes3"
	"github.com/go-lpc/aes3/bmc"
	"github.com/go-lpc/aes3/tx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncoder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bits := rapid.SliceOfN(rapid.Bool(), 1, 256).Draw(t, "bits")

		var (
			enc  bmc.Encoder
			got  []bool
			want = bmc.Encode(false, bits)
		)
		for _, bit := range bits {
			got = append(got, enc.Step(bit, true))
			got = append(got, enc.Step(bit, false))
		}
		require.Equal(t, want, got)

		enc.Reset()
		assert.False(t, enc.Line())
	})
}

func TestRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var (
			level = rapid.Bool().Draw(t, "level")
			bits  = rapid.SliceOfN(rapid.Bool(), 0, 256).Draw(t, "bits")
			cells = bmc.Encode(level, bits)
		)
		require.Len(t, cells, 2*len(bits))

		got, err := bmc.Decode(level, cells)
		require.NoError(t, err)
		if len(bits) == 0 {
			require.Empty(t, got)
		} else {
			require.Equal(t, bits, got)
		}
		require.Empty(t, bmc.Violations(level, cells))

		ones := 0
		for _, bit := range bits {
			if bit {
				ones++
			}
		}
		line := append([]bool{level}, cells...)
		require.Equal(t, len(bits)+ones, bmc.Transitions(line))

		// a one is DC balanced, a zero is not.
		for i, bit := range bits {
			b := bmc.Balance(cells[2*i : 2*i+2])
			if bit {
				require.Equal(t, 0, b)
			} else {
				require.Equal(t, 4, b*b)
			}
		}
	})
}

func TestDecodeErrors(t *testing.T) {
	_, err := bmc.Decode(false, []bool{true})
	assert.Error(t, err)

	bits, err := bmc.Decode(false, []bool{true, false, false, true})
	assert.ErrorIs(t, err, bmc.ErrViolation)
	assert.Equal(t, []bool{true}, bits)

	assert.Equal(t, []int{1, 2}, bmc.Violations(false, []bool{
		true, true, true, false, false, false, true, false,
	}))
}

func TestPreambles(t *testing.T) {
	for _, tc := range []struct {
		pre  aes3.Preamble
		want []int
	}{
		{aes3.X, []int{1, 2}},
		{aes3.Y, []int{1, 2}},
		{aes3.Z, []int{1, 3}},
	} {
		t.Run(tc.pre.String(), func(t *testing.T) {
			for _, level := range []bool{false, true} {
				code := tc.pre.CodeFor(level)
				cells := make([]bool, 8)
				for i := range cells {
					cells[i] = code>>i&1 == 1
				}
				assert.Equal(t, 0, bmc.Balance(cells))
				assert.Equal(t, tc.want, bmc.Violations(level, cells))
				// a preamble ends on the level it started from.
				assert.Equal(t, level, cells[7])
			}
		})
	}
}

func TestTransmitterLine(t *testing.T) {
	const nframes = 8

	n := 0
	src := tx.New(tx.SourceFunc(func() aes3.Frame {
		n++
		return aes3.Frame{
			Ch1:    aes3.Subframe{Audio: int32(n * 0x1235), Validity: n%2 == 0},
			Ch2:    aes3.Subframe{Audio: int32(-n), ChannelStatus: true},
			Frame0: n == 3,
		}
	}))

	var cells []bool
	for i := 0; i < nframes*tx.MasterRatio; i++ {
		line := src.Tick()
		if i%4 == 0 {
			cells = append(cells, line)
		}
	}

	const start = 5 // first half-cell of the first preamble
	level := cells[start-1]
	for k := 0; k < nframes-1; k++ {
		p := start + 128*k
		frame := cells[p : p+128]
		require.Equal(t, level, cells[p-1], "preamble polarity of frame %d", k)

		want := []int{1, 2, 33, 34}
		if k == 2 {
			want = []int{1, 3, 33, 34}
		}
		assert.Equal(t, want, bmc.Violations(level, frame), "frame %d", k)

		for _, off := range []int{0, 64} {
			bits, err := bmc.Decode(frame[off+7], frame[off+8:off+64])
			require.NoError(t, err, "frame %d", k)
			require.Len(t, bits, aes3.SubframeBits)

			var w uint32
			for i, bit := range bits {
				if bit {
					w |= 1 << i
				}
			}
			assert.False(t, aes3.Parity(w), "frame %d: parity", k)

			sf := aes3.Subframe{Audio: int32((k + 1) * 0x1235), Validity: (k+1)%2 == 0}
			if off != 0 {
				sf = aes3.Subframe{Audio: int32(-(k + 1)), ChannelStatus: true}
			}
			assert.Equal(t, sf, aes3.SubframeFrom(w), "frame %d, offset %d", k, off)
		}
	}
}
