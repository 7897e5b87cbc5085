// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rx

import (
	"math/rand"
	"testing"

	"github.com/go-lpc/aes3"
	"github.com/go-lpc/aes3/tx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randFrames(rnd *rand.Rand, n int) []aes3.Frame {
	frames := make([]aes3.Frame, n)
	for i := range frames {
		frames[i] = aes3.Frame{
			Ch1:    aes3.SubframeFrom(rnd.Uint32() & aes3.WordMask),
			Ch2:    aes3.SubframeFrom(rnd.Uint32() & aes3.WordMask),
			Frame0: i%aes3.FramesPerBlock == 0,
		}
	}
	return frames
}

// transmit returns the line levels, one per master clock tick.
func transmit(frames []aes3.Frame) []bool {
	i := 0
	src := tx.New(tx.SourceFunc(func() aes3.Frame {
		f := frames[i%len(frames)]
		i++
		return f
	}))
	line := make([]bool, len(frames)*tx.MasterRatio)
	for j := range line {
		line[j] = src.Tick()
	}
	return line
}

// halfCells returns the line levels, one per half-cell.
func halfCells(line []bool) []bool {
	cells := make([]bool, 0, len(line)/4)
	for i := 0; i < len(line); i += 4 {
		cells = append(cells, line[i])
	}
	return cells
}

func contains(s, sub []bool) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		ok := true
		for j := range sub {
			if s[i+j] != sub[j] {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func TestDRU(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	cells := halfCells(transmit(randFrames(rnd, 40)))

	for _, period := range []int{4, 5, 8, 13} {
		dru := NewDRU()
		assert.Equal(t, druMax+1, dru.Period())

		var (
			rec       []bool
			intervals []int
		)
		for _, c := range cells {
			for k := 0; k < period; k++ {
				if n, edge := dru.Step(c); edge {
					intervals = append(intervals, n)
				}
				if dout, valid := dru.Out(); valid {
					rec = append(rec, dout)
				}
			}
		}

		assert.Equal(t, period, dru.Period(), "period=%d", period)
		for _, n := range intervals[2:] {
			if n%period != 0 || n > 3*period {
				t.Fatalf("period=%d: invalid edge interval %d", period, n)
			}
		}

		require.Greater(t, len(rec), 2000)
		assert.True(t, contains(cells, rec[len(rec)-2000:]), "period=%d: recovered half-cells", period)

		// loss of signal.
		last := cells[len(cells)-1]
		for i := 0; i < 2*druMax; i++ {
			dru.Step(last)
		}
		assert.Equal(t, druMax+1, dru.Period())

		dru.Reset()
		assert.Equal(t, NewDRU(), dru)
	}
}

func TestFramerFormatter(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	frames := randFrames(rnd, 200)
	cells := halfCells(transmit(frames))

	for _, gap := range []int{1, 3} {
		var (
			fr  = NewFramer()
			fm  = NewFormatter()
			got []Sample
			idx []uint8
			ch  []int
		)
		for _, c := range cells {
			for k := 0; k < gap; k++ {
				valid := k == 0
				framed := fr.Out()
				sample, c1, c2 := fm.Out()
				switch {
				case c1:
					got = append(got, sample)
					idx = append(idx, fm.Frame())
					ch = append(ch, 1)
				case c2:
					got = append(got, sample)
					idx = append(idx, fm.Frame())
					ch = append(ch, 2)
				}
				fr.Step(c && valid, valid)
				fm.Step(framed)
			}
		}

		// the last channel 2 subframe is still in flight.
		require.Len(t, got, 2*len(frames)-1, "gap=%d", gap)
		for i, s := range got {
			f := frames[i/2]
			want, wantCh := f.Ch1, 1
			if i%2 == 1 {
				want, wantCh = f.Ch2, 2
			}
			require.Equal(t, wantCh, ch[i], "gap=%d subframe %d", gap, i)
			require.Equal(t, want, s.Subframe(), "gap=%d subframe %d", gap, i)
			require.False(t, s.ParityError, "gap=%d subframe %d", gap, i)
			require.Equal(t, uint8((i/2)%aes3.FramesPerBlock), idx[i], "gap=%d subframe %d", gap, i)
		}

		fr.Reset()
		fm.Reset()
		assert.Equal(t, NewFramer(), fr)
		assert.Equal(t, NewFormatter(), fm)
	}
}

func TestFramerPreambles(t *testing.T) {
	for _, tc := range []struct {
		name  string
		pre   aes3.Preamble
		level bool
	}{
		{"X", aes3.X, false}, {"X-inv", aes3.X, true},
		{"Y", aes3.Y, false}, {"Y-inv", aes3.Y, true},
		{"Z", aes3.Z, false}, {"Z-inv", aes3.Z, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fr := NewFramer()
			fr.Step(tc.level, true)
			code := tc.pre.CodeFor(tc.level)
			for i := 0; i < 8; i++ {
				fr.Step(code>>i&1 == 1, true)
			}
			require.Equal(t, tc.pre, fr.detect())

			fr.Step(false, true)
			assert.Equal(t, tc.pre, fr.xyz)
			assert.Equal(t, uint8(0), fr.cnt)
			assert.False(t, fr.state)
		})
	}
}

func TestFormatterParity(t *testing.T) {
	fm := NewFormatter()
	w := aes3.Subframe{Audio: -2, User: true, Validity: true}.Word()
	bytes := []FramerOutput{
		{Byte: uint8(w << 4), Valid: true, Preamble: aes3.Y},
		{Byte: uint8(w >> 4), Valid: true},
		{Byte: uint8(w >> 12), Valid: true},
		{Byte: uint8(w >> 20), Valid: true},
	}
	var (
		out Sample
		ch2 bool
	)
	for _, b := range append(bytes, FramerOutput{}, FramerOutput{}) {
		fm.Step(b)
		if s, c1, c2 := fm.Out(); c1 || c2 {
			out, ch2 = s, c2
		}
	}
	assert.True(t, ch2)
	assert.Equal(t, int32(-2), out.Audio)
	assert.True(t, out.User)
	assert.True(t, out.Validity)
	assert.False(t, out.ChannelStatus)
	assert.True(t, out.ParityError)
}

func TestLockDetector(t *testing.T) {
	var ld LockDetector
	assert.False(t, ld.Locked())
	for i := 0; i < 2*LockTimeout; i++ {
		require.False(t, ld.Step(false))
	}

	require.True(t, ld.Step(true))
	for i := 1; i <= LockTimeout; i++ {
		require.True(t, ld.Step(false), "tick %d", i)
		require.Equal(t, i, ld.Elapsed())
	}
	assert.False(t, ld.Step(false))
	assert.Equal(t, 0, ld.Elapsed())

	ld.Step(true)
	ld.Reset()
	assert.False(t, ld.Locked())
}

func TestReceiver(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	frames := randFrames(rnd, 2*aes3.FramesPerBlock+10)
	line := transmit(frames)

	var (
		r      = NewReceiver()
		edges  int
		got    []Output
		last   = -1 // tick of the last lock confirmation
		drop   = -1
		locked bool
		period int
		idle   bool
	)
	r.OnEdge(func(n int) {
		edges++
		if edges > 2 && !idle {
			assert.Contains(t, []int{4, 8, 12}, n)
		}
	})

	for i := 0; i < len(line)+2*LockTimeout; i++ {
		lvl := false
		if i < len(line) {
			lvl = line[i]
		}
		idle = i >= len(line)
		if o := r.fr.Out(); o.Valid && o.Preamble == aes3.Y {
			last = i
		}
		out := r.Tick(lvl)
		if out.Enable {
			got = append(got, out)
		}
		if locked && !out.Locked {
			drop = i
		}
		locked = out.Locked
		if i == len(line)-1 {
			period = r.Period()
		}
	}

	assert.Greater(t, edges, 1024)
	assert.Equal(t, 4, period)
	assert.Equal(t, druMax+1, r.Period(), "loss of signal")

	// the first pair may lack its channel 1.
	var (
		first = -1
		skip  int
	)
loop:
	for j, out := range got[:2] {
		for i, f := range frames {
			if out.Payload().Ch1 == f.Ch1 && out.Payload().Ch2 == f.Ch2 {
				first, skip = i, j
				break loop
			}
		}
	}
	require.NotEqual(t, -1, first, "first decoded pair not found")
	require.Less(t, first, 20)

	// the channel 2 subframe of the last frame is cut short.
	n := len(frames) - 1 - first
	require.Len(t, got, skip+n+1)

	nerrs := 0
	for _, out := range got {
		if out.Ch1.ParityError {
			nerrs++
		}
		if out.Ch2.ParityError {
			nerrs++
		}
	}

	for j, out := range got[skip : skip+n] {
		i := first + j
		want := frames[i]
		assert.Equal(t, want.Ch1, out.Ch1.Subframe(), "frame %d", i)
		assert.Equal(t, want.Ch2, out.Ch2.Subframe(), "frame %d", i)
		assert.False(t, out.ParityError(), "frame %d", i)
		assert.True(t, out.Locked, "frame %d", i)
		if i >= aes3.FramesPerBlock {
			assert.Equal(t, uint8(i%aes3.FramesPerBlock), out.Frame, "frame %d", i)
			assert.Equal(t, want.Frame0, out.Frame0, "frame %d", i)
		}
	}

	require.NotEqual(t, -1, drop)
	assert.Equal(t, LockTimeout+1, drop-last)
	assert.False(t, r.Locked())

	stats := r.Stats()
	assert.Equal(t, int64(len(got)), stats.Frames)
	assert.Equal(t, int64(nerrs), stats.ParityErrors)
	assert.Equal(t, int64(1), stats.LockAcquired)
	assert.Equal(t, int64(1), stats.LockLost)
	assert.Equal(t, int64(2), stats.Blocks)

	r.Reset()
	assert.Equal(t, Output{}, r.Output())
	assert.Equal(t, stats, r.Stats())
}
