// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metrics

import (
	"context"
	"testing"

	"github.com/go-lpc/aes3"
	"github.com/go-lpc/aes3/link"
	"github.com/go-lpc/aes3/rx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	frames := make([]aes3.Frame, aes3.FramesPerBlock)
	for i := range frames {
		frames[i] = aes3.Frame{
			Ch1:    aes3.Subframe{Audio: int32(i * 1000)},
			Ch2:    aes3.Subframe{Audio: int32(-i * 1000)},
			Frame0: i == 0,
		}
	}

	lb, err := link.New(link.Frames(frames))
	require.NoError(t, err)

	var (
		reg = prometheus.NewRegistry()
		m   = New(reg)
		smp = lb.Sampler()
		rcv = smp.Receiver()
		nop = func(rx.Output) error { return nil }
	)

	check := func() {
		t.Helper()
		stats := rcv.Stats()
		assert.Equal(t, float64(stats.Frames), testutil.ToFloat64(m.frames.WithLabelValues("a")))
		assert.Equal(t, float64(stats.ParityErrors), testutil.ToFloat64(m.parityErrors.WithLabelValues("a")))
		assert.Equal(t, float64(stats.Blocks), testutil.ToFloat64(m.blocks.WithLabelValues("a")))
		assert.Equal(t, float64(stats.LockAcquired), testutil.ToFloat64(m.lockAcquired.WithLabelValues("a")))
		assert.Equal(t, float64(stats.LockLost), testutil.ToFloat64(m.lockLost.WithLabelValues("a")))
	}

	require.NoError(t, lb.Run(context.Background(), 100, nop))
	m.Update("a", smp)
	check()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.locked.WithLabelValues("a")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.period.WithLabelValues("a")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.blocks.WithLabelValues("a")))

	require.NoError(t, lb.Run(context.Background(), 2*aes3.FramesPerBlock, nop))
	m.Update("a", smp)
	check()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.blocks.WithLabelValues("a")))
	// the channel-status bits are all zero, which is not a valid block.
	assert.Equal(t, int64(1), smp.StatusErrors(0))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusErrors.WithLabelValues("a", "1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusErrors.WithLabelValues("a", "2")))

	// updates without progress leave the counters untouched.
	m.Update("a", smp)
	check()

	n, err := testutil.GatherAndCount(reg, "aes3_rx_frames_total", "aes3_rx_locked")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReset(t *testing.T) {
	frames := make([]aes3.Frame, aes3.FramesPerBlock)
	for i := range frames {
		frames[i] = aes3.Frame{
			Ch1:    aes3.Subframe{Audio: int32(i * 3)},
			Ch2:    aes3.Subframe{Audio: int32(-i * 5)},
			Frame0: i == 0,
		}
	}

	var (
		m     = New(prometheus.NewRegistry())
		nop   = func(rx.Output) error { return nil }
		total = 0.0
		locks = 0.0
	)
	for _, n := range []int{200, 100} {
		lb, err := link.New(link.Frames(frames))
		require.NoError(t, err)
		require.NoError(t, lb.Run(context.Background(), n, nop))

		var (
			smp   = lb.Sampler()
			stats = smp.Receiver().Stats()
		)
		require.Greater(t, stats.Frames, int64(0))

		m.Reset("line")
		m.Update("line", smp)
		total += float64(stats.Frames)
		assert.Equal(t, total, testutil.ToFloat64(m.frames.WithLabelValues("line")), "frames=%d", n)
		locks += float64(stats.LockAcquired)
		assert.Equal(t, locks, testutil.ToFloat64(m.lockAcquired.WithLabelValues("line")), "frames=%d", n)
	}
}
