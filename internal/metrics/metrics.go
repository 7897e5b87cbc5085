// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics exports the statistics of AES3 links as Prometheus
// metrics.
package metrics // import "github.com/go-lpc/aes3/internal/metrics"

import (
	"sync"

	"github.com/go-lpc/aes3/link"
	"github.com/go-lpc/aes3/rx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of a set of links, labeled by
// link name.
type Metrics struct {
	frames       *prometheus.CounterVec
	parityErrors *prometheus.CounterVec
	blocks       *prometheus.CounterVec
	lockAcquired *prometheus.CounterVec
	lockLost     *prometheus.CounterVec
	statusErrors *prometheus.CounterVec // channel-status blocks with an invalid CRCC

	locked *prometheus.GaugeVec
	period *prometheus.GaugeVec // recovered half-cell period, in receiver ticks

	mu   sync.Mutex
	prev map[string]state
}

type state struct {
	stats  rx.Stats
	status [2]int64
}

// New creates the link collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	var (
		auto   = promauto.With(reg)
		labels = []string{"link"}
	)
	return &Metrics{
		frames: auto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aes3_rx_frames_total",
				Help: "Number of frames decoded by the receiver",
			},
			labels,
		),
		parityErrors: auto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aes3_rx_parity_errors_total",
				Help: "Number of subframes failing the parity check",
			},
			labels,
		),
		blocks: auto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aes3_rx_blocks_total",
				Help: "Number of block starts (Z preambles) decoded",
			},
			labels,
		),
		lockAcquired: auto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aes3_rx_lock_acquired_total",
				Help: "Number of times the receiver acquired lock",
			},
			labels,
		),
		lockLost: auto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aes3_rx_lock_lost_total",
				Help: "Number of times the receiver lost lock",
			},
			labels,
		),
		statusErrors: auto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aes3_rx_channel_status_errors_total",
				Help: "Number of channel-status blocks with an invalid CRCC",
			},
			[]string{"link", "channel"},
		),
		locked: auto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aes3_rx_locked",
				Help: "Whether the receiver is locked (1) or not (0)",
			},
			labels,
		),
		period: auto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aes3_rx_period_ticks",
				Help: "Recovered half-cell period, in receiver ticks",
			},
			labels,
		),
		prev: make(map[string]state),
	}
}

// Update records the current state of the link name, sampled by smp.
func (m *Metrics) Update(name string, smp *link.Sampler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		rcv  = smp.Receiver()
		cur  = state{stats: rcv.Stats()}
		prev = m.prev[name]
	)
	for i := range cur.status {
		cur.status[i] = smp.StatusErrors(i)
	}

	add := func(c *prometheus.CounterVec, cur, prev int64) {
		if cur > prev {
			c.WithLabelValues(name).Add(float64(cur - prev))
		}
	}
	add(m.frames, cur.stats.Frames, prev.stats.Frames)
	add(m.parityErrors, cur.stats.ParityErrors, prev.stats.ParityErrors)
	add(m.blocks, cur.stats.Blocks, prev.stats.Blocks)
	add(m.lockAcquired, cur.stats.LockAcquired, prev.stats.LockAcquired)
	add(m.lockLost, cur.stats.LockLost, prev.stats.LockLost)
	for i, ch := range []string{"1", "2"} {
		if n := cur.status[i] - prev.status[i]; n > 0 {
			m.statusErrors.WithLabelValues(name, ch).Add(float64(n))
		}
	}

	locked := 0.0
	if rcv.Locked() {
		locked = 1
	}
	m.locked.WithLabelValues(name).Set(locked)
	m.period.WithLabelValues(name).Set(float64(rcv.Period()))

	m.prev[name] = cur
}

// Reset forgets the state recorded for the link name. It must be called when
// the sampler of the link is replaced, as a new sampler counts from zero.
func (m *Metrics) Reset(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.prev, name)
}
