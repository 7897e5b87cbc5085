// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rx

const (
	druWidth = 10
	druMax   = 1<<druWidth - 1
)

// DRU is a data recovery unit: it recovers the half-cells of a biphase-mark
// line oversampled by an unrelated clock.
//
// The shortest interval between two edges is tracked over periods of 1024
// edges and taken as the half-cell period for the next period. The line is
// then sampled once per period plus one tick, counted from the last edge.
//
// With a non-integer number of ticks per half-cell the shortest interval is
// one tick below the mean. Sampling with the longer period, early in the
// half-cell, keeps exactly one sample per half-cell for runs of up to 3
// half-cells as long as a half-cell lasts at least 3 ticks.
type DRU struct {
	ffs  uint8  // last 3 line samples, newest in bit 0
	minc uint16 // ticks since the last edge, saturated
	capt uint16 // shortest interval of the current update period
	hold uint16 // shortest interval of the previous update period
	upd  uint16 // edges in the current update period
	smp  uint16 // ticks since the last edge or sample period (hold+2 ticks)

	dout  bool
	valid bool
}

// NewDRU returns a data recovery unit in its reset state.
func NewDRU() *DRU {
	var dru DRU
	dru.Reset()
	return &dru
}

// Reset forces the recovered state to its worst-case values.
func (dru *DRU) Reset() {
	*dru = DRU{minc: druMax, capt: druMax, hold: druMax}
}

// Out returns the recovered half-cell and whether it was sampled during the
// last tick.
func (dru *DRU) Out() (dout, valid bool) { return dru.dout, dru.valid }

// Period returns the half-cell period, in ticks, currently used to sample the
// line.
func (dru *DRU) Period() int { return int(dru.hold) + 1 }

// Step advances the DRU by one tick of the oversampling clock.
// On an edge of the line, Step returns the number of ticks since the
// previous edge.
func (dru *DRU) Step(din bool) (interval int, edge bool) {
	var (
		cur    = dru.ffs
		update = dru.upd == druMax
		newmin = dru.minc < dru.capt
		now    = dru.smp == dru.phase()
	)
	edge = (cur>>2^cur>>1)&1 == 1

	next := *dru
	next.ffs = (cur<<1 | uint8(b2u(din))) & 0x7

	switch {
	case edge:
		interval = int(dru.minc) + 1
		next.minc = 0
		switch {
		case update:
			next.capt = druMax
			next.hold = dru.capt
		case newmin:
			next.capt = dru.minc
		}
		next.upd = (dru.upd + 1) & druMax

	case dru.minc == druMax:
		// loss of signal.
		next.capt = druMax
		next.hold = druMax
		next.upd = 0

	default:
		next.minc = dru.minc + 1
	}

	switch {
	case edge, dru.smp > dru.hold:
		next.smp = 0
	default:
		next.smp = dru.smp + 1
	}

	if now {
		next.dout = cur>>2&1 == 1
	}
	next.valid = now

	*dru = next
	return interval, edge
}

// phase returns the sampling instant within a sample period.
func (dru *DRU) phase() uint16 {
	if dru.hold < 2 {
		return 0
	}
	return (dru.hold - 2) >> 1
}

func b2u(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
