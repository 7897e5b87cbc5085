// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rx implements a cycle based model of an AES3 receiver.
//
// The receiver runs on a single oversampling clock, unrelated to the
// transmitter clock. Each Tick samples the line and advances, in order, the
// data recovery unit, the framer, the formatter and the output stage. All of
// them only see the outputs their upstream stage registered during the
// previous tick.
package rx // import "github.com/go-lpc/aes3/rx"

import (
	"github.com/go-lpc/aes3"
)

// Output is the state of the parallel side of the receiver.
type Output struct {
	Ch1, Ch2 Sample
	Enable   bool  // set for one tick when a new pair is available
	Frame    uint8 // index of the frame in its block
	Frame0   bool  // first frame of a block
	Locked   bool
}

// ParityError reports whether any of the two subframes failed the parity
// check.
func (o Output) ParityError() bool {
	return o.Ch1.ParityError || o.Ch2.ParityError
}

// Payload returns the decoded frame.
func (o Output) Payload() aes3.Frame {
	return aes3.Frame{
		Ch1:    o.Ch1.Subframe(),
		Ch2:    o.Ch2.Subframe(),
		Frame0: o.Frame0,
	}
}

// Stats are counters over the lifetime of a receiver.
type Stats struct {
	Frames       int64 // pairs emitted
	ParityErrors int64 // subframes failing the parity check
	Blocks       int64 // Z preambles decoded
	LockAcquired int64
	LockLost     int64
}

// EdgeFunc is called with the number of oversampling ticks between two
// consecutive edges of the line.
type EdgeFunc func(interval int)

// Receiver decodes an oversampled AES3 line.
type Receiver struct {
	dru  DRU
	fr   Framer
	fm   Formatter
	lock LockDetector

	ch1 Sample // channel 1, waiting for its channel 2
	out Output

	stats  Stats
	onEdge EdgeFunc
}

// NewReceiver returns a receiver in its reset state.
func NewReceiver() *Receiver {
	r := &Receiver{}
	r.Reset()
	return r
}

// Reset forces all the registers of the receiver to their initial value.
// Statistics are preserved.
func (r *Receiver) Reset() {
	r.dru.Reset()
	r.fr.Reset()
	r.fm.Reset()
	r.lock.Reset()
	r.ch1 = Sample{}
	r.out = Output{}
}

// OnEdge registers a function called on each edge detected on the line.
func (r *Receiver) OnEdge(f EdgeFunc) { r.onEdge = f }

// Output returns the registered outputs of the receiver.
func (r *Receiver) Output() Output {
	o := r.out
	o.Locked = r.lock.Locked()
	return o
}

// Locked reports whether the receiver is synchronized with the line.
func (r *Receiver) Locked() bool { return r.lock.Locked() }

// Period returns the half-cell period, in ticks, recovered from the line.
func (r *Receiver) Period() int { return r.dru.Period() }

// Stats returns the receiver counters.
func (r *Receiver) Stats() Stats { return r.stats }

// Tick samples the line, advances the receiver by one tick and returns its
// outputs. A new pair of subframes is available when Output.Enable is set.
func (r *Receiver) Tick(line bool) Output {
	var (
		dout, dvalid   = r.dru.Out()
		framed         = r.fr.Out()
		sample, c1, c2 = r.fm.Out()
		frame          = r.fm.Frame()
		wasLocked      = r.lock.Locked()
	)

	confirm := framed.Valid && framed.Preamble == aes3.Y
	locked := r.lock.Step(confirm)
	switch {
	case locked && !wasLocked:
		r.stats.LockAcquired++
	case !locked && wasLocked:
		r.stats.LockLost++
	}
	if framed.Valid && framed.Preamble == aes3.Z {
		r.stats.Blocks++
	}

	r.out.Enable = c2
	if c2 {
		r.out.Ch1 = r.ch1
		r.out.Ch2 = sample
		r.out.Frame = frame
		r.out.Frame0 = frame == 0

		r.stats.Frames++
		if r.ch1.ParityError {
			r.stats.ParityErrors++
		}
		if sample.ParityError {
			r.stats.ParityErrors++
		}
	}
	if c1 {
		r.ch1 = sample
	}

	interval, edge := r.dru.Step(line)
	if edge && r.onEdge != nil {
		r.onEdge(interval)
	}
	r.fr.Step(dout, dvalid)
	r.fm.Step(framed)

	return r.Output()
}
