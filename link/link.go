// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package link connects AES3 transmitters and receivers through an ideal
// line.
//
// The receiver clock runs at a rational ratio of the transmitter master
// clock: for each transmitter tick, the receiver is advanced by as many
// ticks as a phase accumulator allows. Both sides stay deterministic for a
// given ratio.
package link // import "github.com/go-lpc/aes3/link"

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/aes3"
	"github.com/go-lpc/aes3/chanstat"
	"github.com/go-lpc/aes3/rx"
	"github.com/go-lpc/aes3/tx"
)

// Sampler samples a line driven at the transmitter master clock rate with
// the clock of its receiver.
type Sampler struct {
	cfg config
	rx  *rx.Receiver
	acc int

	ticks  int64 // receiver ticks
	locked bool
	status [2]struct {
		col    *chanstat.Collector
		blk    chanstat.Block
		ok     bool
		errors int64
	}
	outs []rx.Output
}

// NewSampler returns a sampler for a line at the transmitter master clock
// rate.
func NewSampler(opts ...Option) (*Sampler, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.msg == nil {
		cfg.msg = log.New(io.Discard)
	}
	err := cfg.ratio.Validate()
	if err != nil {
		return nil, err
	}

	s := &Sampler{
		cfg: cfg,
		rx:  rx.NewReceiver(),
	}
	for i := range s.status {
		s.status[i].col = chanstat.NewCollector()
	}
	s.rx.OnEdge(cfg.onEdge)
	return s, nil
}

// Receiver returns the underlying receiver.
func (s *Sampler) Receiver() *rx.Receiver { return s.rx }

// Ticks returns the number of receiver ticks elapsed.
func (s *Sampler) Ticks() int64 { return s.ticks }

// Status returns the last channel-status block received on channel ch (0 or
// 1), and whether a complete block was received.
func (s *Sampler) Status(ch int) (chanstat.Block, bool) {
	return s.status[ch].blk, s.status[ch].ok
}

// StatusErrors returns the number of channel-status blocks with an invalid
// CRCC received on channel ch (0 or 1).
func (s *Sampler) StatusErrors(ch int) int64 {
	return s.status[ch].errors
}

// Push presents the line level for one transmitter tick and returns the
// pairs decoded meanwhile. The returned slice is only valid until the next
// call to Push.
func (s *Sampler) Push(line bool) []rx.Output {
	s.outs = s.outs[:0]
	s.acc += s.cfg.ratio.Num
	for s.acc >= s.cfg.ratio.Den {
		s.acc -= s.cfg.ratio.Den
		out := s.rx.Tick(line)
		s.ticks++
		s.watch(out)
		if out.Enable {
			s.outs = append(s.outs, out)
		}
	}
	return s.outs
}

func (s *Sampler) watch(out rx.Output) {
	msg := s.cfg.msg
	switch {
	case out.Locked && !s.locked:
		msg.Info("lock acquired", "tick", s.ticks, "period", s.rx.Period())
	case !out.Locked && s.locked:
		msg.Warn("lock lost", "tick", s.ticks)
	}
	s.locked = out.Locked

	if !out.Enable {
		return
	}
	if out.ParityError() {
		msg.Debug("parity error", "tick", s.ticks, "frame", out.Frame)
	}
	if out.Frame0 {
		msg.Debug("block start", "tick", s.ticks)
	}

	// frame indices are meaningless until a Z preamble was decoded.
	if !out.Locked || s.rx.Stats().Blocks == 0 {
		return
	}
	for i, cs := range []bool{out.Ch1.ChannelStatus, out.Ch2.ChannelStatus} {
		st := &s.status[i]
		blk, ok := st.col.Push(out.Frame, cs)
		if !ok {
			continue
		}
		err := blk.Verify()
		if err != nil {
			st.errors++
			msg.Warn("invalid channel status", "channel", i+1, "block", blk, "err", err)
			continue
		}
		st.blk = blk
		st.ok = true
		msg.Debug("channel status", "channel", i+1, "block", blk)
	}
}

// Loopback drives a receiver with the line of a transmitter.
type Loopback struct {
	tx *tx.Transmitter
	rx *Sampler
}

// New returns a loopback transmitting the frames of src.
func New(src tx.Source, opts ...Option) (*Loopback, error) {
	smp, err := NewSampler(opts...)
	if err != nil {
		return nil, err
	}
	return &Loopback{
		tx: tx.New(src),
		rx: smp,
	}, nil
}

// Transmitter returns the transmitting side of the loopback.
func (lb *Loopback) Transmitter() *tx.Transmitter { return lb.tx }

// Sampler returns the receiving side of the loopback.
func (lb *Loopback) Sampler() *Sampler { return lb.rx }

// Step advances the transmitter by one master clock tick and the receiver
// accordingly. It returns the pairs decoded meanwhile; the slice is only
// valid until the next call to Step.
func (lb *Loopback) Step() []rx.Output {
	return lb.rx.Push(lb.tx.Tick())
}

// Run transmits nframes frames and passes the decoded pairs to sink.
func (lb *Loopback) Run(ctx context.Context, nframes int, sink func(rx.Output) error) error {
	for i := 0; i < nframes; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		for j := 0; j < tx.MasterRatio; j++ {
			for _, out := range lb.Step() {
				err := sink(out)
				if err != nil {
					return fmt.Errorf("link: could not process frame: %w", err)
				}
			}
		}
	}
	return nil
}

// Frames returns a source replaying frames in a loop.
func Frames(frames []aes3.Frame) tx.Source {
	i := 0
	return tx.SourceFunc(func() aes3.Frame {
		f := frames[i%len(frames)]
		i++
		return f
	})
}
