// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/aes3"
	"github.com/go-lpc/aes3/capture"
	"github.com/go-lpc/aes3/chanstat"
	"github.com/go-lpc/aes3/diag"
	"github.com/go-lpc/aes3/internal/pcm"
	"github.com/go-lpc/aes3/link"
	"github.com/go-lpc/aes3/rx"
	"github.com/go-lpc/aes3/tx"
)

// frames transmitted after the input, to flush the receiver pipeline.
const tail = 2

type options struct {
	cfg     link.Config
	odir    string
	capture bool // write the line capture
	hist    bool // write the edge interval histogram
	msg     *log.Logger
}

type report struct {
	frames     int // frames transmitted from the input
	first      int // first input frame decoded
	mismatches int // decoded frames differing from the input, after settling
	stats      rx.Stats
	status     [2]chanstat.Block
}

func process(ctx context.Context, fname string, opts options) (report, error) {
	var rep report

	in, err := pcm.ReadFile(fname)
	if err != nil {
		return rep, fmt.Errorf("could not read input: %w", err)
	}
	frames := in.Frames
	if n := opts.cfg.Frames; n > 0 && n < len(frames) {
		frames = frames[:n]
	}
	if len(frames) == 0 {
		return rep, fmt.Errorf("no frame in input")
	}
	rep.frames = len(frames)

	var (
		name = strings.TrimSuffix(filepath.Base(fname), filepath.Ext(fname))
		msg  = opts.msg.With("link", name)
		cs   = chanstat.NewProfessional(in.Rate)
		n    = 0
		src  = tx.NewBlocks(tx.SourceFunc(func() aes3.Frame {
			defer func() { n++ }()
			if n >= len(frames) {
				return aes3.Frame{}
			}
			return frames[n]
		}), &cs, &cs)

		edges *diag.Edges
		lopts = []link.Option{
			link.WithLogger(msg),
			link.WithRatio(opts.cfg.Ratio),
		}
	)
	if opts.hist {
		h := opts.cfg.Histogram
		edges = diag.NewEdges(name+"-edges", h.Bins, h.Max)
		lopts = append(lopts, link.WithObserver(edges.Observe))
	}

	lb, err := link.New(src, lopts...)
	if err != nil {
		return rep, fmt.Errorf("could not create link: %w", err)
	}

	var capt *capture.Writer
	if opts.capture {
		f, err := os.Create(filepath.Join(opts.odir, name+".aes3"))
		if err != nil {
			return rep, fmt.Errorf("could not create line capture: %w", err)
		}
		capt = capture.NewWriter(f, uint32(in.Rate), 1<<16)
		defer func() {
			if err := f.Close(); err != nil {
				msg.Error("could not close line capture", "err", err)
			}
		}()
	}

	var (
		txr  = lb.Transmitter()
		smp  = lb.Sampler()
		outs []aes3.Frame
	)
	for i := 0; i < len(frames)+tail; i++ {
		select {
		case <-ctx.Done():
			return rep, ctx.Err()
		default:
		}
		for j := 0; j < tx.MasterRatio; j++ {
			line := txr.Tick()
			if capt != nil {
				err := capt.WriteSample(line)
				if err != nil {
					return rep, fmt.Errorf("could not write line capture: %w", err)
				}
			}
			for _, out := range smp.Push(line) {
				if !out.Locked {
					continue
				}
				outs = append(outs, out.Payload())
			}
		}
	}
	if capt != nil {
		err := capt.Flush()
		if err != nil {
			return rep, fmt.Errorf("could not flush line capture: %w", err)
		}
	}

	skip, first := align(frames, outs)
	if first < 0 {
		return rep, fmt.Errorf("could not align decoded frames (pairs=%d)", len(outs))
	}
	rep.first = first
	rep.stats = smp.Receiver().Stats()
	for i := range rep.status {
		rep.status[i], _ = smp.Status(i)
	}

	dec := pcm.Stream{
		Rate:   in.Rate,
		Depth:  in.Depth,
		Frames: make([]aes3.Frame, len(frames)),
	}
	for i, f := range outs[skip:] {
		if first+i >= len(dec.Frames) {
			break
		}
		dec.Frames[first+i] = f
	}
	for i := opts.cfg.Settle; i < len(frames); i++ {
		if !same(frames[i], dec.Frames[i]) {
			rep.mismatches++
		}
	}

	err = pcm.WriteFile(filepath.Join(opts.odir, name+"-rx.wav"), dec)
	if err != nil {
		return rep, fmt.Errorf("could not write decoded audio: %w", err)
	}

	if edges != nil {
		err = writeHist(filepath.Join(opts.odir, name+"-edges.yoda"), edges)
		if err != nil {
			return rep, err
		}
	}

	msg.Info("processed",
		"frames", rep.frames,
		"settle", opts.cfg.Settle,
		"first", rep.first,
		"mismatches", rep.mismatches,
		"parity", rep.stats.ParityErrors,
	)
	if rep.mismatches > 0 {
		return rep, fmt.Errorf("%d decoded frames differ from the input", rep.mismatches)
	}
	return rep, nil
}

// align returns the index of the first decoded frame matching the input, and
// the index of that frame in the input.
func align(frames, outs []aes3.Frame) (skip, first int) {
	const window = 8
	match := func(i, j int) bool {
		n := 0
		for ; i+n < len(outs) && j+n < len(frames) && n < window; n++ {
			if !same(outs[i+n], frames[j+n]) {
				return false
			}
		}
		return n == window || j+n == len(frames)
	}
	for i := range outs[:min(len(outs), 4)] {
		for j := range frames[:min(len(frames), 64)] {
			if match(i, j) {
				return i, j
			}
		}
	}
	return -1, -1
}

// same compares the audio content of two frames. Channel-status bits are
// inserted by the transmitter.
func same(a, b aes3.Frame) bool {
	eq := func(a, b aes3.Subframe) bool {
		return a.Audio == b.Audio && a.Validity == b.Validity && a.User == b.User
	}
	return eq(a.Ch1, b.Ch1) && eq(a.Ch2, b.Ch2)
}

func writeHist(fname string, edges *diag.Edges) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create histogram file: %w", err)
	}
	defer f.Close()

	err = edges.WriteYODA(f)
	if err != nil {
		return fmt.Errorf("could not write histogram: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close histogram file: %w", err)
	}
	return nil
}
