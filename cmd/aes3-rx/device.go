// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-daq/tdaq"
	"github.com/go-lpc/aes3"
	"github.com/go-lpc/aes3/capture"
	"github.com/go-lpc/aes3/internal/metrics"
	"github.com/go-lpc/aes3/link"
	"github.com/go-lpc/aes3/rx"
)

// Flags of a decoded pair on the /pcm output.
const (
	flagFrame0 = 1 << iota
	flagLocked
	flagParity1
	flagParity2
)

var errNotInitialized = errors.New("line capture not initialized")

type device struct {
	name string // line capture

	cfg link.Config
	msg *log.Logger
	mon *metrics.Metrics

	f   *os.File
	r   *capture.Reader
	smp *link.Sampler
	eof bool

	n    int // pairs published
	outs []rx.Output
	data chan []byte
}

func newDevice(name string, mon *metrics.Metrics, msg *log.Logger) *device {
	return &device{
		name: name,
		cfg:  link.DefaultConfig(),
		msg:  msg,
		mon:  mon,
	}
}

func (dev *device) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	dev.cfg = link.DefaultConfig()
	if len(req.Body) == 0 {
		return nil
	}

	dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
	fname := dec.ReadStr()
	if fname == "" {
		return nil
	}

	cfg, err := link.ReadConfig(fname)
	if err != nil {
		ctx.Msg.Errorf("could not read link configuration %q: %+v", fname, err)
		return fmt.Errorf("could not read link configuration %q: %w", fname, err)
	}
	dev.cfg = cfg
	ctx.Msg.Infof("link configuration %q: ratio=%v", fname, cfg.Ratio)
	return nil
}

func (dev *device) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	err := dev.open()
	if err != nil {
		ctx.Msg.Errorf("could not open line capture %q: %+v", dev.name, err)
		return fmt.Errorf("could not open line capture %q: %w", dev.name, err)
	}
	return nil
}

func (dev *device) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	err := dev.open()
	if err != nil {
		ctx.Msg.Errorf("could not reopen line capture %q: %+v", dev.name, err)
		return fmt.Errorf("could not reopen line capture %q: %w", dev.name, err)
	}
	return nil
}

func (dev *device) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	if dev.smp == nil {
		ctx.Msg.Errorf("could not start run: line capture %q not initialized", dev.name)
		return fmt.Errorf("could not start run: line capture %q not initialized", dev.name)
	}
	return nil
}

func (dev *device) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	n := dev.n
	ctx.Msg.Debugf("received /stop command... -> n=%d", n)
	if dev.smp != nil {
		stats := dev.smp.Receiver().Stats()
		ctx.Msg.Infof(
			"frames=%d parity-errors=%d blocks=%d lock-lost=%d",
			stats.Frames, stats.ParityErrors, stats.Blocks, stats.LockLost,
		)
	}
	return nil
}

func (dev *device) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return dev.close()
}

func (dev *device) pcm(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-dev.data:
		dst.Body = data
	}
	return nil
}

func (dev *device) run(ctx tdaq.Context) error {
	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		default:
		}

		outs, err := dev.next(aes3.FramesPerBlock)
		switch {
		case errors.Is(err, io.EOF):
			if len(outs) == 0 {
				ctx.Msg.Infof("end of line capture %q (pairs=%d)", dev.name, dev.n)
				<-ctx.Ctx.Done()
				return nil
			}
		case err != nil:
			ctx.Msg.Errorf("could not decode line capture %q: %+v", dev.name, err)
			return fmt.Errorf("could not decode line capture %q: %w", dev.name, err)
		}

		select {
		case <-ctx.Ctx.Done():
			return nil
		case dev.data <- encode(outs):
			dev.n += len(outs)
		}
	}
}

func (dev *device) open() error {
	err := dev.close()
	if err != nil {
		return err
	}

	f, err := os.Open(dev.name)
	if err != nil {
		return fmt.Errorf("could not open line capture: %w", err)
	}

	smp, err := link.NewSampler(
		link.WithLogger(dev.msg),
		link.WithRatio(dev.cfg.Ratio),
	)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("could not create receiver: %w", err)
	}

	dev.f = f
	dev.r = capture.NewReader(f)
	dev.smp = smp
	if dev.mon != nil {
		dev.mon.Reset(dev.name)
	}
	dev.eof = false
	dev.n = 0
	dev.data = make(chan []byte, 16)
	return nil
}

func (dev *device) close() error {
	if dev.f == nil {
		return nil
	}
	err := dev.f.Close()
	dev.f = nil
	if err != nil {
		return fmt.Errorf("could not close line capture: %w", err)
	}
	return nil
}

// next decodes the line capture until n locked pairs are collected.
// next returns io.EOF, with the pairs collected so far, at the end of the
// capture.
func (dev *device) next(n int) ([]rx.Output, error) {
	dev.outs = dev.outs[:0]
	if dev.smp == nil {
		return nil, errNotInitialized
	}
	if dev.eof {
		return nil, io.EOF
	}
	if dev.mon != nil {
		defer dev.mon.Update(dev.name, dev.smp)
	}

	for len(dev.outs) < n {
		line, err := dev.r.ReadSample()
		if err != nil {
			if errors.Is(err, io.EOF) {
				dev.eof = true
			}
			return dev.outs, err
		}
		for _, out := range dev.smp.Push(line) {
			if !out.Locked {
				continue
			}
			dev.outs = append(dev.outs, out)
		}
	}
	return dev.outs, nil
}

// encode packs decoded pairs into the payload of a /pcm frame.
func encode(outs []rx.Output) []byte {
	buf := new(bytes.Buffer)
	enc := tdaq.NewEncoder(buf)
	enc.WriteU32(uint32(len(outs)))
	for _, out := range outs {
		var flags uint8
		if out.Frame0 {
			flags |= flagFrame0
		}
		if out.Locked {
			flags |= flagLocked
		}
		if out.Ch1.ParityError {
			flags |= flagParity1
		}
		if out.Ch2.ParityError {
			flags |= flagParity2
		}
		enc.WriteU8(out.Frame)
		enc.WriteU8(flags)
		enc.WriteU32(out.Ch1.Subframe().Word())
		enc.WriteU32(out.Ch2.Subframe().Word())
	}
	return buf.Bytes()
}
