// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// aes3-dump decodes and displays AES3 line captures.
//
// Usage: aes3-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> aes3-dump -n 3 ./testdata/line.aes3
//	=== capture "./testdata/line.aes3" ===
//	rate:     48000 Hz
//	ratio:         1/1
//	  frame=  1   ch1=   +4097 vuc=010 ch2=   -3855 vuc=000
//	  frame=  2   ch1=   +8194 vuc=000 ch2=   -7710 vuc=000
//	  frame=  3   ch1=  +12291 vuc=010 ch2=  -11565 vuc=000
//	[...]
//	ticks:     221184
//	pairs:        419
//	parity:         0
//	blocks:         2
//	lock-lost:      0
package main // import "github.com/go-lpc/aes3/cmd/aes3-dump"

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/aes3/capture"
	"github.com/go-lpc/aes3/link"
	"github.com/go-lpc/aes3/rx"
	"github.com/spf13/pflag"
)

func main() {
	log.SetPrefix("aes3-dump: ")

	var (
		cfgName = pflag.StringP("config", "c", "", "path to a YAML link configuration")
		nframes = pflag.IntP("frames", "n", -1, "maximum number of pairs to display per file (-1: all)")
		blocks  = pflag.BoolP("blocks", "b", false, "display channel-status blocks only")
		verbose = pflag.BoolP("verbose", "v", false, "enable verbose mode")
	)

	pflag.Usage = func() {
		fmt.Printf(`aes3-dump decodes and displays AES3 line captures.

Usage: aes3-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> aes3-dump -n 3 ./testdata/line.aes3
 === capture "./testdata/line.aes3" ===
 rate:     48000 Hz
 ratio:         1/1
   frame=  1   ch1=   +4097 vuc=010 ch2=   -3855 vuc=000
 [...]

Options:
`)
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if pflag.NArg() == 0 {
		pflag.Usage()
		log.Fatalf("missing path to input line capture")
	}

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg := link.DefaultConfig()
	if *cfgName != "" {
		var err error
		cfg, err = link.ReadConfig(*cfgName)
		if err != nil {
			log.Fatalf("could not read link configuration: %+v", err)
		}
	}

	opts := options{
		ratio:  cfg.Ratio,
		frames: *nframes,
		blocks: *blocks,
		msg:    log.Default(),
	}

	for _, fname := range pflag.Args() {
		err := process(os.Stdout, fname, opts)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

type options struct {
	ratio  link.Ratio
	frames int  // maximum number of pairs to display
	blocks bool // display channel-status blocks only
	msg    *log.Logger
}

func process(w io.Writer, fname string, opts options) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	smp, err := link.NewSampler(link.WithRatio(opts.ratio), link.WithLogger(opts.msg))
	if err != nil {
		return fmt.Errorf("could not create receiver: %w", err)
	}

	var (
		r     = capture.NewReader(f)
		rcv   = smp.Receiver()
		npair = 0
		nerrs [2]int64
		first = true
	)

	fmt.Fprintf(wbuf, "=== capture %q ===\n", fname)
loop:
	for {
		line, err := r.ReadSample()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break loop
			}
			return fmt.Errorf("could not read line capture: %w", err)
		}
		if first {
			first = false
			fmt.Fprintf(wbuf, "rate:  % 8d Hz\n", r.Rate())
			fmt.Fprintf(wbuf, "ratio: %11v\n", opts.ratio)
		}

		for _, out := range smp.Push(line) {
			if !out.Locked {
				continue
			}
			npair++
			if !opts.blocks && (opts.frames < 0 || npair <= opts.frames) {
				printPair(wbuf, out)
			}
			if out.Frame != 191 || rcv.Stats().Blocks == 0 {
				continue
			}
			for ch := range nerrs {
				if n := smp.StatusErrors(ch); n != nerrs[ch] {
					nerrs[ch] = n
					fmt.Fprintf(wbuf, "  block ch%d: invalid CRCC\n", ch+1)
					continue
				}
				if blk, ok := smp.Status(ch); ok {
					fmt.Fprintf(wbuf, "  block ch%d: pro=%v rate=%d %v\n",
						ch+1, blk.Professional(), blk.SampleRate(), blk,
					)
				}
			}
		}
	}

	stats := rcv.Stats()
	fmt.Fprintf(wbuf, "ticks:     % 8d\n", smp.Ticks())
	fmt.Fprintf(wbuf, "pairs:     % 8d\n", npair)
	fmt.Fprintf(wbuf, "parity:    % 8d\n", stats.ParityErrors)
	fmt.Fprintf(wbuf, "blocks:    % 8d\n", stats.Blocks)
	fmt.Fprintf(wbuf, "lock-lost: % 8d\n", stats.LockLost)

	return nil
}

func printPair(w io.Writer, out rx.Output) {
	mark := ' '
	if out.Frame0 {
		mark = 'Z'
	}
	vuc := func(s rx.Sample) string {
		b := []byte("000")
		for i, v := range []bool{s.Validity, s.User, s.ChannelStatus} {
			if v {
				b[i] = '1'
			}
		}
		return string(b)
	}
	fmt.Fprintf(w, "  frame=%3d %c ch1=%+8d vuc=%s ch2=%+8d vuc=%s",
		out.Frame, mark, out.Ch1.Audio, vuc(out.Ch1), out.Ch2.Audio, vuc(out.Ch2),
	)
	if out.ParityError() {
		fmt.Fprintf(w, " parity-error")
	}
	fmt.Fprintf(w, "\n")
}
