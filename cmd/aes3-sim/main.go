// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// aes3-sim transmits WAV files over simulated AES3 links.
//
// Each input file is encoded by an AES3 transmitter and decoded back by a
// receiver clocked at the ratio of the link configuration. The decoded audio
// is written to OUTPUT/NAME-rx.wav and compared with the input.
//
// Usage: aes3-sim [OPTIONS] FILE1.wav [FILE2.wav [FILE3.wav ...]]
//
// Example:
//
//	$> aes3-sim -c ./drift.yaml -o ./out --capture --hist ./testdata/sine.wav
//	aes3-sim: INFO lock acquired link=sine tick=5636 period=16
//	aes3-sim: INFO processed link=sine frames=768 settle=16 mismatches=0 parity=0
package main // import "github.com/go-lpc/aes3/cmd/aes3-sim"

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/aes3/link"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetPrefix("aes3-sim: ")

	var (
		cfgName = pflag.StringP("config", "c", "", "path to a YAML link configuration")
		oname   = pflag.StringP("output", "o", ".", "output directory")
		doCapt  = pflag.Bool("capture", false, "write the line capture of each input")
		doHist  = pflag.Bool("hist", false, "write the edge interval histogram of each input (YODA)")
		njobs   = pflag.IntP("jobs", "j", runtime.NumCPU(), "number of inputs processed concurrently")
		verbose = pflag.BoolP("verbose", "v", false, "enable verbose mode")
	)

	pflag.Usage = func() {
		fmt.Printf(`aes3-sim transmits WAV files over simulated AES3 links.

Usage: aes3-sim [OPTIONS] FILE1.wav [FILE2.wav [FILE3.wav ...]]

Example:

 $> aes3-sim -c ./drift.yaml -o ./out --capture --hist ./testdata/sine.wav

Options:
`)
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if pflag.NArg() == 0 {
		pflag.Usage()
		log.Fatalf("missing path to input WAV file")
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

	err := os.MkdirAll(*oname, 0755)
	if err != nil {
		log.Fatalf("could not create output directory: %+v", err)
	}

	opts := options{
		cfg:     cfg,
		odir:    *oname,
		capture: *doCapt,
		hist:    *doHist,
		msg:     log.Default(),
	}

	err = run(context.Background(), pflag.Args(), *njobs, opts)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(ctx context.Context, fnames []string, njobs int, opts options) error {
	grp, ctx := errgroup.WithContext(ctx)
	if njobs > 0 {
		grp.SetLimit(njobs)
	}

	for _, fname := range fnames {
		fname := fname
		grp.Go(func() error {
			_, err := process(ctx, fname, opts)
			if err != nil {
				return fmt.Errorf("could not process %q: %w", fname, err)
			}
			return nil
		})
	}

	return grp.Wait()
}
