// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command aes3-rx starts a TDAQ server decoding an AES3 line capture.
//
// Usage: aes3-rx [TDAQ-OPTIONS] FILE [METRICS-ADDR]
//
// The decoded frames are published on the /pcm output, one TDAQ frame per
// channel-status block. The /config command optionally carries the name of a
// YAML link configuration file.
// When METRICS-ADDR is given, the receiver statistics are served as
// Prometheus metrics on http://METRICS-ADDR/metrics.
package main // import "github.com/go-lpc/aes3/cmd/aes3-rx"

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/aes3/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	log.SetPrefix("aes3-rx: ")

	cmd := flags.New()
	if len(cmd.Args) == 0 {
		log.Fatalf("missing path to input line capture")
	}

	reg := prometheus.NewRegistry()
	dev := newDevice(cmd.Args[0], metrics.New(reg), log.Default())

	if len(cmd.Args) > 1 {
		go serveMetrics(cmd.Args[1], reg)
	}

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/pcm", dev.pcm)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Fatalf("error: %+v", err)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	err := http.ListenAndServe(addr, mux)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("could not serve metrics on %q: %+v", addr, err)
	}
}
