// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-lpc/aes3/rx"
	"gopkg.in/yaml.v3"
)

// Ratio is the number of receiver clock ticks per transmitter master clock
// tick, as a fraction.
type Ratio struct {
	Num int `yaml:"num"`
	Den int `yaml:"den"`
}

// Float returns the value of the ratio.
func (r Ratio) Float() float64 { return float64(r.Num) / float64(r.Den) }

func (r Ratio) String() string { return fmt.Sprintf("%d/%d", r.Num, r.Den) }

// Validate checks the receiver gets at least 3 ticks per half-cell, and that
// a frame fits in the lock timeout.
func (r Ratio) Validate() error {
	switch {
	case r.Num <= 0 || r.Den <= 0:
		return fmt.Errorf("link: invalid clock ratio %v", r)
	case 4*r.Num < 3*r.Den:
		return fmt.Errorf("link: clock ratio %v too low (min=3/4)", r)
	case r.Num >= 16*r.Den:
		return fmt.Errorf("link: clock ratio %v too high (max<16)", r)
	}
	return nil
}

// Histogram configures the edge interval histogram.
type Histogram struct {
	Bins int     `yaml:"bins"`
	Max  float64 `yaml:"max"`
}

// Config is the configuration of a simulated link.
type Config struct {
	Ratio     Ratio     `yaml:"ratio"`
	Frames    int       `yaml:"frames"` // frames to transmit
	Settle    int       `yaml:"settle"` // frames dropped while the receiver locks
	Histogram Histogram `yaml:"histogram"`
}

// DefaultConfig returns a configuration for 2 blocks at nominal rate.
func DefaultConfig() Config {
	return Config{
		Ratio:     Ratio{Num: 1, Den: 1},
		Frames:    2 * 192,
		Settle:    16,
		Histogram: Histogram{Bins: 64, Max: 64},
	}
}

// Validate checks the configuration.
func (cfg Config) Validate() error {
	err := cfg.Ratio.Validate()
	if err != nil {
		return err
	}
	switch {
	case cfg.Frames < 0:
		return fmt.Errorf("link: invalid number of frames (%d)", cfg.Frames)
	case cfg.Settle < 0:
		return fmt.Errorf("link: invalid number of settle frames (%d)", cfg.Settle)
	case cfg.Histogram.Bins <= 0 || cfg.Histogram.Max <= 0:
		return fmt.Errorf(
			"link: invalid histogram (bins=%d, max=%v)",
			cfg.Histogram.Bins, cfg.Histogram.Max,
		)
	}
	return nil
}

// LoadConfig decodes a YAML configuration from r. Missing fields keep their
// default value.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("link: could not decode config: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ReadConfig loads the YAML configuration file fname.
func ReadConfig(fname string) (Config, error) {
	f, err := os.Open(fname)
	if err != nil {
		return Config{}, fmt.Errorf("link: could not open config file: %w", err)
	}
	defer f.Close()

	return LoadConfig(f)
}

type config struct {
	msg    *log.Logger
	ratio  Ratio
	onEdge rx.EdgeFunc
}

func newConfig() config {
	return config{
		msg:   log.New(io.Discard),
		ratio: Ratio{Num: 1, Den: 1},
	}
}

// Option configures a link.
type Option func(*config)

// WithLogger sets the logger used to report the state of the link.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithRatio sets the receiver clock, relative to the transmitter master
// clock.
func WithRatio(r Ratio) Option {
	return func(cfg *config) {
		cfg.ratio = r
	}
}

// WithObserver registers a function called with the interval between two
// consecutive edges seen by the receiver, in receiver ticks.
func WithObserver(f rx.EdgeFunc) Option {
	return func(cfg *config) {
		cfg.onEdge = f
	}
}
