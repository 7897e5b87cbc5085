// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diag provides diagnostics of an AES3 link.
package diag // import "github.com/go-lpc/aes3/diag"

import (
	"fmt"
	"io"
	"math"

	"go-hep.org/x/hep/hbook"
)

// Edges histograms the intervals between consecutive edges seen by a
// receiver, in oversampling ticks.
//
// On a healthy line, intervals cluster around 1, 2 and 3 times the
// half-cell period (bit cells carrying a one, a zero, and preamble
// violations).
type Edges struct {
	h *hbook.H1D
}

// NewEdges returns an edge interval histogram with bins bins over [0, max).
func NewEdges(name string, bins int, max float64) *Edges {
	h := hbook.NewH1D(bins, 0, max)
	h.Annotation()["name"] = name
	return &Edges{h: h}
}

// Observe records the interval between two edges. Observe can be used as
// a rx.EdgeFunc.
func (e *Edges) Observe(interval int) {
	e.h.Fill(float64(interval), 1)
}

// H1D returns the underlying histogram.
func (e *Edges) H1D() *hbook.H1D { return e.h }

// Count returns the number of intervals recorded in the bin containing v.
func (e *Edges) Count(v float64) int64 {
	bins := e.h.Binning.Bins
	for i := range bins {
		if bins[i].XMin() <= v && v < bins[i].XMax() {
			return bins[i].Entries()
		}
	}
	return 0
}

// Overflow returns the number of intervals beyond the histogram range.
func (e *Edges) Overflow() int64 {
	return e.h.Binning.Outflows[1].Entries()
}

// HalfCell returns the estimated duration of a biphase half-cell, in
// oversampling ticks: the center of the first populated bin. It returns
// NaN when no interval was recorded in range.
func (e *Edges) HalfCell() float64 {
	for _, bin := range e.h.Binning.Bins {
		if bin.Entries() > 0 {
			return bin.XMid()
		}
	}
	return math.NaN()
}

// WriteYODA writes the histogram to w in the YODA format.
func (e *Edges) WriteYODA(w io.Writer) error {
	raw, err := e.h.MarshalYODA()
	if err != nil {
		return fmt.Errorf("diag: could not marshal histogram %q: %w", e.h.Name(), err)
	}
	_, err = w.Write(raw)
	if err != nil {
		return fmt.Errorf("diag: could not write histogram %q: %w", e.h.Name(), err)
	}
	return nil
}
