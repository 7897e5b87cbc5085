// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package capture

import (
	"errors"
	"fmt"
	"io"
)

// Writer writes line samples one at a time, in records of a fixed size.
type Writer struct {
	enc  *Encoder
	rec  Record
	size int
	tick uint64
}

// NewWriter returns a writer for a line at frame rate rate, flushing records
// of size samples.
func NewWriter(w io.Writer, rate uint32, size int) *Writer {
	if size <= 0 || size > MaxSamples {
		size = MaxSamples
	}
	return &Writer{
		enc:  NewEncoder(w),
		rec:  Record{Rate: rate, Line: make([]bool, 0, min(size, 1<<16))},
		size: size,
	}
}

// Ticks returns the number of samples written so far.
func (w *Writer) Ticks() uint64 { return w.tick }

// WriteSample appends the line level for one master clock tick.
func (w *Writer) WriteSample(line bool) error {
	w.rec.Line = append(w.rec.Line, line)
	w.tick++
	if len(w.rec.Line) < w.size {
		return nil
	}
	return w.Flush()
}

// Flush writes the buffered samples as a record.
func (w *Writer) Flush() error {
	if len(w.rec.Line) == 0 {
		return nil
	}
	err := w.enc.Encode(&w.rec)
	if err != nil {
		return err
	}
	w.rec.Tick += uint64(len(w.rec.Line))
	w.rec.Line = w.rec.Line[:0]
	return nil
}

// Reader reads line samples one at a time.
type Reader struct {
	dec  *Decoder
	rec  Record
	pos  int
	tick uint64
	init bool
}

// NewReader returns a reader of the line capture r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: NewDecoder(r)}
}

// Rate returns the frame rate of the capture, in Hz. It is zero until the
// first sample was read.
func (r *Reader) Rate() uint32 { return r.rec.Rate }

// Ticks returns the master clock tick of the next sample.
func (r *Reader) Ticks() uint64 { return r.tick }

// ReadSample returns the line level for the next master clock tick.
// ReadSample returns io.EOF at the end of the capture.
func (r *Reader) ReadSample() (bool, error) {
	for r.pos >= len(r.rec.Line) {
		err := r.next()
		if err != nil {
			return false, err
		}
	}
	v := r.rec.Line[r.pos]
	r.pos++
	r.tick++
	return v, nil
}

func (r *Reader) next() error {
	rate := r.rec.Rate
	err := r.dec.Decode(&r.rec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return err
	}
	r.pos = 0
	if !r.init {
		r.tick = r.rec.Tick
		r.init = true
		return nil
	}
	switch {
	case r.rec.Rate != rate:
		return fmt.Errorf(
			"capture: inconsistent frame rate at tick %d (got=%d, want=%d)",
			r.rec.Tick, r.rec.Rate, rate,
		)
	case r.rec.Tick != r.tick:
		return fmt.Errorf(
			"capture: missing samples (got tick=%d, want=%d)",
			r.rec.Tick, r.tick,
		)
	}
	return nil
}
