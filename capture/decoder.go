// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-lpc/aes3/internal/crc16"
)

// Decoder reads (and validates) line captures from an underlying data
// source.
// Decoder computes CRC-16 checksums on the fly.
type Decoder struct {
	r io.Reader

	buf []byte
	err error
	crc crc16.Hash16
}

// NewDecoder creates a decoder that reads and validates data from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, hdrSize),
		crc: crc16.New(nil),
	}
}

// Decode reads the next record from the stream.
// Decode returns an error wrapping io.EOF when the stream ends on a record
// boundary.
func (dec *Decoder) Decode(rec *Record) error {
	dec.crc.Reset()

	v := dec.readU8()
	if dec.err != nil {
		return fmt.Errorf("capture: could not read record header marker: %w", dec.err)
	}
	if v != recHeader {
		return fmt.Errorf("capture: invalid record header marker (got=0x%x)", v)
	}

	hdr := dec.load(hdrSize)
	if dec.err != nil {
		return fmt.Errorf("capture: could not read record header: %w", dec.eof())
	}
	if hdr[0] != Version {
		return fmt.Errorf(
			"capture: invalid record version (got=%d, want=%d)",
			hdr[0], Version,
		)
	}
	rec.Rate = binary.BigEndian.Uint32(hdr[1 : 1+4])
	rec.Tick = binary.BigEndian.Uint64(hdr[5 : 5+8])
	n := int(binary.BigEndian.Uint32(hdr[13 : 13+4]))
	if n > MaxSamples {
		return fmt.Errorf(
			"capture: too many samples in record (got=%d, max=%d)",
			n, MaxSamples,
		)
	}

	data := dec.load(packedSize(n))
	if dec.err != nil {
		return fmt.Errorf("capture: could not read record data: %w", dec.eof())
	}
	if cap(rec.Line) < n {
		rec.Line = make([]bool, n)
	}
	rec.Line = rec.Line[:n]
	unpack(rec.Line, data)

	v = dec.readU8()
	if dec.err != nil {
		return fmt.Errorf("capture: could not read record trailer marker: %w", dec.eof())
	}
	if v != recTrailer {
		return fmt.Errorf("capture: invalid record trailer marker (got=0x%x)", v)
	}

	comp := dec.crc.Sum16()
	recv := dec.readU16()
	if dec.err != nil {
		return fmt.Errorf("capture: could not read CRC-16: %w", dec.eof())
	}
	if comp != recv {
		return fmt.Errorf(
			"capture: record at tick %d: recv=0x%04x comp=0x%04x: %w",
			rec.Tick, recv, comp, ErrChecksum,
		)
	}
	return nil
}

// eof turns a premature end of stream into io.ErrUnexpectedEOF.
func (dec *Decoder) eof() error {
	if errors.Is(dec.err, io.EOF) {
		dec.err = io.ErrUnexpectedEOF
	}
	return dec.err
}

func (dec *Decoder) readU8() uint8 {
	p := dec.load(1)
	if dec.err != nil {
		return 0
	}
	return p[0]
}

func (dec *Decoder) readU16() uint16 {
	p := dec.load(2)
	if dec.err != nil {
		return 0
	}
	return binary.BigEndian.Uint16(p)
}

// load reads n bytes from the stream and feeds them to the checksum.
func (dec *Decoder) load(n int) []byte {
	if dec.err != nil {
		return nil
	}
	if cap(dec.buf) < n {
		dec.buf = make([]byte, n)
	}
	dec.buf = dec.buf[:n]
	_, dec.err = io.ReadFull(dec.r, dec.buf)
	if dec.err != nil {
		return nil
	}
	_, _ = dec.crc.Write(dec.buf) // can not fail.
	return dec.buf
}
