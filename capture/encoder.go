// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package capture

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-lpc/aes3/internal/crc16"
)

// Encoder writes line captures to an output stream.
// Encoder computes the CRC-16 checksum of each record on the fly and
// appends it at the end of the record.
type Encoder struct {
	w   io.Writer
	buf []byte
	err error
	crc crc16.Hash16
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, 8),
		crc: crc16.New(nil),
	}
}

func (enc *Encoder) crcw(p []byte) {
	_, _ = enc.crc.Write(p) // can not fail.
}

// Encode writes the record to the stream, followed by its CRC-16 checksum.
func (enc *Encoder) Encode(rec *Record) error {
	if rec == nil {
		return nil
	}
	if len(rec.Line) > MaxSamples {
		return fmt.Errorf(
			"capture: too many samples in record (got=%d, max=%d)",
			len(rec.Line), MaxSamples,
		)
	}

	enc.crc.Reset()

	enc.writeU8(recHeader)
	if enc.err != nil {
		return fmt.Errorf("capture: could not write record header marker: %w", enc.err)
	}

	enc.writeU8(Version)
	enc.writeU32(rec.Rate)
	enc.writeU64(rec.Tick)
	enc.writeU32(uint32(len(rec.Line)))

	enc.reserve(packedSize(len(rec.Line)))
	data := enc.buf[:packedSize(len(rec.Line))]
	pack(data, rec.Line)
	enc.write(data)

	enc.writeU8(recTrailer)
	enc.writeU16(enc.crc.Sum16())

	if enc.err != nil {
		return fmt.Errorf("capture: could not write record: %w", enc.err)
	}
	return nil
}

func (enc *Encoder) write(p []byte) {
	if enc.err != nil {
		return
	}
	_, enc.err = enc.w.Write(p)
	enc.crcw(p)
}

func (enc *Encoder) writeU8(v uint8) {
	const n = 1
	enc.buf[0] = v
	enc.write(enc.buf[:n])
}

func (enc *Encoder) writeU16(v uint16) {
	const n = 2
	binary.BigEndian.PutUint16(enc.buf[:n], v)
	enc.write(enc.buf[:n])
}

func (enc *Encoder) writeU32(v uint32) {
	const n = 4
	binary.BigEndian.PutUint32(enc.buf[:n], v)
	enc.write(enc.buf[:n])
}

func (enc *Encoder) writeU64(v uint64) {
	const n = 8
	binary.BigEndian.PutUint64(enc.buf[:n], v)
	enc.write(enc.buf[:n])
}

func (enc *Encoder) reserve(n int) {
	if cap(enc.buf) < n {
		enc.buf = append(enc.buf[:len(enc.buf)], make([]byte, n-len(enc.buf))...)
	}
}
