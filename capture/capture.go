// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package capture reads and writes AES3 line captures.
//
// A capture is a sequence of records. Each record holds the levels of the
// line sampled at the transmitter master clock rate (512 samples per frame),
// packed 8 per byte, least significant bit first:
//
//	header  marker   0xb0
//	        version  uint8
//	        rate     uint32 frame rate, in Hz
//	        tick     uint64 index of the first sample
//	        samples  uint32 number of samples
//	data    (samples+7)/8 bytes
//	trailer marker   0xa0
//	        crc      uint16 CRC-16 of the record, markers included
//
// All integers are big-endian.
package capture // import "github.com/go-lpc/aes3/capture"

import (
	"errors"
)

const (
	// Version is the version of the capture format.
	Version = 1

	recHeader  = 0xb0 // record header marker
	recTrailer = 0xa0 // record trailer marker

	hdrSize = 1 + 4 + 8 + 4 // version, rate, tick, samples

	// MaxSamples is the maximum number of samples in a record.
	MaxSamples = 1 << 24
)

var (
	// ErrChecksum is returned when the CRC-16 of a record does not match
	// its content.
	ErrChecksum = errors.New("capture: invalid CRC-16")
)

// Record is a contiguous chunk of line samples.
type Record struct {
	Rate uint32 // frame rate, in Hz
	Tick uint64 // index of the first sample, in master clock ticks
	Line []bool // line levels
}

func packedSize(n int) int { return (n + 7) / 8 }

func pack(dst []byte, line []bool) {
	for i := range dst {
		dst[i] = 0
	}
	for i, v := range line {
		if v {
			dst[i/8] |= 1 << (i % 8)
		}
	}
}

func unpack(dst []bool, src []byte) {
	for i := range dst {
		dst[i] = src[i/8]>>(i%8)&1 == 1
	}
}
