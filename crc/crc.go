// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package crc implements generic cyclic redundancy checks over GF(2).
//
// Polynomials and data are bit sequences, most significant bit first. A
// polynomial of degree n is n+1 bits long and its leading bit must be set:
// x^8+x^4+x^3+x^2+1 is
//
//	crc.Bits{1, 0, 0, 0, 1, 1, 1, 0, 1}
//
// Check divides a whole frame at once. Register, Framed and LFSR are the
// one-bit-per-clock equivalents.
package crc // import "github.com/go-lpc/aes3/crc"

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalid reports a remainder that does not reduce to zero.
	ErrInvalid = errors.New("crc: CRC not valid")

	errPoly = errors.New("crc: invalid polynomial")
)

// Bits is a sequence of bits, one bit (0 or 1) per element, most
// significant first.
type Bits []uint8

// FromUint returns the n least significant bits of v.
func FromUint(v uint64, n int) Bits {
	o := make(Bits, n)
	for i := range o {
		o[i] = uint8(v>>(n-1-i)) & 1
	}
	return o
}

// FromBytes returns the bits of p, most significant bit of p[0] first.
func FromBytes(p []byte) Bits {
	o := make(Bits, 0, 8*len(p))
	for _, v := range p {
		o = append(o, FromUint(uint64(v), 8)...)
	}
	return o
}

// Uint returns the value of the (at most 64) bits of b.
func (b Bits) Uint() uint64 {
	var v uint64
	for _, bit := range b {
		v = v<<1 | uint64(bit&1)
	}
	return v
}

// IsZero reports whether all bits are cleared.
func (b Bits) IsZero() bool {
	for _, bit := range b {
		if bit != 0 {
			return false
		}
	}
	return true
}

func (b Bits) String() string {
	var o strings.Builder
	o.Grow(len(b))
	for _, bit := range b {
		o.WriteByte('0' + bit&1)
	}
	return o.String()
}

func validPoly(poly Bits) error {
	switch {
	case len(poly) < 2:
		return fmt.Errorf("%w: degree must be at least 1 (len=%d)", errPoly, len(poly))
	case poly[0] != 1:
		return fmt.Errorf("%w: leading coefficient must be set (poly=%s)", errPoly, poly)
	}
	return nil
}

// Check divides data, followed by deg(poly) zero bits, by poly and returns
// the quotient and the remainder.
//
// If remainder is not nil it replaces the trailing zero bits: this is how an
// appended CRC field is verified. The division of a frame followed by its own
// remainder is exact, anything else returns ErrInvalid.
func Check(data, poly, remainder Bits) (quotient, rem Bits, err error) {
	err = validPoly(poly)
	if err != nil {
		return nil, nil, err
	}

	var (
		deg = len(poly) - 1
		n   = len(data)
		buf = make(Bits, n+deg)
	)
	copy(buf, data)
	if remainder != nil {
		if len(remainder) != deg {
			return nil, nil, fmt.Errorf(
				"crc: invalid remainder width (got=%d, want=%d)",
				len(remainder), deg,
			)
		}
		copy(buf[n:], remainder)
	}

	quotient = make(Bits, n)
	for i := 0; i < n; i++ {
		if buf[i]&1 == 0 {
			continue
		}
		quotient[i] = 1
		for j, p := range poly {
			buf[i+j] ^= p & 1
		}
	}
	rem = buf[n:]

	if remainder != nil && !rem.IsZero() {
		return quotient, rem, fmt.Errorf("crc: remainder %s does not reduce to zero (got=%s): %w",
			remainder, rem, ErrInvalid,
		)
	}

	return quotient, rem, nil
}
