// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chanstat handles AES3 channel-status blocks.
//
// One channel-status bit is carried per subframe; the 192 bits of a block
// form 24 bytes, transmitted bit 0 of byte 0 first. The last byte is a CRC
// (CRCC) of the first 23 bytes, computed with the polynomial
// x^8+x^4+x^3+x^2+1 preset to all ones, in transmission order.
package chanstat // import "github.com/go-lpc/aes3/chanstat"

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/go-lpc/aes3"
	"github.com/go-lpc/aes3/crc"
)

const (
	// Size is the size of a channel-status block, in bytes.
	Size = aes3.FramesPerBlock / 8

	crccByte = Size - 1
	preset   = 0xff
)

var (
	// Poly is the CRCC generator polynomial, x^8+x^4+x^3+x^2+1.
	Poly = crc.Bits{1, 0, 0, 0, 1, 1, 1, 0, 1}

	// ErrCRCC is returned when the CRCC of a block does not match its content.
	ErrCRCC = errors.New("chanstat: invalid CRCC")
)

// Block is a 192-bit channel-status block.
type Block [Size]byte

// Bit returns the i-th transmitted bit of the block.
func (b *Block) Bit(i int) bool {
	return b[i/8]>>(i%8)&1 == 1
}

// SetBit sets the i-th transmitted bit of the block.
func (b *Block) SetBit(i int, v bool) {
	mask := byte(1) << (i % 8)
	if v {
		b[i/8] |= mask
		return
	}
	b[i/8] &^= mask
}

// Professional reports whether the block uses the professional format.
func (b *Block) Professional() bool { return b[0]&0x01 != 0 }

// NonAudio reports whether the audio words carry non-PCM data.
func (b *Block) NonAudio() bool { return b[0]&0x02 != 0 }

// Sampling frequencies of the professional format, byte 0 bits 6-7.
const (
	fsMask = 0xc0
	fs48k  = 0x80
	fs44k  = 0x40
	fs32k  = 0xc0
)

// NewProfessional returns a sealed professional block, PCM audio, with the
// sampling frequency set when rate is 48, 44.1 or 32 kHz.
func NewProfessional(rate int) Block {
	var b Block
	b[0] = 0x01
	switch rate {
	case 48000:
		b[0] |= fs48k
	case 44100:
		b[0] |= fs44k
	case 32000:
		b[0] |= fs32k
	}
	b.Seal()
	return b
}

// SampleRate returns the sampling frequency, in Hz, of a professional block.
// It returns 0 when the frequency is not indicated.
func (b *Block) SampleRate() int {
	if !b.Professional() {
		return 0
	}
	switch b[0] & fsMask {
	case fs48k:
		return 48000
	case fs44k:
		return 44100
	case fs32k:
		return 32000
	}
	return 0
}

// CRCC returns the CRCC of the first 23 bytes of the block.
func (b *Block) CRCC() byte { return Sum(b[:crccByte]) }

// Seal stores the CRCC into the last byte of the block.
func (b *Block) Seal() { b[crccByte] = b.CRCC() }

// Verify checks the CRCC of the block.
func (b *Block) Verify() error {
	lfsr := newLFSR()
	for _, v := range b {
		shiftByte(lfsr, v)
	}
	if lfsr.Sum() != 0 {
		return fmt.Errorf("chanstat: CRCC=0x%02x, want=0x%02x: %w", b[crccByte], b.CRCC(), ErrCRCC)
	}
	return nil
}

func (b Block) String() string {
	return fmt.Sprintf("%x", b[:])
}

// Sum returns the CRCC of data, bytes shifted LSB first.
func Sum(data []byte) byte {
	lfsr := newLFSR()
	for _, v := range data {
		shiftByte(lfsr, v)
	}
	return bits.Reverse8(byte(lfsr.Sum()))
}

func newLFSR() *crc.LFSR {
	lfsr, err := crc.NewLFSR(Poly, preset)
	if err != nil {
		panic(fmt.Errorf("chanstat: could not create CRCC register: %w", err))
	}
	return lfsr
}

func shiftByte(lfsr *crc.LFSR, v byte) {
	for i := 0; i < 8; i++ {
		lfsr.Shift(v >> i & 1)
	}
}
