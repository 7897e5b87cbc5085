// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tx

const (
	// MasterRatio is the master clock frequency, in units of the sample
	// rate (Fs).
	MasterRatio = 512

	divMask       = MasterRatio - 1
	biphasePeriod = 4 // 128 Fs: two half-cells per bit cell
	bitPeriod     = 8 // 64 Fs: 64 bit cells per frame
)

// Enables are the clock enables derived from the master clock.
type Enables struct {
	Biphase bool // once per half bit cell
	Bit     bool // once per bit cell
	Word    bool // once per frame (audio sample)
}

// ClockDivider derives the transmitter clock enables from a free running
// 9-bit counter clocked at 512 Fs.
type ClockDivider struct {
	count uint16
}

// Reset clears the counter; the next Tick asserts all the enables.
func (div *ClockDivider) Reset() { div.count = 0 }

// Count returns the current value of the counter.
func (div *ClockDivider) Count() uint16 { return div.count }

// Tick returns the enables for the current master clock period and advances
// the counter.
func (div *ClockDivider) Tick() Enables {
	c := div.count
	div.count = (c + 1) & divMask
	return Enables{
		Biphase: c%biphasePeriod == 0,
		Bit:     c%bitPeriod == 0,
		Word:    c == 0,
	}
}
