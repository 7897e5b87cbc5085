// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chanstat

import (
	"github.com/go-lpc/aes3"
)

// Collector reassembles channel-status blocks from the bits received with
// each frame. A block starts at frame 0; frames received out of sequence
// drop the block in progress.
type Collector struct {
	blk  Block
	next int // index of the next expected frame, -1 when unsynchronized
}

// NewCollector returns a collector waiting for the start of a block.
func NewCollector() *Collector {
	return &Collector{next: -1}
}

// Reset drops the block in progress.
func (c *Collector) Reset() {
	c.blk = Block{}
	c.next = -1
}

// Push records the channel-status bit received with frame. It returns the
// block and true when frame completes a block.
func (c *Collector) Push(frame uint8, bit bool) (Block, bool) {
	i := int(frame)
	switch {
	case i == 0:
		c.blk = Block{}
	case i != c.next:
		c.next = -1
		return Block{}, false
	}

	c.blk.SetBit(i, bit)
	c.next = i + 1
	if c.next < aes3.FramesPerBlock {
		return Block{}, false
	}

	c.next = -1
	return c.blk, true
}
