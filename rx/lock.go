// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rx

const (
	lockWidth = 13

	// LockTimeout is the number of ticks the lock is held without
	// confirmation.
	LockTimeout = 1<<lockWidth - 1
)

// LockDetector asserts the lock on each confirmation and releases it when
// no confirmation was seen for LockTimeout ticks.
type LockDetector struct {
	timeout uint16
	locked  bool
}

// Reset releases the lock.
func (ld *LockDetector) Reset() { *ld = LockDetector{} }

// Locked returns the state of the lock.
func (ld *LockDetector) Locked() bool { return ld.locked }

// Elapsed returns the number of ticks since the last confirmation.
func (ld *LockDetector) Elapsed() int { return int(ld.timeout) }

// Step advances the detector by one tick and returns the new lock state.
func (ld *LockDetector) Step(confirm bool) bool {
	next := *ld
	switch {
	case confirm:
		next.timeout = 0
		next.locked = true
	case ld.timeout == LockTimeout:
		next.timeout = 0
		next.locked = false
	default:
		next.timeout = ld.timeout + 1
	}
	*ld = next
	return ld.locked
}
