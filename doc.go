// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package aes3 holds the data model shared by the AES3 (AES/EBU) transmitter
// and receiver.
//
// An AES3 line carries frames of two subframes. Each subframe is a 4 cell
// preamble followed by 28 bit cells: 24 bits of audio (LSB first), the
// validity, user and channel-status bits and an even parity bit. The line is
// biphase-mark coded: every bit cell starts with a transition and a 1 adds a
// second transition in the middle of the cell.
//
// The transmitter (package tx) and the receiver (package rx) are cycle based
// models: every call to their Step/Tick methods is one master clock edge.
package aes3 // import "github.com/go-lpc/aes3"

import (
	"fmt"
	"runtime/debug"
)

// Version returns the version of aes3 and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	const root = "github.com/go-lpc/aes3"
	for _, m := range b.Deps {
		if m.Path != root {
			continue
		}
		if m.Replace != nil {
			switch {
			case m.Replace.Version != "" && m.Replace.Path != "":
				return fmt.Sprintf("%s %s", m.Replace.Path, m.Replace.Version), m.Replace.Sum
			case m.Replace.Version != "":
				return m.Replace.Version, m.Replace.Sum
			case m.Replace.Path != "":
				return m.Replace.Path, m.Replace.Sum
			default:
				return m.Version + "*", ""
			}
		}
		return m.Version, m.Sum
	}
	return "", ""
}
