// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pcm converts between WAV audio streams and AES3 frames.
package pcm // import "github.com/go-lpc/aes3/internal/pcm"

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/go-lpc/aes3"
)

const wavePCM = 1 // WAVE_FORMAT_PCM

var errInvalidWAV = errors.New("pcm: not a valid WAV file")

// Stream is a stereo PCM stream.
type Stream struct {
	Rate   int          // sample rate, in Hz
	Depth  int          // bits per sample of the source
	Frames []aes3.Frame // samples, scaled to 24 bits
}

// Read decodes a WAV stream. Mono streams are copied on both channels;
// channels beyond the second are dropped.
func Read(r io.ReadSeeker) (Stream, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Stream{}, errInvalidWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Stream{}, fmt.Errorf("pcm: could not decode WAV samples: %w", err)
	}

	var (
		nchans = int(dec.NumChans)
		depth  = int(dec.BitDepth)
	)
	switch {
	case nchans <= 0:
		return Stream{}, fmt.Errorf("pcm: invalid number of channels (%d)", nchans)
	case !validDepth(depth):
		return Stream{}, fmt.Errorf("pcm: invalid bit depth (%d)", depth)
	}

	s := Stream{
		Rate:   int(dec.SampleRate),
		Depth:  depth,
		Frames: make([]aes3.Frame, len(buf.Data)/nchans),
	}
	for i := range s.Frames {
		var (
			ch1 = buf.Data[i*nchans]
			ch2 = ch1
		)
		if nchans > 1 {
			ch2 = buf.Data[i*nchans+1]
		}
		s.Frames[i] = aes3.Frame{
			Ch1:    aes3.Subframe{Audio: to24(ch1, depth)},
			Ch2:    aes3.Subframe{Audio: to24(ch2, depth)},
			Frame0: i%aes3.FramesPerBlock == 0,
		}
	}
	return s, nil
}

// ReadFile decodes the WAV file fname.
func ReadFile(fname string) (Stream, error) {
	f, err := os.Open(fname)
	if err != nil {
		return Stream{}, fmt.Errorf("pcm: could not open WAV file: %w", err)
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return s, fmt.Errorf("pcm: could not read %q: %w", fname, err)
	}
	return s, nil
}

// Write encodes the stereo stream s as a WAV stream with s.Depth bits per
// sample.
func Write(w io.WriteSeeker, s Stream) error {
	if !validDepth(s.Depth) {
		return fmt.Errorf("pcm: invalid bit depth (%d)", s.Depth)
	}

	enc := wav.NewEncoder(w, s.Rate, s.Depth, 2, wavePCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: s.Rate},
		Data:           make([]int, 0, 2*len(s.Frames)),
		SourceBitDepth: s.Depth,
	}
	for _, f := range s.Frames {
		buf.Data = append(buf.Data,
			from24(f.Ch1.Audio, s.Depth),
			from24(f.Ch2.Audio, s.Depth),
		)
	}

	err := enc.Write(buf)
	if err != nil {
		return fmt.Errorf("pcm: could not write WAV samples: %w", err)
	}
	err = enc.Close()
	if err != nil {
		return fmt.Errorf("pcm: could not close WAV encoder: %w", err)
	}
	return nil
}

// WriteFile encodes s into the WAV file fname.
func WriteFile(fname string, s Stream) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("pcm: could not create WAV file: %w", err)
	}
	defer f.Close()

	err = Write(f, s)
	if err != nil {
		return fmt.Errorf("pcm: could not write %q: %w", fname, err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("pcm: could not close %q: %w", fname, err)
	}
	return nil
}

func validDepth(depth int) bool {
	switch depth {
	case 16, 24, 32:
		return true
	}
	return false
}

// to24 scales a sample of depth bits to 24 bits.
func to24(v, depth int) int32 {
	switch {
	case depth <= aes3.AudioBits:
		return int32(v << (aes3.AudioBits - depth))
	default:
		return int32(v >> (depth - aes3.AudioBits))
	}
}

// from24 scales a 24-bit sample to depth bits.
func from24(v int32, depth int) int {
	switch {
	case depth <= aes3.AudioBits:
		return int(v) >> (aes3.AudioBits - depth)
	default:
		return int(v) << (depth - aes3.AudioBits)
	}
}
