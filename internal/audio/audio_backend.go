/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package audio

import (
	"errors"
	"fmt"
	"strings"
)

// AudioEngine is the capability of owning an audio engine that can be
// started and stopped.
type AudioEngine interface {
	// EngineStart brings up the output device and begins pulling samples
	EngineStart() error

	// EngineStop halts sample production; it is best effort
	EngineStop()
}

// Backend is everything a voice controller drives: one oscillator, one
// amplitude envelope and the engine they play through. Implementations must
// apply parameter changes safely with respect to their own audio thread.
type Backend interface {
	AudioEngine

	SetOscillatorFrequency(freqHz float64)
	SetOscillatorRunning(running bool)
	EnvelopeOpenGate()
	EnvelopeCloseGate()
}

// Driver abstracts an audio output device. This enables dependency injection
// and makes testing hardware-independent.
type Driver interface {
	// Open acquires the device and installs the render callback
	Open(params StreamParams) error

	// Start the audio stream
	Start() error

	// Stop the audio stream
	Stop() error

	// Close the audio stream and release resources
	Close() error

	// IsActive returns true if the stream is currently started
	IsActive() bool
}

// StreamCallback fills out with interleaved samples when the device needs them
type StreamCallback func(out []float32)

// StreamParams holds parameters for stream creation
type StreamParams struct {
	SampleRate float64
	Channels   int
	BufferSize int
	Callback   StreamCallback
}

var (
	ErrNotOpen     = errors.New("audio driver not open")
	ErrAlreadyOpen = errors.New("audio driver already open")
)

// Validate checks the stream parameters before a device is opened.
func (p StreamParams) Validate() error {
	switch {
	case p.SampleRate <= 0:
		return fmt.Errorf("invalid sample rate %v", p.SampleRate)
	case p.Channels < 1 || p.Channels > 2:
		return fmt.Errorf("invalid channel count %d (want 1 or 2)", p.Channels)
	case p.BufferSize <= 0:
		return fmt.Errorf("invalid buffer size %d", p.BufferSize)
	case p.Callback == nil:
		return errors.New("stream callback is nil")
	}
	return nil
}

// Driver names accepted by NewDriver
const (
	DriverPortAudio = "portaudio"
	DriverOto       = "oto"
	DriverHeadless  = "headless"
)

// DriverNames lists the supported output drivers.
func DriverNames() []string {
	return []string{DriverPortAudio, DriverOto, DriverHeadless}
}

// NewDriver creates the output driver with the given name.
func NewDriver(name string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case DriverPortAudio:
		return NewPortAudioDriver(), nil
	case DriverOto:
		return NewOtoDriver(), nil
	case DriverHeadless:
		return NewHeadlessDriver(true), nil
	default:
		return nil, fmt.Errorf("unknown audio driver %q (available: %s)", name, strings.Join(DriverNames(), ", "))
	}
}
