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

// Package voice maps monophonic note events onto a single oscillator and
// amplitude envelope. The most recently pressed key always owns the voice.
package voice

import (
	"errors"
	"fmt"
	"log"

	"github.com/loqalabs/loqa-piano-go/internal/audio"
	"github.com/loqalabs/loqa-piano-go/internal/pitch"
)

// ErrEngineStart is reported when the audio engine cannot be started.
var ErrEngineStart = errors.New("audio engine start failed")

// ErrorHandler receives engine failures. It is called on the caller's goroutine.
type ErrorHandler func(error)

// Controller owns the voice state. All methods must be called from a single
// goroutine, typically the input event loop; the backend is responsible for
// applying the resulting parameter changes on its audio thread.
type Controller struct {
	backend audio.Backend

	currentPitch pitch.Pitch
	hasPitch     bool
	running      bool

	lastErr error
	onError ErrorHandler
}

// NewController creates a stopped controller with no current pitch.
func NewController(backend audio.Backend) *Controller {
	return &Controller{backend: backend}
}

// SetErrorHandler installs a handler for engine start failures.
func (c *Controller) SetErrorHandler(h ErrorHandler) {
	c.onError = h
}

// NoteOn makes p the sounding note. A pitch different from the held one
// closes the gate first so the envelope retriggers; the same pitch only
// reopens the gate, which the envelope ignores while it is already open.
// The very first note has nothing to release.
func (c *Controller) NoteOn(p pitch.Pitch) {
	if c.hasPitch && p != c.currentPitch {
		c.backend.EnvelopeCloseGate()
	}
	c.backend.SetOscillatorFrequency(p.Frequency())
	c.backend.EnvelopeOpenGate()
	c.currentPitch = p
	c.hasPitch = true
}

// NoteOff closes the gate whatever p is. With one voice, releasing any key
// silences the sounding note, even when the released key is not that note.
// The current pitch is kept.
func (c *Controller) NoteOff(p pitch.Pitch) {
	c.backend.EnvelopeCloseGate()
}

// Start runs the oscillator and starts the engine. A failing engine is logged
// and reported to the error handler; the controller stays usable but silent.
func (c *Controller) Start() {
	c.running = true
	c.backend.SetOscillatorRunning(true)
	if err := c.backend.EngineStart(); err != nil {
		c.lastErr = fmt.Errorf("%w: %w", ErrEngineStart, err)
		log.Printf("❌ %v", c.lastErr)
		if c.onError != nil {
			c.onError(c.lastErr)
		}
		return
	}
	c.lastErr = nil
	log.Println("🎹 Audio engine started")
}

// Stop halts the oscillator and the engine. It is best effort.
func (c *Controller) Stop() {
	c.running = false
	c.backend.SetOscillatorRunning(false)
	c.backend.EngineStop()
	log.Println("🎹 Audio engine stopped")
}

// Running reports whether Start was called more recently than Stop.
func (c *Controller) Running() bool {
	return c.running
}

// Audible reports whether the controller is running on a started engine.
func (c *Controller) Audible() bool {
	return c.running && c.lastErr == nil
}

// Err returns the failure of the most recent Start, if any.
func (c *Controller) Err() error {
	return c.lastErr
}

// CurrentPitch returns the pitch of the most recent NoteOn.
func (c *Controller) CurrentPitch() (pitch.Pitch, bool) {
	return c.currentPitch, c.hasPitch
}
