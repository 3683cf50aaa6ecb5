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

package dsp

import (
	"time"
)

// ADSR holds the envelope segment settings.
type ADSR struct {
	Attack  time.Duration
	Decay   time.Duration
	Sustain float64 // level in [0, 1]
	Release time.Duration
}

// DefaultADSR returns short attack, decay and release segments with full
// sustain, so a held key sounds at full level.
func DefaultADSR() ADSR {
	return ADSR{
		Attack:  100 * time.Millisecond,
		Decay:   100 * time.Millisecond,
		Sustain: 1.0,
		Release: 100 * time.Millisecond,
	}
}

// Stage is the segment an Envelope is currently in.
type Stage int

const (
	Idle Stage = iota
	Attack
	Decay
	Sustain
	Release
)

func (s Stage) String() string {
	switch s {
	case Attack:
		return "attack"
	case Decay:
		return "decay"
	case Sustain:
		return "sustain"
	case Release:
		return "release"
	default:
		return "idle"
	}
}

// Envelope is a gate driven amplitude envelope with linear segments. Opening
// the gate starts the attack from the current level, closing it starts the
// release from the current level, so retriggering never jumps.
type Envelope struct {
	sampleRate float64
	params     ADSR
	stage      Stage
	gate       bool
	level      float64
	step       float64
	remaining  int
}

func NewEnvelope(sampleRate float64, params ADSR) *Envelope {
	e := &Envelope{sampleRate: sampleRate}
	e.SetADSR(params)
	return e
}

// SetADSR replaces the segment settings. The running segment keeps its slope.
func (e *Envelope) SetADSR(params ADSR) {
	if params.Sustain < 0 {
		params.Sustain = 0
	}
	if params.Sustain > 1 {
		params.Sustain = 1
	}
	e.params = params
}

func (e *Envelope) ADSR() ADSR { return e.params }

// OpenGate starts the attack. Opening an already open gate is a no-op.
func (e *Envelope) OpenGate() {
	if e.gate {
		return
	}
	e.gate = true
	e.enter(Attack)
}

// CloseGate starts the release. Closing a closed gate is a no-op.
func (e *Envelope) CloseGate() {
	if !e.gate {
		return
	}
	e.gate = false
	e.enter(Release)
}

func (e *Envelope) GateOpen() bool { return e.gate }

func (e *Envelope) Stage() Stage { return e.stage }

func (e *Envelope) Level() float64 { return e.level }

// Reset silences the envelope immediately.
func (e *Envelope) Reset() {
	e.gate = false
	e.level = 0
	e.stage = Idle
	e.remaining = 0
}

// Process multiplies buf by the envelope, sample by sample.
func (e *Envelope) Process(buf []float32) {
	for i := range buf {
		buf[i] *= float32(e.next())
	}
}

func (e *Envelope) next() float64 {
	switch e.stage {
	case Attack, Decay, Release:
		e.level += e.step
		e.remaining--
		if e.remaining <= 0 {
			e.finish()
		}
	case Sustain:
		e.level = e.params.Sustain
	default:
		e.level = 0
	}
	return e.level
}

// finish snaps the level to the segment target and moves on.
func (e *Envelope) finish() {
	switch e.stage {
	case Attack:
		e.level = 1
		e.enter(Decay)
	case Decay:
		e.level = e.params.Sustain
		e.enter(Sustain)
	case Release:
		e.level = 0
		e.stage = Idle
	}
}

func (e *Envelope) enter(stage Stage) {
	e.stage = stage
	var target float64
	var length time.Duration
	switch stage {
	case Attack:
		target, length = 1, e.params.Attack
	case Decay:
		target, length = e.params.Sustain, e.params.Decay
	case Release:
		target, length = 0, e.params.Release
	default:
		e.remaining = 0
		return
	}
	e.remaining = int(length.Seconds() * e.sampleRate)
	if e.remaining <= 0 {
		e.finish()
		return
	}
	e.step = (target - e.level) / float64(e.remaining)
}
