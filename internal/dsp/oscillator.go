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

// Package dsp contains the sample-level building blocks of the piano voice:
// an oscillator, a gate driven amplitude envelope and a fader.
package dsp

import (
	"fmt"
	"math"
	"strings"
)

// Waveform selects the shape produced by an Oscillator.
type Waveform int

const (
	Sine Waveform = iota
	Square
	Triangle
	Sawtooth
)

var waveformNames = []string{
	Sine:     "sine",
	Square:   "square",
	Triangle: "triangle",
	Sawtooth: "sawtooth",
}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return fmt.Sprintf("Waveform(%d)", int(w))
	}
	return waveformNames[w]
}

// ParseWaveform converts a waveform name to a Waveform.
func ParseWaveform(name string) (Waveform, error) {
	for i, n := range waveformNames {
		if strings.EqualFold(n, name) {
			return Waveform(i), nil
		}
	}
	return Sine, fmt.Errorf("unknown waveform %q", name)
}

// Oscillator is a phase accumulating tone generator. Frequency changes keep
// the phase continuous so that retuning a sounding voice does not click.
type Oscillator struct {
	sampleRate float64
	waveform   Waveform
	frequency  float64
	amplitude  float64
	phase      float64 // normalized to [0, 1)
	running    bool
}

// NewOscillator creates a stopped sine oscillator at 440 Hz with full amplitude.
func NewOscillator(sampleRate float64) *Oscillator {
	return &Oscillator{
		sampleRate: sampleRate,
		waveform:   Sine,
		frequency:  440,
		amplitude:  1,
	}
}

func (o *Oscillator) SetFrequency(hz float64) {
	if hz < 0 {
		hz = 0
	}
	// keep below Nyquist
	if limit := o.sampleRate / 2; hz > limit {
		hz = limit
	}
	o.frequency = hz
}

func (o *Oscillator) Frequency() float64 { return o.frequency }

func (o *Oscillator) SetAmplitude(amplitude float64) {
	o.amplitude = math.Max(0, math.Min(1, amplitude))
}

func (o *Oscillator) Amplitude() float64 { return o.amplitude }

func (o *Oscillator) SetWaveform(w Waveform) { o.waveform = w }

func (o *Oscillator) Waveform() Waveform { return o.waveform }

// SetRunning starts or stops sample production. A stopped oscillator outputs
// silence and restarts from phase zero.
func (o *Oscillator) SetRunning(running bool) {
	if !running {
		o.phase = 0
	}
	o.running = running
}

func (o *Oscillator) Running() bool { return o.running }

// Process overwrites out with the next len(out) samples.
func (o *Oscillator) Process(out []float32) {
	if !o.running || o.sampleRate <= 0 {
		clear(out)
		return
	}
	inc := o.frequency / o.sampleRate
	for i := range out {
		out[i] = float32(o.amplitude * o.shape(o.phase))
		o.phase += inc
		if o.phase >= 1 {
			o.phase -= math.Floor(o.phase)
		}
	}
}

func (o *Oscillator) shape(phase float64) float64 {
	switch o.waveform {
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	case Sawtooth:
		return 2*phase - 1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
