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
	"fmt"
	"log"
	"sync"

	"github.com/viterin/vek/vek32"

	"github.com/loqalabs/loqa-piano-go/internal/dsp"
)

// SynthConfig describes the voice graph and the stream it renders into
type SynthConfig struct {
	SampleRate float64
	Channels   int
	BufferSize int
	Waveform   dsp.Waveform
	Amplitude  float64
	Envelope   dsp.ADSR
	Gain       float64
}

// DefaultSynthConfig returns a mono 44.1 kHz sine voice at full level
func DefaultSynthConfig() SynthConfig {
	return SynthConfig{
		SampleRate: 44100,
		Channels:   1,
		BufferSize: 512,
		Waveform:   dsp.Sine,
		Amplitude:  1,
		Envelope:   dsp.DefaultADSR(),
		Gain:       1,
	}
}

func (c SynthConfig) streamParams(callback StreamCallback) StreamParams {
	return StreamParams{
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		BufferSize: c.BufferSize,
		Callback:   callback,
	}
}

// SynthBackend implements Backend in software: oscillator -> amplitude
// envelope -> fader, rendered through a Driver. Parameter changes from the
// control thread and rendering on the audio thread are serialized by mu.
type SynthBackend struct {
	// lifecycle, never held while rendering
	engineMu sync.Mutex
	driver   Driver
	opened   bool

	mu     sync.Mutex
	cfg    SynthConfig
	osc    *dsp.Oscillator
	env    *dsp.Envelope
	fader  *dsp.Fader
	mono   []float32
	meter  []float32
	peak   float32
	frames uint64
}

// NewSynthBackend builds the voice graph. The driver is opened lazily by EngineStart.
func NewSynthBackend(driver Driver, cfg SynthConfig) (*SynthBackend, error) {
	if driver == nil {
		return nil, fmt.Errorf("audio driver is nil")
	}
	if err := cfg.streamParams(func([]float32) {}).Validate(); err != nil {
		return nil, fmt.Errorf("invalid synth config: %w", err)
	}

	osc := dsp.NewOscillator(cfg.SampleRate)
	osc.SetWaveform(cfg.Waveform)
	osc.SetAmplitude(cfg.Amplitude)

	return &SynthBackend{
		driver: driver,
		cfg:    cfg,
		osc:    osc,
		env:    dsp.NewEnvelope(cfg.SampleRate, cfg.Envelope),
		fader:  dsp.NewFader(cfg.Gain),
		mono:   make([]float32, cfg.BufferSize),
		meter:  make([]float32, cfg.BufferSize),
	}, nil
}

func (s *SynthBackend) SetOscillatorFrequency(freqHz float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.osc.SetFrequency(freqHz)
}

func (s *SynthBackend) SetOscillatorRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.osc.SetRunning(running)
}

func (s *SynthBackend) EnvelopeOpenGate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env.OpenGate()
}

func (s *SynthBackend) EnvelopeCloseGate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env.CloseGate()
}

// SetWaveform changes the oscillator shape
func (s *SynthBackend) SetWaveform(w dsp.Waveform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.osc.SetWaveform(w)
}

// SetEnvelope changes the envelope segments
func (s *SynthBackend) SetEnvelope(params dsp.ADSR) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env.SetADSR(params)
}

// SetGain changes the fader level
func (s *SynthBackend) SetGain(gain float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fader.SetGain(gain)
}

// EngineStart opens the driver on first use and starts it
func (s *SynthBackend) EngineStart() error {
	s.engineMu.Lock()
	defer s.engineMu.Unlock()

	if !s.opened {
		if err := s.driver.Open(s.cfg.streamParams(s.render)); err != nil {
			return fmt.Errorf("failed to open audio driver: %w", err)
		}
		s.opened = true
	}
	if err := s.driver.Start(); err != nil {
		return fmt.Errorf("failed to start audio driver: %w", err)
	}
	return nil
}

// EngineStop stops the driver. Errors are logged, not returned.
func (s *SynthBackend) EngineStop() {
	s.engineMu.Lock()
	defer s.engineMu.Unlock()

	if !s.opened {
		return
	}
	if err := s.driver.Stop(); err != nil {
		log.Printf("⚠️ Failed to stop audio driver: %v", err)
	}
}

// Close releases the driver
func (s *SynthBackend) Close() error {
	s.engineMu.Lock()
	defer s.engineMu.Unlock()

	if !s.opened {
		return nil
	}
	s.opened = false
	if err := s.driver.Close(); err != nil {
		return fmt.Errorf("failed to close audio driver: %w", err)
	}
	return nil
}

// Peak returns the absolute peak of the most recently rendered buffer
func (s *SynthBackend) Peak() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// FramesRendered returns how many frames the driver has pulled
func (s *SynthBackend) FramesRendered() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// VoiceState is a snapshot of the voice parameters
type VoiceState struct {
	Frequency         float64
	OscillatorRunning bool
	GateOpen          bool
	Stage             dsp.Stage
	Level             float64
}

// State returns a snapshot of the voice
func (s *SynthBackend) State() VoiceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return VoiceState{
		Frequency:         s.osc.Frequency(),
		OscillatorRunning: s.osc.Running(),
		GateOpen:          s.env.GateOpen(),
		Stage:             s.env.Stage(),
		Level:             s.env.Level(),
	}
}

// render is the stream callback: it fills interleaved out on the audio thread
func (s *SynthBackend) render(out []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channels := s.cfg.Channels
	frames := len(out) / channels
	if cap(s.mono) < frames {
		s.mono = make([]float32, frames)
		s.meter = make([]float32, frames)
	}
	mono := s.mono[:frames]

	s.osc.Process(mono)
	s.env.Process(mono)
	s.fader.Process(mono)

	if channels == 1 {
		copy(out, mono)
	} else {
		for i, v := range mono {
			for c := 0; c < channels; c++ {
				out[i*channels+c] = v
			}
		}
	}

	s.peak = 0
	if frames > 0 {
		meter := s.meter[:frames]
		copy(meter, mono)
		vek32.Abs_Inplace(meter)
		s.peak = vek32.Max(meter)
	}
	s.frames += uint64(frames)
}
