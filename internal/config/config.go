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

// Package config loads the piano configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loqalabs/loqa-piano-go/internal/audio"
	"github.com/loqalabs/loqa-piano-go/internal/dsp"
	"github.com/loqalabs/loqa-piano-go/internal/keyboard"
	"github.com/loqalabs/loqa-piano-go/internal/pitch"
)

var ErrInvalid = errors.New("invalid configuration")

// Note is a pitch written either as a number (60) or a name ("C4").
type Note pitch.Pitch

func (n *Note) UnmarshalYAML(value *yaml.Node) error {
	var number int
	if err := value.Decode(&number); err == nil {
		*n = Note(number)
		return nil
	}
	p, err := pitch.Parse(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*n = Note(p)
	return nil
}

func (n Note) MarshalYAML() (interface{}, error) {
	return pitch.Pitch(n).Name(), nil
}

type KeyboardConfig struct {
	LowNote      Note          `yaml:"low_note"`
	HighNote     Note          `yaml:"high_note"`
	ReleaseDelay time.Duration `yaml:"release_delay"`
}

type AudioConfig struct {
	Driver     string  `yaml:"driver"`
	SampleRate float64 `yaml:"sample_rate"`
	Channels   int     `yaml:"channels"`
	BufferSize int     `yaml:"buffer_size"`
}

type OscillatorConfig struct {
	Waveform  string  `yaml:"waveform"`
	Amplitude float64 `yaml:"amplitude"`
}

type EnvelopeConfig struct {
	Attack  time.Duration `yaml:"attack"`
	Decay   time.Duration `yaml:"decay"`
	Sustain float64       `yaml:"sustain"`
	Release time.Duration `yaml:"release"`
}

type FaderConfig struct {
	Gain float64 `yaml:"gain"`
}

type Config struct {
	Keyboard   KeyboardConfig   `yaml:"keyboard"`
	Audio      AudioConfig      `yaml:"audio"`
	Oscillator OscillatorConfig `yaml:"oscillator"`
	Envelope   EnvelopeConfig   `yaml:"envelope"`
	Fader      FaderConfig      `yaml:"fader"`
}

// Default is the classic demo keyboard: A3 to F5, a full level sine and
// 100 ms envelope segments.
func Default() Config {
	rng := keyboard.DefaultRange()
	adsr := dsp.DefaultADSR()
	return Config{
		Keyboard: KeyboardConfig{
			LowNote:      Note(rng.LowNote),
			HighNote:     Note(rng.HighNote),
			ReleaseDelay: keyboard.DefaultReleaseDelay,
		},
		Audio: AudioConfig{
			Driver:     audio.DriverPortAudio,
			SampleRate: 44100,
			Channels:   1,
			BufferSize: 512,
		},
		Oscillator: OscillatorConfig{
			Waveform:  dsp.Sine.String(),
			Amplitude: 1,
		},
		Envelope: EnvelopeConfig{
			Attack:  adsr.Attack,
			Decay:   adsr.Decay,
			Sustain: adsr.Sustain,
			Release: adsr.Release,
		},
		Fader: FaderConfig{Gain: 1},
	}
}

// Load reads path over the defaults and validates the result. Unknown keys
// are rejected.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode is Load for an already open reader.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c Config) Validate() error {
	var errs []error
	if err := c.KeyboardRange().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Keyboard.ReleaseDelay <= 0 {
		errs = append(errs, fmt.Errorf("keyboard.release_delay must be positive, got %v", c.Keyboard.ReleaseDelay))
	}
	if !slices.Contains(audio.DriverNames(), strings.ToLower(c.Audio.Driver)) {
		errs = append(errs, fmt.Errorf("audio.driver %q is not one of %s", c.Audio.Driver, strings.Join(audio.DriverNames(), ", ")))
	}
	if err := c.streamParams().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("audio: %w", err))
	}
	if _, err := dsp.ParseWaveform(c.Oscillator.Waveform); err != nil {
		errs = append(errs, fmt.Errorf("oscillator.waveform: %w", err))
	}
	if c.Oscillator.Amplitude < 0 || c.Oscillator.Amplitude > 1 {
		errs = append(errs, fmt.Errorf("oscillator.amplitude %v is outside 0-1", c.Oscillator.Amplitude))
	}
	if c.Envelope.Attack < 0 || c.Envelope.Decay < 0 || c.Envelope.Release < 0 {
		errs = append(errs, errors.New("envelope segments must not be negative"))
	}
	if c.Envelope.Sustain < 0 || c.Envelope.Sustain > 1 {
		errs = append(errs, fmt.Errorf("envelope.sustain %v is outside 0-1", c.Envelope.Sustain))
	}
	if c.Fader.Gain < 0 || c.Fader.Gain > dsp.MaxGain {
		errs = append(errs, fmt.Errorf("fader.gain %v is outside 0-%v", c.Fader.Gain, dsp.MaxGain))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func (c Config) KeyboardRange() keyboard.Range {
	return keyboard.Range{
		LowNote:  pitch.Pitch(c.Keyboard.LowNote),
		HighNote: pitch.Pitch(c.Keyboard.HighNote),
	}
}

func (c Config) ADSR() dsp.ADSR {
	return dsp.ADSR{
		Attack:  c.Envelope.Attack,
		Decay:   c.Envelope.Decay,
		Sustain: c.Envelope.Sustain,
		Release: c.Envelope.Release,
	}
}

// SynthConfig converts the configuration into the software voice settings.
func (c Config) SynthConfig() (audio.SynthConfig, error) {
	waveform, err := dsp.ParseWaveform(c.Oscillator.Waveform)
	if err != nil {
		return audio.SynthConfig{}, err
	}
	return audio.SynthConfig{
		SampleRate: c.Audio.SampleRate,
		Channels:   c.Audio.Channels,
		BufferSize: c.Audio.BufferSize,
		Waveform:   waveform,
		Amplitude:  c.Oscillator.Amplitude,
		Envelope:   c.ADSR(),
		Gain:       c.Fader.Gain,
	}, nil
}

func (c Config) streamParams() audio.StreamParams {
	return audio.StreamParams{
		SampleRate: c.Audio.SampleRate,
		Channels:   c.Audio.Channels,
		BufferSize: c.Audio.BufferSize,
		Callback:   func([]float32) {},
	}
}
