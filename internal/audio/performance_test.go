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
	"runtime"
	"testing"
	"time"

	"github.com/loqalabs/loqa-piano-go/internal/dsp"
)

// Performance benchmarks for the render path

func newBenchmarkSynth(b *testing.B, channels int) *SynthBackend {
	b.Helper()
	cfg := DefaultSynthConfig()
	cfg.Channels = channels
	synth, err := NewSynthBackend(NewHeadlessDriver(false), cfg)
	if err != nil {
		b.Fatal(err)
	}
	synth.SetOscillatorFrequency(440)
	synth.SetOscillatorRunning(true)
	synth.EnvelopeOpenGate()
	return synth
}

// Benchmark one driver callback worth of synthesis
func BenchmarkSynthRender(b *testing.B) {
	testCases := []struct {
		name     string
		frames   int
		channels int
	}{
		{"64_frames_mono", 64, 1},
		{"512_frames_mono", 512, 1},
		{"512_frames_stereo", 512, 2},
		{"2048_frames_stereo", 2048, 2},
	}

	for _, tc := range testCases {
		b.Run(tc.name, func(b *testing.B) {
			synth := newBenchmarkSynth(b, tc.channels)
			out := make([]float32, tc.frames*tc.channels)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				synth.render(out)
			}

			b.SetBytes(int64(len(out) * 4)) // 4 bytes per float32
		})
	}
}

// Benchmark each waveform through the full chain
func BenchmarkSynthRender_Waveforms(b *testing.B) {
	for _, w := range []dsp.Waveform{dsp.Sine, dsp.Square, dsp.Triangle, dsp.Sawtooth} {
		b.Run(w.String(), func(b *testing.B) {
			synth := newBenchmarkSynth(b, 1)
			synth.SetWaveform(w)
			out := make([]float32, 512)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				synth.render(out)
			}
		})
	}
}

// Benchmark float32 to little endian byte conversion used by the oto driver
func BenchmarkAudioConversion_Float32ToBytes(b *testing.B) {
	testCases := []struct {
		name       string
		numSamples int
	}{
		{"10ms_441_samples", 441},
		{"512_samples", 512},
		{"1024_samples", 1024},
		{"100ms_4410_samples", 4410},
	}

	for _, tc := range testCases {
		b.Run(tc.name, func(b *testing.B) {
			samples := make([]float32, tc.numSamples)
			for i := range samples {
				samples[i] = float32(i%1000) / 1000.0 // Test pattern
			}
			dst := make([]byte, tc.numSamples*4)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				encodeFloat32LE(dst, samples)
			}

			b.SetBytes(int64(tc.numSamples * 4))
		})
	}
}

// The render path runs on the audio thread and must not allocate
func BenchmarkMemoryAllocations_Render(b *testing.B) {
	synth := newBenchmarkSynth(b, 2)
	out := make([]float32, 1024)

	b.ResetTimer()
	b.ReportAllocs()

	var m1, m2 runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m1)

	for i := 0; i < b.N; i++ {
		if i%100 == 0 {
			synth.EnvelopeCloseGate()
			synth.EnvelopeOpenGate()
		}
		synth.render(out)
	}

	runtime.GC()
	runtime.ReadMemStats(&m2)

	b.ReportMetric(float64(m2.TotalAlloc-m1.TotalAlloc)/float64(b.N), "bytes/op")
}

// Benchmark sustained pulls through the headless driver
func BenchmarkSustainedThroughput(b *testing.B) {
	if testing.Short() {
		b.Skip("Skipping sustained throughput test in short mode")
	}

	const frames = 512
	const duration = 2 * time.Second

	driver := NewHeadlessDriver(false)
	driver.SetRecord(false)
	synth, err := NewSynthBackend(driver, DefaultSynthConfig())
	if err != nil {
		b.Fatal(err)
	}
	defer func() { _ = synth.Close() }()
	if err := synth.EngineStart(); err != nil {
		b.Fatal(err)
	}
	synth.SetOscillatorRunning(true)
	synth.EnvelopeOpenGate()

	b.ResetTimer()

	start := time.Now()
	buffers := 0
	for time.Since(start) < duration {
		if _, err := driver.Pull(frames); err != nil {
			b.Fatal(err)
		}
		buffers++
	}

	elapsed := time.Since(start)
	samplesPerSecond := float64(buffers*frames) / elapsed.Seconds()

	b.ReportMetric(samplesPerSecond, "samples/sec")
	b.ReportMetric(samplesPerSecond/DefaultSynthConfig().SampleRate, "realtime_x")
}
