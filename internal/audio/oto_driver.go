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
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process, so it is shared between drivers
var (
	otoMu      sync.Mutex
	otoContext *oto.Context
	otoParams  StreamParams
)

func sharedOtoContext(params StreamParams) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoContext != nil {
		if otoParams.SampleRate != params.SampleRate || otoParams.Channels != params.Channels {
			return nil, fmt.Errorf("oto context already created with %.0f Hz, %d channel(s)",
				otoParams.SampleRate, otoParams.Channels)
		}
		return otoContext, nil
	}

	bufferDuration := time.Duration(float64(params.BufferSize) / params.SampleRate * float64(time.Second))
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(params.SampleRate),
		ChannelCount: params.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready

	otoContext = ctx
	otoParams = params
	return ctx, nil
}

// OtoDriver implements Driver on top of an oto v3 player. oto pulls bytes
// from the driver, which renders them through the stream callback.
type OtoDriver struct {
	mu       sync.Mutex
	player   *oto.Player
	callback StreamCallback
	channels int
	samples  []float32
	active   bool
}

// NewOtoDriver creates a new oto driver
func NewOtoDriver() *OtoDriver {
	return &OtoDriver{}
}

// Open creates (or reuses) the oto context and a player reading from the driver
func (o *OtoDriver) Open(params StreamParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return ErrAlreadyOpen
	}

	ctx, err := sharedOtoContext(params)
	if err != nil {
		return err
	}

	o.callback = params.Callback
	o.channels = params.Channels
	o.samples = make([]float32, params.BufferSize*params.Channels)
	o.player = ctx.NewPlayer(&otoReader{driver: o})
	log.Printf("🔈 oto output opened: %.0f Hz, %d channel(s)", params.SampleRate, params.Channels)
	return nil
}

// Start begins playback
func (o *OtoDriver) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotOpen
	}
	if err := o.player.Err(); err != nil {
		return fmt.Errorf("oto player failed: %w", err)
	}
	o.player.Play()
	o.active = true
	return nil
}

// Stop pauses playback; the player can be started again
func (o *OtoDriver) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil || !o.active {
		return nil
	}
	o.player.Pause()
	o.active = false
	return nil
}

// Close disposes of the player. The shared context stays alive.
func (o *OtoDriver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	o.active = false
	if err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

// IsActive returns true while the player is playing
func (o *OtoDriver) IsActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// render fills p with whole frames of float32 little endian samples
func (o *OtoDriver) render(p []byte) int {
	frameBytes := 4 * o.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0
	}
	if len(o.samples) < frames*o.channels {
		o.samples = make([]float32, frames*o.channels)
	}
	samples := o.samples[:frames*o.channels]
	o.callback(samples)
	encodeFloat32LE(p, samples)
	return frames * frameBytes
}

type otoReader struct {
	driver *OtoDriver
}

func (r *otoReader) Read(p []byte) (int, error) {
	return r.driver.render(p), nil
}

// encodeFloat32LE writes samples into dst, which must hold 4 bytes per sample
func encodeFloat32LE(dst []byte, samples []float32) {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(s))
	}
}
