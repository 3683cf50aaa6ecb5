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

	"github.com/gordonklaus/portaudio"
)

// PortAudioDriver implements Driver using the default PortAudio output device
type PortAudioDriver struct {
	mu          sync.Mutex
	initialized bool
	stream      *portaudio.Stream
	active      bool
}

// NewPortAudioDriver creates a new PortAudio driver
func NewPortAudioDriver() *PortAudioDriver {
	return &PortAudioDriver{}
}

// Open initializes PortAudio and opens a callback driven output stream
func (p *PortAudioDriver) Open(params StreamParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		return ErrAlreadyOpen
	}

	if !p.initialized {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize PortAudio: %w", err)
		}
		p.initialized = true
	}

	callback := params.Callback
	stream, err := portaudio.OpenDefaultStream(
		0,               // input channels (none, output only)
		params.Channels, // output channels
		params.SampleRate,
		params.BufferSize,
		func(out []float32) {
			callback(out)
		},
	)
	if err != nil {
		_ = portaudio.Terminate() // Ignore errors during cleanup
		p.initialized = false
		return fmt.Errorf("failed to open output stream: %w", err)
	}

	p.stream = stream
	log.Printf("🔈 PortAudio output opened: %.0f Hz, %d channel(s), %d frames per buffer",
		params.SampleRate, params.Channels, params.BufferSize)
	return nil
}

// Start starts the output stream
func (p *PortAudioDriver) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return ErrNotOpen
	}
	if p.active {
		return nil
	}
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	p.active = true
	return nil
}

// Stop stops the output stream
func (p *PortAudioDriver) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil || !p.active {
		return nil
	}
	p.active = false
	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop output stream: %w", err)
	}
	return nil
}

// Close closes the stream and terminates PortAudio
func (p *PortAudioDriver) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.stream != nil {
		if p.active {
			if err := p.stream.Stop(); err != nil {
				firstErr = fmt.Errorf("failed to stop output stream: %w", err)
			}
			p.active = false
		}
		if err := p.stream.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close output stream: %w", err)
		}
		p.stream = nil
	}
	if p.initialized {
		if err := portaudio.Terminate(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to terminate PortAudio: %w", err)
		}
		p.initialized = false
	}
	return firstErr
}

// IsActive returns true if the stream has been started and not stopped
func (p *PortAudioDriver) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}
