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
	"sync"
	"time"
)

// HeadlessDriver implements Driver without any audio hardware. With real
// timing enabled a background goroutine pulls one buffer per buffer period,
// otherwise buffers are only rendered by Pull. Rendered audio is recorded so
// tests can inspect it.
type HeadlessDriver struct {
	mu                 sync.Mutex
	params             StreamParams
	isOpen             bool
	isActive           bool
	simulateRealTiming bool
	record             bool
	renderedAudioData  [][]float32
	openError          error
	startError         error
	stopChannel        chan struct{}
	done               chan struct{}
}

// NewHeadlessDriver creates a driver that renders without a device
func NewHeadlessDriver(simulateRealTiming bool) *HeadlessDriver {
	return &HeadlessDriver{
		simulateRealTiming: simulateRealTiming,
		record:             !simulateRealTiming,
		renderedAudioData:  make([][]float32, 0),
	}
}

// SetOpenError configures the driver to return an error on Open()
func (h *HeadlessDriver) SetOpenError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.openError = err
}

// SetStartError configures the driver to return an error on Start()
func (h *HeadlessDriver) SetStartError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.startError = err
}

// SetRecord controls whether rendered buffers are kept
func (h *HeadlessDriver) SetRecord(record bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record = record
}

// GetRenderedAudioData returns all audio data that was "played back"
func (h *HeadlessDriver) GetRenderedAudioData() [][]float32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([][]float32, len(h.renderedAudioData))
	copy(result, h.renderedAudioData)
	return result
}

// Params returns the parameters the driver was opened with
func (h *HeadlessDriver) Params() StreamParams {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.params
}

// Open stores the stream parameters
func (h *HeadlessDriver) Open(params StreamParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.openError != nil {
		return h.openError
	}
	if h.isOpen {
		return ErrAlreadyOpen
	}

	h.params = params
	h.isOpen = true
	return nil
}

// Start marks the stream active and, with real timing, starts the pull loop
func (h *HeadlessDriver) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.startError != nil {
		return h.startError
	}
	if !h.isOpen {
		return ErrNotOpen
	}
	if h.isActive {
		return nil
	}

	h.isActive = true
	if h.simulateRealTiming {
		h.stopChannel = make(chan struct{})
		h.done = make(chan struct{})
		go h.pullLoop(h.stopChannel, h.done)
	}
	return nil
}

// Stop halts the pull loop
func (h *HeadlessDriver) Stop() error {
	h.mu.Lock()
	if !h.isActive {
		h.mu.Unlock()
		return nil
	}
	h.isActive = false
	stop, done := h.stopChannel, h.done
	h.stopChannel, h.done = nil, nil
	h.mu.Unlock()

	// Wait outside the lock, the loop takes it while rendering
	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

// Close stops the driver and forgets the stream
func (h *HeadlessDriver) Close() error {
	if err := h.Stop(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isOpen = false
	return nil
}

// IsActive returns true if the driver is started
func (h *HeadlessDriver) IsActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isActive
}

// Pull synchronously renders the given number of frames, as a device would
// when it needs the next buffer. It works whether or not the driver is started.
func (h *HeadlessDriver) Pull(frames int) ([]float32, error) {
	h.mu.Lock()
	if !h.isOpen {
		h.mu.Unlock()
		return nil, ErrNotOpen
	}
	if frames <= 0 {
		h.mu.Unlock()
		return nil, fmt.Errorf("invalid frame count %d", frames)
	}
	params := h.params
	h.mu.Unlock()

	buf := make([]float32, frames*params.Channels)
	params.Callback(buf)

	h.mu.Lock()
	if h.record {
		h.renderedAudioData = append(h.renderedAudioData, buf)
	}
	h.mu.Unlock()
	return buf, nil
}

// pullLoop runs in background to simulate a device consuming buffers
func (h *HeadlessDriver) pullLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	h.mu.Lock()
	params := h.params
	h.mu.Unlock()

	period := time.Duration(float64(params.BufferSize) / params.SampleRate * float64(time.Second))
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_, _ = h.Pull(params.BufferSize) // Only fails when closed, stop follows
		}
	}
}
