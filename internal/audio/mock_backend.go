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
	"sync"
)

// Method names recorded by MockBackend
const (
	CallSetFrequency = "SetOscillatorFrequency"
	CallSetRunning   = "SetOscillatorRunning"
	CallOpenGate     = "EnvelopeOpenGate"
	CallCloseGate    = "EnvelopeCloseGate"
	CallEngineStart  = "EngineStart"
	CallEngineStop   = "EngineStop"
)

// Call is one recorded Backend invocation. Frequency is set for
// CallSetFrequency and Running for CallSetRunning.
type Call struct {
	Method    string
	Frequency float64
	Running   bool
}

// MockBackend implements Backend for testing without hardware dependencies.
// It records every call in order.
type MockBackend struct {
	mu            sync.Mutex
	calls         []Call
	startError    error
	engineRunning bool
}

// NewMockBackend creates a new mock backend
func NewMockBackend() *MockBackend {
	return &MockBackend{calls: make([]Call, 0)}
}

// SetStartError configures the backend to return an error on EngineStart()
func (m *MockBackend) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startError = err
}

// Calls returns a copy of the recorded calls
func (m *MockBackend) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Call, len(m.calls))
	copy(result, m.calls)
	return result
}

// Methods returns the recorded method names in order
func (m *MockBackend) Methods() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.calls))
	for i, c := range m.calls {
		result[i] = c.Method
	}
	return result
}

// Count returns how many times method was called
func (m *MockBackend) Count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset forgets the recorded calls
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = m.calls[:0]
}

// EngineRunning reports whether EngineStart succeeded more recently than EngineStop
func (m *MockBackend) EngineRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engineRunning
}

func (m *MockBackend) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *MockBackend) SetOscillatorFrequency(freqHz float64) {
	m.record(Call{Method: CallSetFrequency, Frequency: freqHz})
}

func (m *MockBackend) SetOscillatorRunning(running bool) {
	m.record(Call{Method: CallSetRunning, Running: running})
}

func (m *MockBackend) EnvelopeOpenGate() {
	m.record(Call{Method: CallOpenGate})
}

func (m *MockBackend) EnvelopeCloseGate() {
	m.record(Call{Method: CallCloseGate})
}

func (m *MockBackend) EngineStart() error {
	m.record(Call{Method: CallEngineStart})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startError != nil {
		return m.startError
	}
	m.engineRunning = true
	return nil
}

func (m *MockBackend) EngineStop() {
	m.record(Call{Method: CallEngineStop})

	m.mu.Lock()
	defer m.mu.Unlock()
	m.engineRunning = false
}
