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

package keyboard

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loqalabs/loqa-piano-go/internal/pitch"
)

func TestRange(t *testing.T) {
	r := DefaultRange()
	require.NoError(t, r.Validate())
	assert.Equal(t, 21, r.Len())
	assert.True(t, r.Contains(57))
	assert.True(t, r.Contains(77))
	assert.False(t, r.Contains(56))
	assert.False(t, r.Contains(78))

	pitches := r.Pitches()
	require.Len(t, pitches, 21)
	assert.Equal(t, pitch.Pitch(57), pitches[0])
	assert.Equal(t, pitch.Pitch(77), pitches[20])
}

func TestRange_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rng     Range
		wantErr bool
	}{
		{"default", DefaultRange(), false},
		{"single key", Range{60, 60}, false},
		{"full range", Range{0, 127}, false},
		{"inverted", Range{70, 60}, true},
		{"below zero", Range{-1, 60}, true},
		{"above 127", Range{60, 128}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rng.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.Equal(t, 0, Range{70, 60}.Len())
}

func TestRange_KeysAndRender(t *testing.T) {
	r := Range{LowNote: 57, HighNote: 64}

	keys := r.Keys()
	require.Len(t, keys, 8)
	assert.Equal(t, Key{Pitch: 57, Label: "", Black: false}, keys[0])
	assert.Equal(t, Key{Pitch: 58, Label: "", Black: true}, keys[1])
	assert.Equal(t, Key{Pitch: 60, Label: "C4", Black: false}, keys[3])

	assert.Equal(t, "_ # _ C4 # _ # _", r.Render())
	assert.Contains(t, DefaultRange().Render(), "C5")
}

func TestLayout_DefaultMapping(t *testing.T) {
	l := NewLayout(DefaultRange())
	assert.Equal(t, pitch.Pitch(60), l.Base(), "mapping starts at the first C")

	tests := []struct {
		key      rune
		expected pitch.Pitch
		ok       bool
	}{
		{'a', 60, true},
		{'A', 60, true},
		{'w', 61, true},
		{'h', 69, true},
		{'k', 72, true},
		{'\'', 77, true},
		{'q', 0, false},
		{'1', 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			p, ok := l.Lookup(tt.key)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, p)
			}
		})
	}

	bindings := l.Bindings()
	require.Len(t, bindings, 18)
	assert.Equal(t, Binding{Key: 'a', Pitch: 60}, bindings[0])
}

func TestLayout_OutOfRangeKeysIgnored(t *testing.T) {
	l := NewLayout(Range{LowNote: 60, HighNote: 64})
	_, ok := l.Lookup('d')
	assert.True(t, ok, "E4 is inside the range")
	_, ok = l.Lookup('f')
	assert.False(t, ok, "F4 is outside the range")
	assert.Len(t, l.Bindings(), 5)
}

func TestLayout_NoCInRange(t *testing.T) {
	l := NewLayout(Range{LowNote: 62, HighNote: 66})
	assert.Equal(t, pitch.Pitch(62), l.Base())
	p, ok := l.Lookup('a')
	assert.True(t, ok)
	assert.Equal(t, pitch.Pitch(62), p)
}

func TestLayout_ShiftOctave(t *testing.T) {
	l := NewLayout(DefaultRange())

	require.True(t, l.ShiftOctave(-1))
	assert.Equal(t, pitch.Pitch(48), l.Base())
	p, ok := l.Lookup('h')
	assert.True(t, ok)
	assert.Equal(t, pitch.Pitch(57), p, "A3 becomes reachable one octave down")
	_, ok = l.Lookup('a')
	assert.False(t, ok, "C3 is below the range")

	assert.False(t, l.ShiftOctave(-1), "no key would remain in range")
	assert.Equal(t, pitch.Pitch(48), l.Base())

	require.True(t, l.ShiftOctave(1))
	require.True(t, l.ShiftOctave(1))
	assert.Equal(t, pitch.Pitch(72), l.Base())
	assert.False(t, l.ShiftOctave(1))
}

type noteEvent struct {
	on    bool
	pitch pitch.Pitch
}

type recordingHandler struct {
	mu     sync.Mutex
	events []noteEvent
}

func (h *recordingHandler) NoteOn(p pitch.Pitch) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, noteEvent{on: true, pitch: p})
}

func (h *recordingHandler) NoteOff(p pitch.Pitch) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, noteEvent{on: false, pitch: p})
}

func (h *recordingHandler) Events() []noteEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]noteEvent, len(h.events))
	copy(out, h.events)
	return out
}

func runSurface(t *testing.T, delay time.Duration) (*recordingHandler, chan rune, <-chan error) {
	t.Helper()
	handler := &recordingHandler{}
	surface, err := NewSurface(handler, NewLayout(DefaultRange()), delay)
	require.NoError(t, err)

	keys := make(chan rune)
	done := make(chan error, 1)
	go func() { done <- surface.Run(context.Background(), keys) }()
	return handler, keys, done
}

func TestNewSurface_Errors(t *testing.T) {
	layout := NewLayout(DefaultRange())
	_, err := NewSurface(nil, layout, time.Second)
	assert.Error(t, err)
	_, err = NewSurface(&recordingHandler{}, nil, time.Second)
	assert.Error(t, err)
	_, err = NewSurface(&recordingHandler{}, layout, 0)
	assert.Error(t, err)
}

func TestSurface_HeldKeyRepeatsNoteOn(t *testing.T) {
	handler, keys, done := runSurface(t, time.Hour)

	keys <- 'a'
	keys <- 'a'
	keys <- 'a'
	keys <- keyEscape
	require.NoError(t, <-done)

	assert.Equal(t, []noteEvent{
		{true, 60}, {true, 60}, {true, 60},
		{false, 60},
	}, handler.Events(), "auto-repeat re-sends the same pitch, escape releases it")
}

func TestSurface_NewKeyTakesOver(t *testing.T) {
	handler, keys, done := runSurface(t, time.Hour)

	keys <- 'a'
	keys <- 'd'
	keys <- keyCtrlC
	require.NoError(t, <-done)

	assert.Equal(t, []noteEvent{
		{true, 60}, {true, 64}, {false, 64},
	}, handler.Events())
}

func TestSurface_ReleaseAfterDelay(t *testing.T) {
	handler, keys, done := runSurface(t, 20*time.Millisecond)

	keys <- 'h'
	assert.Eventually(t, func() bool {
		return len(handler.Events()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, noteEvent{false, 69}, handler.Events()[1])

	close(keys)
	require.NoError(t, <-done)
	assert.Len(t, handler.Events(), 2, "nothing held, nothing to release on exit")
}

func TestSurface_IgnoresUnmappedKeysAndShifts(t *testing.T) {
	handler, keys, done := runSurface(t, time.Hour)

	keys <- 'q'
	keys <- 'z'
	keys <- 'h'
	keys <- 'x'
	keys <- 'a'
	keys <- keyEscape
	require.NoError(t, <-done)

	assert.Equal(t, []noteEvent{
		{true, 57}, {true, 60}, {false, 60},
	}, handler.Events())
}

func TestSurface_ContextCancel(t *testing.T) {
	handler := &recordingHandler{}
	surface, err := NewSurface(handler, NewLayout(DefaultRange()), time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	keys := make(chan rune)
	done := make(chan error, 1)
	go func() { done <- surface.Run(ctx, keys) }()

	keys <- 'k'
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, []noteEvent{{true, 72}, {false, 72}}, handler.Events())
}

func TestReadKeys(t *testing.T) {
	keys := make(chan rune, 16)
	ReadKeys(strings.NewReader("aé\x1b"), keys)

	var got []rune
	for k := range keys {
		got = append(got, k)
	}
	assert.Equal(t, []rune{'a', 'é', keyEscape}, got)
}
