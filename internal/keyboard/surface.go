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
	"fmt"
	"log"
	"time"
	"unicode"

	"github.com/loqalabs/loqa-piano-go/internal/pitch"
)

// NoteHandler receives note events from the surface.
type NoteHandler interface {
	NoteOn(p pitch.Pitch)
	NoteOff(p pitch.Pitch)
}

const (
	keyCtrlC  = 0x03
	keyEscape = 0x1b

	keyOctaveDown = 'z'
	keyOctaveUp   = 'x'

	DefaultReleaseDelay = 500 * time.Millisecond
)

// Surface turns a stream of key presses into note events. Terminals report
// presses only, repeating them while a key is held, so a key counts as held
// until no press of it arrived for ReleaseDelay.
type Surface struct {
	handler      NoteHandler
	layout       *Layout
	releaseDelay time.Duration
}

func NewSurface(handler NoteHandler, layout *Layout, releaseDelay time.Duration) (*Surface, error) {
	if handler == nil {
		return nil, fmt.Errorf("note handler is nil")
	}
	if layout == nil {
		return nil, fmt.Errorf("keyboard layout is nil")
	}
	if releaseDelay <= 0 {
		return nil, fmt.Errorf("invalid release delay %v", releaseDelay)
	}
	return &Surface{handler: handler, layout: layout, releaseDelay: releaseDelay}, nil
}

func (s *Surface) Layout() *Layout { return s.layout }

// Run dispatches key presses until Escape or Ctrl-C is read, keys is closed or
// ctx is done. Every handler call happens on the calling goroutine. A held
// note is released before Run returns.
func (s *Surface) Run(ctx context.Context, keys <-chan rune) error {
	timer := time.NewTimer(s.releaseDelay)
	timer.Stop()
	defer timer.Stop()

	var held pitch.Pitch
	holding := false
	release := func() {
		if holding {
			s.handler.NoteOff(held)
			holding = false
		}
	}

	for {
		select {
		case <-ctx.Done():
			release()
			return ctx.Err()

		case <-timer.C:
			release()

		case key, ok := <-keys:
			if !ok {
				release()
				return nil
			}
			switch unicode.ToLower(key) {
			case keyCtrlC, keyEscape:
				release()
				return nil
			case keyOctaveDown:
				s.shift(-1)
				continue
			case keyOctaveUp:
				s.shift(1)
				continue
			}

			p, ok := s.layout.Lookup(key)
			if !ok {
				continue
			}
			s.handler.NoteOn(p)
			held, holding = p, true
			timer.Reset(s.releaseDelay)
		}
	}
}

func (s *Surface) shift(delta int) {
	if s.layout.ShiftOctave(delta) {
		log.Printf("🎹 Keys now start at %s", s.layout.Base())
	}
}
