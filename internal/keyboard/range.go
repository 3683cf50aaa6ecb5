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

// Package keyboard is the input surface of the piano: it describes the
// playable key range and turns key presses into note events.
package keyboard

import (
	"fmt"
	"strings"

	"github.com/loqalabs/loqa-piano-go/internal/pitch"
)

// Range is the span of playable keys, both ends inclusive.
type Range struct {
	LowNote  pitch.Pitch
	HighNote pitch.Pitch
}

// DefaultRange spans A3 to F5.
func DefaultRange() Range {
	return Range{LowNote: 57, HighNote: 77}
}

func (r Range) Validate() error {
	if !r.LowNote.Valid() || !r.HighNote.Valid() {
		return fmt.Errorf("keyboard range %d-%d is outside %d-%d", r.LowNote, r.HighNote, pitch.Min, pitch.Max)
	}
	if r.LowNote > r.HighNote {
		return fmt.Errorf("keyboard low note %s is above high note %s", r.LowNote, r.HighNote)
	}
	return nil
}

func (r Range) Contains(p pitch.Pitch) bool {
	return p >= r.LowNote && p <= r.HighNote
}

func (r Range) Len() int {
	if r.HighNote < r.LowNote {
		return 0
	}
	return int(r.HighNote-r.LowNote) + 1
}

// Pitches lists every pitch in the range in ascending order.
func (r Range) Pitches() []pitch.Pitch {
	out := make([]pitch.Pitch, 0, r.Len())
	for p := r.LowNote; p <= r.HighNote; p++ {
		out = append(out, p)
	}
	return out
}

// Key describes how one key is drawn.
type Key struct {
	Pitch pitch.Pitch
	Label string
	Black bool
}

func (r Range) Keys() []Key {
	keys := make([]Key, 0, r.Len())
	for _, p := range r.Pitches() {
		keys = append(keys, Key{Pitch: p, Label: p.Label(), Black: p.IsBlackKey()})
	}
	return keys
}

// Render draws the range on one line: black keys as "#", white keys as their
// label or "_".
func (r Range) Render() string {
	parts := make([]string, 0, r.Len())
	for _, k := range r.Keys() {
		switch {
		case k.Black:
			parts = append(parts, "#")
		case k.Label != "":
			parts = append(parts, k.Label)
		default:
			parts = append(parts, "_")
		}
	}
	return strings.Join(parts, " ")
}
