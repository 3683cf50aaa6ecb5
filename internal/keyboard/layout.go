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
	"strings"
	"unicode"

	"github.com/loqalabs/loqa-piano-go/internal/pitch"
)

// qwertyKeys are ordered so that the home row plays the white keys and the
// row above plays the black keys, starting at C.
const qwertyKeys = "awsedftgyhujkolp;'"

// Layout maps computer keys onto the keyboard range. The mapping starts at a
// C and can be moved by octaves.
type Layout struct {
	rng  Range
	base pitch.Pitch
}

// NewLayout starts the mapping at the first C inside r, or at the low note
// when the range holds no C.
func NewLayout(r Range) *Layout {
	base := r.LowNote
	for p := r.LowNote; p <= r.HighNote; p++ {
		if p.Class() == 0 {
			base = p
			break
		}
	}
	return &Layout{rng: r, base: base}
}

func (l *Layout) Range() Range { return l.rng }

// Base is the pitch played by the first mapped key.
func (l *Layout) Base() pitch.Pitch { return l.base }

// Lookup returns the pitch bound to key. Keys that map outside the range are
// not playable.
func (l *Layout) Lookup(key rune) (pitch.Pitch, bool) {
	i := strings.IndexRune(qwertyKeys, unicode.ToLower(key))
	if i < 0 {
		return 0, false
	}
	p := l.base + pitch.Pitch(i)
	if !l.rng.Contains(p) {
		return 0, false
	}
	return p, true
}

// ShiftOctave moves the mapping by delta octaves. The shift is refused when
// no mapped key would remain inside the range.
func (l *Layout) ShiftOctave(delta int) bool {
	base := l.base + pitch.Pitch(12*delta)
	top := base + pitch.Pitch(len(qwertyKeys)-1)
	if top < l.rng.LowNote || base > l.rng.HighNote {
		return false
	}
	l.base = base
	return true
}

// Binding pairs a computer key with the pitch it plays.
type Binding struct {
	Key   rune
	Pitch pitch.Pitch
}

// Bindings lists the playable keys in ascending pitch order.
func (l *Layout) Bindings() []Binding {
	var out []Binding
	for _, k := range qwertyKeys {
		if p, ok := l.Lookup(k); ok {
			out = append(out, Binding{Key: k, Pitch: p})
		}
	}
	return out
}
