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

// Package pitch models semitone note numbers and their presentation.
package pitch

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Pitch is a semitone number using the MIDI convention, where 60 is middle C
// (C4) and 69 is A4 at 440 Hz.
type Pitch int

const (
	// Min and Max bound the supported range.
	Min Pitch = 0
	Max Pitch = 127

	// A4 is the tuning reference.
	A4          Pitch   = 69
	A4Frequency float64 = 440.0

	MiddleC Pitch = 60
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var letterClasses = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// Frequency returns the equal-tempered frequency of the pitch in Hz.
func (p Pitch) Frequency() float64 {
	return A4Frequency * math.Pow(2, float64(p-A4)/12)
}

// Valid reports whether p lies in the supported 0-127 range.
func (p Pitch) Valid() bool {
	return p >= Min && p <= Max
}

// Class returns the pitch class, 0 for C through 11 for B.
func (p Pitch) Class() int {
	c := int(p) % 12
	if c < 0 {
		c += 12
	}
	return c
}

// Octave returns the octave number in scientific pitch notation.
func (p Pitch) Octave() int {
	return int(math.Floor(float64(p)/12)) - 1
}

// Name returns the note name spelled with sharps, e.g. "C4" or "F#3".
func (p Pitch) Name() string {
	return noteNames[p.Class()] + strconv.Itoa(p.Octave())
}

func (p Pitch) String() string {
	return p.Name()
}

// IsBlackKey reports whether the pitch is an accidental in C major.
func (p Pitch) IsBlackKey() bool {
	return strings.HasSuffix(noteNames[p.Class()], "#")
}

// Label is the text printed on a piano key: only C keys are labelled.
func (p Pitch) Label() string {
	if p.Class() != 0 {
		return ""
	}
	return p.Name()
}

// Parse converts a note name such as "C4", "F#3", "Bb2" or "C-1" to a pitch.
func Parse(s string) (Pitch, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid note name %q", s)
	}
	class, ok := letterClasses[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("invalid note letter in %q", s)
	}
	rest := s[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		class++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		class--
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid octave in %q: %w", s, err)
	}
	p := Pitch((octave+1)*12 + class)
	if !p.Valid() {
		return 0, fmt.Errorf("note %q is outside the range %d-%d", s, Min, Max)
	}
	return p, nil
}
