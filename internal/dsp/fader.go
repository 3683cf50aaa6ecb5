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

package dsp

import (
	"github.com/viterin/vek/vek32"
)

const MaxGain = 2.0

// Fader is the output gain stage of the voice.
type Fader struct {
	gain float32
}

func NewFader(gain float64) *Fader {
	f := &Fader{}
	f.SetGain(gain)
	return f
}

// SetGain sets the linear gain, clamped to [0, MaxGain].
func (f *Fader) SetGain(gain float64) {
	switch {
	case gain < 0:
		gain = 0
	case gain > MaxGain:
		gain = MaxGain
	}
	f.gain = float32(gain)
}

func (f *Fader) Gain() float64 { return float64(f.gain) }

func (f *Fader) Process(buf []float32) {
	if len(buf) == 0 || f.gain == 1 {
		return
	}
	vek32.MulNumber_Inplace(buf, f.gain)
}
