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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Terminal reads key presses from a terminal in raw mode.
type Terminal struct {
	in       *os.File
	fd       int
	oldState *term.State
	keys     chan rune
	once     sync.Once
}

// OpenTerminal switches in to raw mode so that every key press is delivered
// immediately and without echo.
func OpenTerminal(in *os.File) (*Terminal, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("input is not a terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}

	t := &Terminal{
		in:       in,
		fd:       fd,
		oldState: oldState,
		keys:     make(chan rune, 64),
	}
	go ReadKeys(in, t.keys)
	return t, nil
}

// Keys delivers key presses; it is closed when input ends.
func (t *Terminal) Keys() <-chan rune {
	return t.keys
}

// Close restores the terminal state.
func (t *Terminal) Close() error {
	var err error
	t.once.Do(func() {
		if restoreErr := term.Restore(t.fd, t.oldState); restoreErr != nil {
			err = fmt.Errorf("failed to restore terminal: %w", restoreErr)
		}
	})
	return err
}

// ReadKeys streams runes from r to keys until r fails, then closes keys.
func ReadKeys(r io.Reader, keys chan<- rune) {
	defer close(keys)
	br := bufio.NewReader(r)
	for {
		key, _, err := br.ReadRune()
		if err != nil {
			return
		}
		keys <- key
	}
}
