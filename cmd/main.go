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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/loqalabs/loqa-piano-go/internal/audio"
	"github.com/loqalabs/loqa-piano-go/internal/config"
	"github.com/loqalabs/loqa-piano-go/internal/keyboard"
	"github.com/loqalabs/loqa-piano-go/internal/pitch"
	"github.com/loqalabs/loqa-piano-go/internal/voice"
)

// overrides holds command line values that replace configuration entries
type overrides struct {
	driver   string
	lowNote  string
	highNote string
}

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	driverName := flag.String("driver", "", "Audio driver, one of "+strings.Join(audio.DriverNames(), ", ")+" (overrides the config file)")
	lowNote := flag.String("low", "", "Lowest playable note, as a number or a name such as A3")
	highNote := flag.String("high", "", "Highest playable note, as a number or a name such as F5")
	printConfig := flag.Bool("print-config", false, "Print the effective configuration and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath, overrides{driver: *driverName, lowNote: *lowNote, highNote: *highNote})
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	if *printConfig {
		data, err := cfg.Marshal()
		if err != nil {
			log.Fatalf("❌ Failed to render configuration: %v", err)
		}
		fmt.Print(string(data))
		return
	}

	terminal, err := keyboard.OpenTerminal(os.Stdin)
	if err != nil {
		log.Fatalf("❌ Failed to open keyboard: %v", err)
	}
	defer func() { _ = terminal.Close() }()

	// Raw mode disables output post-processing, so lines need explicit returns
	log.SetOutput(crlfWriter{os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, terminal.Keys(), crlfWriter{os.Stdout}); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("❌ %v", err)
	}
	log.Println("👋 Piano stopped")
}

// loadConfig reads the optional file and applies command line overrides
func loadConfig(path string, o overrides) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
	}

	if o.driver != "" {
		cfg.Audio.Driver = o.driver
	}
	if o.lowNote != "" {
		p, err := parseNote(o.lowNote)
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid -low: %w", err)
		}
		cfg.Keyboard.LowNote = config.Note(p)
	}
	if o.highNote != "" {
		p, err := parseNote(o.highNote)
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid -high: %w", err)
		}
		cfg.Keyboard.HighNote = config.Note(p)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// parseNote accepts a note number or a note name
func parseNote(s string) (pitch.Pitch, error) {
	if n, err := strconv.Atoi(s); err == nil {
		p := pitch.Pitch(n)
		if !p.Valid() {
			return 0, fmt.Errorf("note %d is outside %d-%d", n, pitch.Min, pitch.Max)
		}
		return p, nil
	}
	return pitch.Parse(s)
}

// buildBackend creates the output driver and the software voice on top of it
func buildBackend(cfg config.Config) (*audio.SynthBackend, error) {
	driver, err := audio.NewDriver(cfg.Audio.Driver)
	if err != nil {
		return nil, err
	}
	synthCfg, err := cfg.SynthConfig()
	if err != nil {
		return nil, err
	}
	return audio.NewSynthBackend(driver, synthCfg)
}

// run plays the keyboard until the key stream ends or ctx is cancelled
func run(ctx context.Context, cfg config.Config, keys <-chan rune, out io.Writer) error {
	backend, err := buildBackend(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Printf("⚠️ Failed to close audio: %v", err)
		}
	}()

	controller := voice.NewController(backend)
	layout := keyboard.NewLayout(cfg.KeyboardRange())
	surface, err := keyboard.NewSurface(controller, layout, cfg.Keyboard.ReleaseDelay)
	if err != nil {
		return err
	}

	// The engine follows the keyboard being shown: start on appear, stop on disappear
	controller.Start()
	defer controller.Stop()

	printBanner(out, cfg, layout, controller.Audible())
	return surface.Run(ctx, keys)
}

// printBanner shows the keyboard and its key bindings
func printBanner(w io.Writer, cfg config.Config, layout *keyboard.Layout, audible bool) {
	rng := cfg.KeyboardRange()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "🎹 Loqa Piano")
	fmt.Fprintln(w, "=============")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Keyboard: %s to %s\n", rng.LowNote, rng.HighNote)
	fmt.Fprintf(w, "  %s\n", rng.Render())
	fmt.Fprintln(w)

	var bindings []string
	for _, b := range layout.Bindings() {
		bindings = append(bindings, fmt.Sprintf("%c=%s", b.Key, b.Pitch))
	}
	fmt.Fprintf(w, "⌨️  Keys: %s\n", strings.Join(bindings, " "))
	fmt.Fprintln(w, "↕️  z/x: octave down/up")
	if audible {
		fmt.Fprintf(w, "🔊 Audio: %s, %.0f Hz\n", cfg.Audio.Driver, cfg.Audio.SampleRate)
	} else {
		fmt.Fprintln(w, "🔇 Audio: unavailable, playing silently")
	}
	fmt.Fprintln(w, "⏹️  Press Esc or Ctrl+C to stop")
	fmt.Fprintln(w)
}

// crlfWriter turns "\n" into "\r\n" for terminals in raw mode
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write([]byte(strings.ReplaceAll(string(p), "\n", "\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
