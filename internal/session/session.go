// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/session/session.go
// Summary: Event loop joining keyboard, shell output, interrupts and the blink timer.
// Usage: cmd/ledwand builds a Session around the PTY shell and the device client and calls Run.
// Notes: Only the loop goroutine touches the screen, the interpreter and the
//   synchronizer. Reader goroutines just move chunks onto channels.

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/framegrace/ledwand/internal/delta"
	"github.com/framegrace/ledwand/internal/display"
	"github.com/framegrace/ledwand/internal/parser"
)

const (
	DefaultBlinkInterval = 500 * time.Millisecond
	DefaultFlushInterval = time.Second / 30

	// CommandKey (Ctrl-]) introduces a one-key local command instead of
	// being passed to the shell.
	CommandKey byte = 0x1d

	interruptByte byte = 0x03
	readChunk          = 4096
)

// Device is what the session needs from the display client.
type Device interface {
	delta.Device
	Clear() error
	Reset(hard bool) error
}

// Session runs one terminal on one display.
type Session struct {
	dev        Device
	shell      io.ReadWriter
	keys       io.Reader
	interrupts <-chan os.Signal

	screen *display.Screen
	interp *parser.Interpreter
	sync   *delta.Synchronizer

	blinkInterval time.Duration
	flushInterval time.Duration
	mode          delta.Mode
	colorRamp     bool
	log           zerolog.Logger

	blinkOn   bool
	pending   bool
	lastFlush time.Time
	command   bool
}

type Option func(*Session)

// WithKeyboard sets the local keyboard source. Without one the session only
// mirrors shell output.
func WithKeyboard(r io.Reader) Option { return func(s *Session) { s.keys = r } }

// WithInterrupts delivers SIGINT notifications, forwarded to the shell as ^C.
func WithInterrupts(ch <-chan os.Signal) Option { return func(s *Session) { s.interrupts = ch } }

func WithMode(m delta.Mode) Option { return func(s *Session) { s.mode = m } }

// WithColorRamp renders each ANSI colour at its own luminance.
func WithColorRamp(on bool) Option { return func(s *Session) { s.colorRamp = on } }

func WithBlinkInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.blinkInterval = d
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.flushInterval = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option { return func(s *Session) { s.log = l } }

// New creates a session rendering shell output onto dev.
func New(dev Device, shell io.ReadWriter, opts ...Option) *Session {
	s := &Session{
		dev:           dev,
		shell:         shell,
		blinkInterval: DefaultBlinkInterval,
		flushInterval: DefaultFlushInterval,
		mode:          delta.ModeFull,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.screen = display.NewScreen(display.Width, display.Height)
	s.interp = parser.New(s.screen, parser.WithLogger(s.log), parser.WithColorRamp(s.colorRamp))
	s.sync = delta.New(dev, delta.WithMode(s.mode), delta.WithLogger(s.log))
	return s
}

// Screen exposes the authoritative screen. Only safe once Run has returned.
func (s *Session) Screen() *display.Screen { return s.screen }

func (s *Session) ParserStats() parser.Stats { return s.interp.Stats() }

func (s *Session) SyncStats() delta.Stats { return s.sync.Stats() }

type chunk struct {
	data []byte
	err  error
}

// pump copies reads from r onto a channel until r fails or done closes.
func pump(r io.Reader, done <-chan struct{}) <-chan chunk {
	ch := make(chan chunk)
	go func() {
		defer close(ch)
		buf := make([]byte, readChunk)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				select {
				case ch <- chunk{data: append([]byte(nil), buf[:n]...)}:
				case <-done:
					return
				}
			}
			if err != nil {
				select {
				case ch <- chunk{err: err}:
				case <-done:
				}
				return
			}
		}
	}()
	return ch
}

// Run clears the device and processes events until the shell ends, the user
// quits, or ctx is cancelled. Shell EOF and quit clear the device and return nil.
func (s *Session) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)

	s.clearDevice()

	output := pump(s.shell, done)
	var keys <-chan chunk
	if s.keys != nil {
		keys = pump(s.keys, done)
	}

	blink := time.NewTimer(s.blinkInterval)
	defer blink.Stop()
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case c, ok := <-output:
			if !ok || c.err != nil {
				s.clearDevice()
				if !ok || errors.Is(c.err, io.EOF) {
					s.log.Info().Msg("Session: Shell closed")
					return nil
				}
				return fmt.Errorf("session: read shell: %w", c.err)
			}
			s.interp.Parse(c.data)
			s.blinkOn = true
			resetTimer(blink, s.blinkInterval)
			if time.Since(s.lastFlush) >= s.flushInterval {
				s.flush()
			} else {
				s.pending = true
			}

		case c, ok := <-keys:
			if !ok || c.err != nil {
				keys = nil
				continue
			}
			if quit := s.handleKeys(c.data); quit {
				s.clearDevice()
				return nil
			}

		case <-s.interrupts:
			s.writeShell([]byte{interruptByte})

		case <-blink.C:
			s.blinkOn = !s.blinkOn
			s.flush()
			blink.Reset(s.blinkInterval)

		case <-ticker.C:
			if s.pending {
				s.flush()
			}
		}
	}
}

// handleKeys forwards keyboard input to the shell. The command key makes the
// next byte a local command; pressing it twice sends it through.
func (s *Session) handleKeys(data []byte) (quit bool) {
	start := 0
	for i, b := range data {
		if s.command {
			s.command = false
			start = i + 1
			if s.runCommand(b) {
				return true
			}
			continue
		}
		if b == CommandKey {
			s.writeShell(data[start:i])
			s.command = true
			start = i + 1
		}
	}
	s.writeShell(data[start:])
	return false
}

func (s *Session) runCommand(b byte) (quit bool) {
	switch b {
	case 'q', 'Q':
		s.log.Info().Msg("Session: Quit requested")
		return true
	case 'c', 'C':
		s.clearDevice()
		s.repaint()
	case 'r', 'R':
		if err := s.dev.Reset(false); err != nil {
			s.log.Warn().Err(err).Msg("Session: Device reset failed")
		}
		s.repaint()
	case CommandKey:
		s.writeShell([]byte{CommandKey})
	default:
		s.log.Debug().Int("key", int(b)).Msg("Session: Unknown command key")
	}
	return false
}

// repaint forgets what the device shows and pushes the whole screen. Used
// after clearing or resetting the display from the keyboard.
func (s *Session) repaint() {
	s.sync.Reset()
	s.flush()
}

func (s *Session) flush() {
	s.pending = false
	s.lastFlush = time.Now()
	if err := s.sync.Flush(s.screen, s.blinkOn); err != nil {
		s.log.Warn().Err(err).Msg("Session: Flush failed")
	}
	s.interp.ClearDirty()
}

func (s *Session) clearDevice() {
	if err := s.dev.Clear(); err != nil {
		s.log.Warn().Err(err).Msg("Session: Device clear failed")
	}
	s.sync.Reset()
}

func (s *Session) writeShell(p []byte) {
	if len(p) == 0 {
		return
	}
	if _, err := s.shell.Write(p); err != nil {
		s.log.Debug().Err(err).Msg("Session: Write to shell failed")
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
