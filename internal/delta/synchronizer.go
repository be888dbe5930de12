// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/delta/synchronizer.go
// Summary: Pushes the authoritative screen buffer to the device.
// Usage: The session loop calls Flush on its frame ticker and whenever the
//   cursor blink phase changes.
// Notes: The snapshot mirrors the last buffer handed to the device and never
//   contains the composited cursor.

package delta

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/framegrace/ledwand/client"
	"github.com/framegrace/ledwand/internal/display"
)

// Mode selects how much of the buffer each flush transmits.
type Mode int

const (
	// ModeFull sends the whole glyph grid then the whole luminance grid.
	ModeFull Mode = iota
	// ModeDiff sends only cells that differ from the snapshot.
	ModeDiff
)

func (m Mode) String() string {
	if m == ModeDiff {
		return "diff"
	}
	return "full"
}

// Device is the subset of the client used for drawing.
type Device interface {
	DisplayChars(grid [][]byte, x, y int) error
	DisplayLuminance(grid [][]int, x, y int) error
	DisplayChar(x, y int, g byte) error
	DisplayCellLuminance(x, y, lum int) error
}

// FlushObserver records flush metrics.
type FlushObserver interface {
	ObserveFlush(mode Mode, cells int, duration time.Duration)
}

// Stats counts synchronizer activity.
type Stats struct {
	Flushes  int
	Cells    int
	Timeouts int
}

type cellPos struct{ x, y int }

// Synchronizer owns the snapshot and the diff logic.
type Synchronizer struct {
	mu       sync.Mutex
	dev      Device
	mode     Mode
	snapshot *display.Buffer
	cursor   *cellPos
	stats    Stats
	observer FlushObserver
	log      zerolog.Logger
}

type Option func(*Synchronizer)

func WithMode(m Mode) Option              { return func(s *Synchronizer) { s.mode = m } }
func WithObserver(o FlushObserver) Option { return func(s *Synchronizer) { s.observer = o } }
func WithLogger(l zerolog.Logger) Option  { return func(s *Synchronizer) { s.log = l } }

func New(dev Device, opts ...Option) *Synchronizer {
	s := &Synchronizer{dev: dev, mode: ModeFull, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synchronizer) Mode() Mode { return s.mode }

func (s *Synchronizer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Reset forgets the snapshot so the next flush repaints everything.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	s.cursor = nil
}

// Flush sends the screen to the device. When blinkOn is set and the cursor
// is visible the cursor glyph is drawn into a throwaway copy first.
// Acknowledgement timeouts are logged and counted but do not stop the
// flush; any other device error is returned after the snapshot is updated.
func (s *Synchronizer) Flush(screen *display.Screen, blinkOn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	frame := screen.Buf
	var cursor *cellPos
	if blinkOn && screen.CursorVisible {
		frame = screen.Composite()
		cursor = &cellPos{screen.Cursor.Col, screen.Cursor.Row}
	}

	var (
		errs  []error
		cells int
	)
	if s.mode == ModeFull || s.snapshot == nil || !sameSize(s.snapshot, frame) {
		errs = s.sendFull(frame)
		cells = frame.Width() * frame.Height()
	} else {
		errs, cells = s.sendDiff(frame)
	}

	s.snapshot = screen.Buf.Clone()
	s.cursor = cursor
	s.stats.Flushes++
	s.stats.Cells += cells
	if s.observer != nil {
		s.observer.ObserveFlush(s.mode, cells, time.Since(start))
	}
	return errors.Join(errs...)
}

func (s *Synchronizer) sendFull(frame *display.Buffer) []error {
	var errs []error
	s.check(&errs, s.dev.DisplayChars(frame.Glyphs(), 0, 0))
	s.check(&errs, s.dev.DisplayLuminance(frame.Luminances(), 0, 0))
	return errs
}

// sendDiff writes every run of changed cells on a row as one rectangle.
// The previous cursor position always counts as changed so the glyph the
// device last showed there is overwritten.
func (s *Synchronizer) sendDiff(frame *display.Buffer) ([]error, int) {
	var (
		errs  []error
		cells int
	)
	for y := 0; y < frame.Height(); y++ {
		x := 0
		for x < frame.Width() {
			if !s.changed(frame, x, y) {
				x++
				continue
			}
			start := x
			for x < frame.Width() && s.changed(frame, x, y) {
				x++
			}
			s.sendSpan(&errs, frame, start, x, y)
			cells += x - start
		}
	}
	return errs, cells
}

func (s *Synchronizer) changed(frame *display.Buffer, x, y int) bool {
	if s.cursor != nil && s.cursor.x == x && s.cursor.y == y {
		return true
	}
	return frame.Cell(x, y) != s.snapshot.Cell(x, y)
}

func (s *Synchronizer) sendSpan(errs *[]error, frame *display.Buffer, from, to, y int) {
	if to-from == 1 {
		c := frame.Cell(from, y)
		s.check(errs, s.dev.DisplayChar(from, y, c.Glyph))
		s.check(errs, s.dev.DisplayCellLuminance(from, y, c.Lum))
		return
	}
	glyphs := make([]byte, 0, to-from)
	lums := make([]int, 0, to-from)
	for x := from; x < to; x++ {
		c := frame.Cell(x, y)
		glyphs = append(glyphs, c.Glyph)
		lums = append(lums, c.Lum)
	}
	s.check(errs, s.dev.DisplayChars([][]byte{glyphs}, from, y))
	s.check(errs, s.dev.DisplayLuminance([][]int{lums}, from, y))
}

func (s *Synchronizer) check(errs *[]error, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, client.ErrTimeout) {
		s.stats.Timeouts++
		s.log.Debug().Err(err).Msg("Delta: Device did not acknowledge, continuing")
		return
	}
	*errs = append(*errs, err)
}

func sameSize(a, b *display.Buffer) bool {
	return a.Width() == b.Width() && a.Height() == b.Height()
}
