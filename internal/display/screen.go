// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/display/screen.go
// Summary: Session context shared by the interpreter and the synchronizer.
// Notes: Owned by the session loop goroutine; nothing here is safe for concurrent use.

package display

// Luminance tiers used by the model. CursorLum deliberately exceeds the device
// range so the highlight is distinguishable in the model; it is clamped on
// the wire.
const (
	LumDefault = 8
	LumColor   = 3
	CursorLum  = 10

	CursorGlyph = '_'
)

// Cursor is the write position. Col and Row always address a cell.
// Wrapped is set when the last advance crossed the right edge.
type Cursor struct {
	Col, Row int
	Wrapped  bool
}

// Region is an inclusive row range affected by line feeds and scrolls.
type Region struct {
	Top, Bottom int
}

// Screen bundles the buffer with the cursor, scroll region and rendition
// state that the escape interpreter mutates.
type Screen struct {
	Buf           *Buffer
	Cursor        Cursor
	Region        Region
	CursorVisible bool
	Lum           int
}

// NewScreen returns a blank screen of the given size.
func NewScreen(width, height int) *Screen {
	s := &Screen{Buf: NewBuffer(width, height)}
	s.Reset()
	return s
}

// Reset blanks the buffer, homes the cursor and restores the default scroll
// region, cursor visibility and style.
func (s *Screen) Reset() {
	s.Buf.Clear()
	s.Cursor = Cursor{}
	s.Region = s.FullRegion()
	s.CursorVisible = true
	s.Lum = LumDefault
}

func (s *Screen) Width() int  { return s.Buf.Width() }
func (s *Screen) Height() int { return s.Buf.Height() }

// FullRegion covers every row.
func (s *Screen) FullRegion() Region {
	return Region{Top: 0, Bottom: s.Buf.Height() - 1}
}

// SetRegion installs top..bottom when valid and reports whether it did.
func (s *Screen) SetRegion(top, bottom int) bool {
	if top < 0 || bottom >= s.Buf.Height() || top > bottom {
		return false
	}
	s.Region = Region{Top: top, Bottom: bottom}
	return true
}

// MoveTo places the cursor, clamping into the grid, and clears the wrap flag.
func (s *Screen) MoveTo(col, row int) {
	s.Cursor.Col = clamp(col, 0, s.Buf.Width()-1)
	s.Cursor.Row = clamp(row, 0, s.Buf.Height()-1)
	s.Cursor.Wrapped = false
}

// Composite returns a disposable copy of the buffer with the cursor glyph
// drawn in. The receiver is not modified.
func (s *Screen) Composite() *Buffer {
	c := s.Buf.Clone()
	c.Set(s.Cursor.Col, s.Cursor.Row, Cell{Glyph: CursorGlyph, Lum: CursorLum})
	return c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
