// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/parser/terminal.go
// Summary: Cursor motion, wrapping, erasing and scrolling applied to the screen.

package parser

import "github.com/framegrace/ledwand/internal/display"

// placeGlyph writes g at the cursor with the current style and advances.
func (p *Interpreter) placeGlyph(g byte) {
	s := p.screen
	s.Buf.Set(s.Cursor.Col, s.Cursor.Row, display.Cell{Glyph: g, Lum: s.Lum})
	p.dirty = true
	if s.Cursor.Col >= s.Width()-1 {
		p.newLine(true)
		return
	}
	s.Cursor.Col++
}

// newLine moves to column 0 of the next row, scrolling the region when the
// cursor sits on its bottom row. wrap records whether the advance came from
// running off the right edge.
func (p *Interpreter) newLine(wrap bool) {
	s := p.screen
	s.Cursor.Col = 0
	s.Cursor.Wrapped = wrap
	p.dirty = true
	switch {
	case s.Cursor.Row == s.Region.Bottom:
		s.Buf.ScrollRegion(s.Region.Top, s.Region.Bottom, 1)
	case s.Cursor.Row < s.Height()-1:
		s.Cursor.Row++
	}
}

// index moves down one row without touching the column.
func (p *Interpreter) index() {
	col := p.screen.Cursor.Col
	p.newLine(false)
	p.screen.Cursor.Col = col
}

// carriageReturn returns to column 0. A CR arriving right after an automatic
// wrap refers to the row that wrapped, so the cursor steps back up instead
// of leaving a blank line behind.
func (p *Interpreter) carriageReturn() {
	c := &p.screen.Cursor
	if c.Col == 0 && c.Wrapped && c.Row > 0 {
		c.Row--
	}
	c.Col = 0
	c.Wrapped = false
	p.dirty = true
}

// backspace steps left and blanks the vacated cell. Right after a wrap the
// previous cell is the last column of the row above.
func (p *Interpreter) backspace() {
	s := p.screen
	c := &s.Cursor
	switch {
	case c.Col > 0:
		c.Col--
	case c.Wrapped && c.Row > 0:
		c.Row--
		c.Col = s.Width() - 1
	default:
		c.Wrapped = false
		return
	}
	c.Wrapped = false
	s.Buf.Set(c.Col, c.Row, display.Blank)
	p.dirty = true
}

// tab advances to the next multiple-of-eight column, stopping at the edge.
func (p *Interpreter) tab() {
	s := p.screen
	s.MoveTo((s.Cursor.Col/8+1)*8, s.Cursor.Row)
	p.dirty = true
}

// eraseLine clears part of the cursor row: 0 to the end, 1 to the start, 2 all of it.
func (p *Interpreter) eraseLine(mode int) {
	s := p.screen
	col, row, w := s.Cursor.Col, s.Cursor.Row, s.Width()
	switch mode {
	case 1:
		s.Buf.Fill(0, row, col+1, 1, display.Blank)
	case 2:
		s.Buf.Fill(0, row, w, 1, display.Blank)
	default:
		s.Buf.Fill(col, row, w-col, 1, display.Blank)
	}
}

// eraseBelow clears from the cursor to the end of the screen.
func (p *Interpreter) eraseBelow() {
	s := p.screen
	p.eraseLine(0)
	s.Buf.Fill(0, s.Cursor.Row+1, s.Width(), s.Height()-s.Cursor.Row-1, display.Blank)
}

// clearScreen blanks everything, homes the cursor and restores the default
// scroll region and cursor visibility. The current style survives.
func (p *Interpreter) clearScreen() {
	s := p.screen
	s.Buf.Clear()
	s.MoveTo(0, 0)
	s.Region = s.FullRegion()
	s.CursorVisible = true
}

// scrollDown inserts n blank rows at the top of the scroll region; rows
// pushed past its bottom are lost.
func (p *Interpreter) scrollDown(n int) {
	s := p.screen
	s.Buf.ScrollRegion(s.Region.Top, s.Region.Bottom, -n)
}
