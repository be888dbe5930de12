// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/display/buffer.go
// Summary: Two-plane (glyph, luminance) grid mirroring the LED wall.
// Usage: Mutated by the escape interpreter, cloned by the delta synchronizer.
// Notes: Out-of-bounds addressing is a silent no-op; wrap arithmetic probes one column past the edge.

package display

import "strings"

// Physical display geometry.
const (
	Width  = 56
	Height = 20
)

// Cell is one character position on the wall.
type Cell struct {
	Glyph byte
	Lum   int
}

// Blank is the cell used for cleared and freshly scrolled-in positions.
var Blank = Cell{Glyph: ' ', Lum: 0}

// Buffer is a fixed-size grid of cells. Its dimensions never change after
// construction.
type Buffer struct {
	width, height int
	cells         []Cell
}

// NewBuffer returns a blank buffer of the given size.
func NewBuffer(width, height int) *Buffer {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	b := &Buffer{width: width, height: height, cells: make([]Cell, width*height)}
	b.Clear()
	return b
}

func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }

// InBounds reports whether x,y addresses a cell.
func (b *Buffer) InBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// Cell returns the cell at x,y or Blank when out of bounds.
func (b *Buffer) Cell(x, y int) Cell {
	if !b.InBounds(x, y) {
		return Blank
	}
	return b.cells[y*b.width+x]
}

// Set replaces the cell at x,y.
func (b *Buffer) Set(x, y int, c Cell) {
	if !b.InBounds(x, y) {
		return
	}
	b.cells[y*b.width+x] = c
}

func (b *Buffer) SetGlyph(x, y int, g byte) {
	if !b.InBounds(x, y) {
		return
	}
	b.cells[y*b.width+x].Glyph = g
}

func (b *Buffer) SetLum(x, y int, lum int) {
	if !b.InBounds(x, y) {
		return
	}
	b.cells[y*b.width+x].Lum = lum
}

// Fill sets every cell of the rectangle to c. The rectangle is clipped to the
// buffer.
func (b *Buffer) Fill(x, y, w, h int, c Cell) {
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, b.width), min(y+h, b.height)
	for row := y0; row < y1; row++ {
		base := row * b.width
		for col := x0; col < x1; col++ {
			b.cells[base+col] = c
		}
	}
}

// Clear blanks the whole buffer.
func (b *Buffer) Clear() {
	for i := range b.cells {
		b.cells[i] = Blank
	}
}

// ScrollRegion shifts rows top..bottom (inclusive) by n. Positive n moves
// content up, dropping rows at top and inserting blank rows at bottom;
// negative n moves content down. Rows outside the region are untouched.
func (b *Buffer) ScrollRegion(top, bottom, n int) {
	top, bottom = max(top, 0), min(bottom, b.height-1)
	if top > bottom || n == 0 {
		return
	}
	span := bottom - top + 1
	if n >= span || -n >= span {
		b.Fill(0, top, b.width, span, Blank)
		return
	}
	w := b.width
	if n > 0 {
		copy(b.cells[top*w:(bottom+1-n)*w], b.cells[(top+n)*w:(bottom+1)*w])
		b.Fill(0, bottom+1-n, w, n, Blank)
		return
	}
	n = -n
	copy(b.cells[(top+n)*w:(bottom+1)*w], b.cells[top*w:(bottom+1-n)*w])
	b.Fill(0, top, w, n, Blank)
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{width: b.width, height: b.height, cells: make([]Cell, len(b.cells))}
	copy(c.cells, b.cells)
	return c
}

// CopyFrom overwrites b with src. Both buffers must share dimensions;
// mismatched sources are ignored.
func (b *Buffer) CopyFrom(src *Buffer) {
	if src == nil || src.width != b.width || src.height != b.height {
		return
	}
	copy(b.cells, src.cells)
}

// Equal reports whether both buffers hold identical cells.
func (b *Buffer) Equal(o *Buffer) bool {
	if o == nil || b.width != o.width || b.height != o.height {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// Glyphs returns a row-major copy of the glyph plane.
func (b *Buffer) Glyphs() [][]byte {
	out := make([][]byte, b.height)
	for y := range out {
		row := make([]byte, b.width)
		for x := range row {
			row[x] = b.cells[y*b.width+x].Glyph
		}
		out[y] = row
	}
	return out
}

// Luminances returns a row-major copy of the luminance plane.
func (b *Buffer) Luminances() [][]int {
	out := make([][]int, b.height)
	for y := range out {
		row := make([]int, b.width)
		for x := range row {
			row[x] = b.cells[y*b.width+x].Lum
		}
		out[y] = row
	}
	return out
}

// Row returns the glyphs of row y as a string, trailing spaces trimmed.
func (b *Buffer) Row(y int) string {
	if y < 0 || y >= b.height {
		return ""
	}
	row := make([]byte, b.width)
	for x := range row {
		row[x] = b.cells[y*b.width+x].Glyph
	}
	return strings.TrimRight(string(row), " ")
}

// String dumps the glyph plane, one line per row. Handy in test failures.
func (b *Buffer) String() string {
	var sb strings.Builder
	for y := 0; y < b.height; y++ {
		sb.WriteByte('|')
		for x := 0; x < b.width; x++ {
			sb.WriteByte(b.cells[y*b.width+x].Glyph)
		}
		sb.WriteString("|\n")
	}
	return sb.String()
}
