// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillRows(b *Buffer) {
	for y := 0; y < b.Height(); y++ {
		for x := 0; x < b.Width(); x++ {
			b.Set(x, y, Cell{Glyph: byte('A' + y), Lum: y})
		}
	}
}

func TestOutOfBoundsIsNoop(t *testing.T) {
	b := NewBuffer(Width, Height)
	before := b.Clone()
	b.Set(Width, 0, Cell{Glyph: 'x'})
	b.SetGlyph(-1, 3, 'x')
	b.SetLum(0, Height, 5)
	b.Fill(-10, -10, 5, 5, Cell{Glyph: 'x'})
	assert.True(t, b.Equal(before))
	assert.Equal(t, Blank, b.Cell(Width, 0))
}

func TestFillClips(t *testing.T) {
	b := NewBuffer(4, 3)
	b.Fill(2, 1, 10, 10, Cell{Glyph: '#', Lum: 1})
	assert.Equal(t, "", b.Row(0))
	assert.Equal(t, "  ##", b.Row(1))
	assert.Equal(t, "  ##", b.Row(2))
}

func TestScrollRegionUp(t *testing.T) {
	b := NewBuffer(3, 6)
	fillRows(b)
	b.ScrollRegion(1, 4, 1)
	rows := []string{"AAA", "CCC", "DDD", "EEE", "", "FFF"}
	for y, want := range rows {
		assert.Equal(t, want, b.Row(y), "row %d", y)
	}
	assert.Equal(t, 0, b.Cell(0, 4).Lum)
}

func TestScrollRegionDown(t *testing.T) {
	b := NewBuffer(3, 6)
	fillRows(b)
	b.ScrollRegion(1, 4, -2)
	rows := []string{"AAA", "", "", "BBB", "CCC", "FFF"}
	for y, want := range rows {
		assert.Equal(t, want, b.Row(y), "row %d", y)
	}
}

func TestScrollRegionLeavesOutsideRowsAlone(t *testing.T) {
	b := NewBuffer(Width, Height)
	fillRows(b)
	ref := b.Clone()
	for i := 0; i < 50; i++ {
		b.ScrollRegion(4, 14, 1)
	}
	for y := 0; y < Height; y++ {
		if y >= 4 && y <= 14 {
			continue
		}
		for x := 0; x < Width; x++ {
			require.Equal(t, ref.Cell(x, y), b.Cell(x, y), "cell %d,%d", x, y)
		}
	}
	assert.Equal(t, "", b.Row(10))
}

func TestScrollRegionOversizedShiftBlanks(t *testing.T) {
	b := NewBuffer(2, 4)
	fillRows(b)
	b.ScrollRegion(1, 2, 5)
	assert.Equal(t, []string{"AA", "", "", "DD"}, []string{b.Row(0), b.Row(1), b.Row(2), b.Row(3)})
}

func TestCloneIsIndependent(t *testing.T) {
	b := NewBuffer(Width, Height)
	c := b.Clone()
	c.Set(0, 0, Cell{Glyph: 'z', Lum: 3})
	assert.False(t, b.Equal(c))
	b.CopyFrom(c)
	assert.True(t, b.Equal(c))
}

func TestPlanes(t *testing.T) {
	b := NewBuffer(2, 2)
	b.Set(1, 0, Cell{Glyph: 'q', Lum: 7})
	assert.Equal(t, [][]byte{{' ', 'q'}, {' ', ' '}}, b.Glyphs())
	assert.Equal(t, [][]int{{0, 7}, {0, 0}}, b.Luminances())
}

func TestScreenCompositeDoesNotTouchBuffer(t *testing.T) {
	s := NewScreen(Width, Height)
	s.Buf.Set(3, 2, Cell{Glyph: 'k', Lum: LumDefault})
	s.MoveTo(3, 2)
	c := s.Composite()
	assert.Equal(t, Cell{Glyph: CursorGlyph, Lum: CursorLum}, c.Cell(3, 2))
	assert.Equal(t, Cell{Glyph: 'k', Lum: LumDefault}, s.Buf.Cell(3, 2))
}

func TestScreenMoveToClamps(t *testing.T) {
	s := NewScreen(Width, Height)
	s.Cursor.Wrapped = true
	s.MoveTo(100, -4)
	assert.Equal(t, Cursor{Col: Width - 1, Row: 0}, s.Cursor)
}

func TestSetRegionValidates(t *testing.T) {
	s := NewScreen(Width, Height)
	assert.False(t, s.SetRegion(5, 3))
	assert.False(t, s.SetRegion(0, Height))
	assert.True(t, s.SetRegion(4, 14))
	assert.Equal(t, Region{Top: 4, Bottom: 14}, s.Region)
	s.Reset()
	assert.Equal(t, s.FullRegion(), s.Region)
}
