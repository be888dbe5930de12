// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: simulator/render.go
// Summary: Draws a device snapshot on a tcell screen.

package simulator

import (
	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/ledwand/internal/display"
)

// Brightness bins luminance the way the wall appears to the eye.
type Brightness int

const (
	Off Brightness = iota
	Dim
	Normal
	Bright
)

func BrightnessOf(lum int) Brightness {
	switch {
	case lum < 1:
		return Off
	case lum < 4:
		return Dim
	case lum < 12:
		return Normal
	default:
		return Bright
	}
}

// Style returns the tcell style for a bin. Coloured mode mimics the wall's
// tint per bin; otherwise shades of grey are used.
func (b Brightness) Style(colored bool) tcell.Style {
	st := tcell.StyleDefault
	if colored {
		switch b {
		case Dim:
			return st.Foreground(tcell.ColorBlue)
		case Normal:
			return st.Foreground(tcell.ColorYellow)
		case Bright:
			return st.Foreground(tcell.ColorWhite).Bold(true)
		}
		return st
	}
	switch b {
	case Dim:
		return st.Foreground(tcell.ColorGray).Dim(true)
	case Normal:
		return st.Foreground(tcell.ColorSilver)
	case Bright:
		return st.Foreground(tcell.ColorWhite).Bold(true)
	}
	return st
}

// Render draws buf inside a frame with its top-left corner at the origin.
// The screen is not shown; callers invoke Show.
func Render(screen tcell.Screen, buf *display.Buffer, colored bool) {
	w, h := buf.Width(), buf.Height()
	border := tcell.StyleDefault

	screen.SetContent(0, 0, '+', nil, border)
	screen.SetContent(w+1, 0, '+', nil, border)
	screen.SetContent(0, h+1, '+', nil, border)
	screen.SetContent(w+1, h+1, '+', nil, border)
	for x := 1; x <= w; x++ {
		screen.SetContent(x, 0, '-', nil, border)
		screen.SetContent(x, h+1, '-', nil, border)
	}
	for y := 1; y <= h; y++ {
		screen.SetContent(0, y, '|', nil, border)
		screen.SetContent(w+1, y, '|', nil, border)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := buf.Cell(x, y)
			b := BrightnessOf(c.Lum)
			ch := rune(c.Glyph)
			if b == Off || ch < 0x20 || ch >= 0x7f {
				ch = ' '
			}
			screen.SetContent(x+1, y+1, ch, nil, b.Style(colored))
		}
	}
}
