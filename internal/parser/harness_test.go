// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/parser/harness_test.go
// Summary: Test harness for sending sequences and checking screen state.

package parser

import (
	"testing"

	"github.com/framegrace/ledwand/internal/display"
)

type testHarness struct {
	screen *display.Screen
	p      *Interpreter
}

func newHarness() *testHarness {
	s := display.NewScreen(display.Width, display.Height)
	return &testHarness{screen: s, p: New(s)}
}

func (h *testHarness) send(seq string) { h.p.Parse([]byte(seq)) }

func (h *testHarness) assertCursor(t *testing.T, col, row int) {
	t.Helper()
	c := h.screen.Cursor
	if c.Col != col || c.Row != row {
		t.Fatalf("cursor at (%d,%d), want (%d,%d)\n%s", c.Col, c.Row, col, row, h.screen.Buf)
	}
}

func (h *testHarness) assertGlyph(t *testing.T, col, row int, want byte) {
	t.Helper()
	if got := h.screen.Buf.Cell(col, row).Glyph; got != want {
		t.Fatalf("cell (%d,%d) = %q, want %q\n%s", col, row, got, want, h.screen.Buf)
	}
}

func (h *testHarness) assertRow(t *testing.T, row int, want string) {
	t.Helper()
	if got := h.screen.Buf.Row(row); got != want {
		t.Fatalf("row %d = %q, want %q", row, got, want)
	}
}

// fillLabelled writes a distinct letter on every row so scroll effects are visible.
func (h *testHarness) fillLabelled() {
	for y := 0; y < h.screen.Height(); y++ {
		for x := 0; x < h.screen.Width(); x++ {
			h.screen.Buf.Set(x, y, display.Cell{Glyph: byte('a' + y), Lum: display.LumDefault})
		}
	}
}
