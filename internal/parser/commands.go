// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/parser/commands.go
// Summary: Escape sequence classification and dispatch.
// Notes: Only the subset emitted by common shells and editors is modelled.

package parser

import (
	"strconv"
	"strings"

	"github.com/framegrace/ledwand/internal/display"
)

// Command is the closed set of CSI commands the interpreter understands.
type Command uint8

const (
	CmdUnknown Command = iota
	CmdSetStyle
	CmdEraseLine
	CmdSetRegion
	CmdSetMode
	CmdResetMode
	CmdCursorUp
	CmdCursorDown
	CmdCursorForward
	CmdCursorBack
	CmdColumn
	CmdPosition
	CmdErase
	CmdScroll
)

var commandNames = [...]string{
	CmdUnknown:       "unknown",
	CmdSetStyle:      "SGR",
	CmdEraseLine:     "EL",
	CmdSetRegion:     "DECSTBM",
	CmdSetMode:       "SM",
	CmdResetMode:     "RM",
	CmdCursorUp:      "CUU",
	CmdCursorDown:    "CUD",
	CmdCursorForward: "CUF",
	CmdCursorBack:    "CUB",
	CmdColumn:        "CHA",
	CmdPosition:      "CUP",
	CmdErase:         "ED",
	CmdScroll:        "SCROLL",
}

func (c Command) String() string {
	if int(c) < len(commandNames) {
		return commandNames[c]
	}
	return commandNames[CmdUnknown]
}

// Classify maps a CSI final byte to its command.
func Classify(final byte) Command {
	switch final {
	case 'm':
		return CmdSetStyle
	case 'K':
		return CmdEraseLine
	case 'r':
		return CmdSetRegion
	case 'h':
		return CmdSetMode
	case 'l':
		return CmdResetMode
	case 'A':
		return CmdCursorUp
	case 'B':
		return CmdCursorDown
	case 'C':
		return CmdCursorForward
	case 'D':
		return CmdCursorBack
	case 'G':
		return CmdColumn
	case 'H', 'f':
		return CmdPosition
	case 'J':
		return CmdErase
	case 'M':
		return CmdScroll
	default:
		return CmdUnknown
	}
}

// dispatch handles a complete sequence body (everything after ESC, final
// letter included).
func (p *Interpreter) dispatch(body []byte) {
	p.stats.Sequences++
	p.dirty = true
	p.screen.Cursor.Wrapped = false

	switch body[0] {
	case '?':
		// Mode sequences outside CSI are not modelled.
		return
	case '[':
		final := body[len(body)-1]
		p.csi(Classify(final), final, string(body[1:len(body)-1]))
	default:
		p.escape(body[0])
	}
}

func (p *Interpreter) csi(cmd Command, final byte, arg string) {
	s := p.screen
	switch cmd {
	case CmdSetStyle:
		p.setStyle(arg)
	case CmdEraseLine:
		p.eraseLine(mode(arg))
	case CmdSetRegion:
		p.setRegion(arg)
	case CmdSetMode, CmdResetMode:
		if arg != "?25" {
			p.unhandled(final, arg, "mode")
			return
		}
		s.CursorVisible = cmd == CmdSetMode
	case CmdCursorUp:
		s.MoveTo(s.Cursor.Col, s.Cursor.Row-count(arg))
	case CmdCursorDown:
		s.MoveTo(s.Cursor.Col, s.Cursor.Row+count(arg))
	case CmdCursorForward:
		s.MoveTo(s.Cursor.Col+count(arg), s.Cursor.Row)
	case CmdCursorBack:
		s.MoveTo(s.Cursor.Col-count(arg), s.Cursor.Row)
	case CmdColumn:
		s.MoveTo(count(arg)-1, s.Cursor.Row)
	case CmdPosition:
		row, col, _ := strings.Cut(arg, ";")
		s.MoveTo(count(col)-1, count(row)-1)
	case CmdErase:
		switch mode(arg) {
		case 0:
			p.eraseBelow()
		case 1:
			p.unhandled(final, arg, "clear upwards")
		case 2:
			p.clearScreen()
		default:
			p.unhandled(final, arg, "erase mode")
		}
	case CmdScroll:
		p.scrollDown(count(arg))
	default:
		p.unhandled(final, arg, "unknown")
	}
}

// escape handles two-byte sequences ESC <letter>.
func (p *Interpreter) escape(final byte) {
	switch final {
	case 'M':
		p.scrollDown(1)
	case 'D':
		p.index()
	case 'E':
		p.newLine(false)
	case 'c':
		p.screen.Reset()
	default:
		p.unhandled(final, "", "escape")
	}
}

// shortEscape handles ESC followed by a non-letter, such as ESC 7 / ESC 8
// or the keypad mode switches ESC = / ESC >.
func (p *Interpreter) shortEscape(b byte) {
	switch b {
	case '7':
		p.saved = p.screen.Cursor
	case '8':
		p.screen.MoveTo(p.saved.Col, p.saved.Row)
		p.dirty = true
	}
}

func (p *Interpreter) unhandled(final byte, arg, reason string) {
	p.stats.Unhandled++
	p.log.Debug().Str("cmd", string(final)).Str("arg", arg).Str("reason", reason).Msg("Parser: Unhandled escape sequence")
}

// colorRamp approximates the perceived brightness of black, red, green,
// yellow, blue, magenta and cyan.
var colorRamp = [...]int{1, 3, 5, 7, 2, 4, 6}

// setStyle maps SGR parameters to a luminance tier: default and white render
// at full device brightness, the other basic colours dimmed.
func (p *Interpreter) setStyle(arg string) {
	if arg == "" {
		arg = "0"
	}
	for _, part := range strings.Split(arg, ";") {
		if part == "" {
			continue
		}
		key, err := strconv.Atoi(part)
		if err != nil {
			key = 0
		}
		switch {
		case key == 0, key == 37, key == 39:
			p.screen.Lum = display.LumDefault
		case key >= 30 && key <= 36:
			p.screen.Lum = display.LumColor
			if p.ramp {
				p.screen.Lum = colorRamp[key-30]
			}
		default:
			p.log.Debug().Int("sgr", key).Msg("Parser: Unhandled style")
		}
	}
}

func (p *Interpreter) setRegion(arg string) {
	s := p.screen
	top, bottom, ok := strings.Cut(arg, ";")
	if ok {
		t, errT := strconv.Atoi(top)
		b, errB := strconv.Atoi(bottom)
		if errT == nil && errB == nil && s.SetRegion(t-1, b-1) {
			return
		}
	}
	s.Region = s.FullRegion()
}

// count parses a repeat or coordinate parameter; missing, invalid or zero
// values mean 1.
func count(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// mode parses a selector parameter; missing or invalid values mean 0.
func mode(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
