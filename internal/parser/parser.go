// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/parser/parser.go
// Summary: Byte-stream state machine separating literal output from escape sequences.
// Usage: The session loop feeds every chunk read from the shell into Write.
// Notes: Input is remote-controlled; malformed sequences are dropped, never fatal.

package parser

import (
	"errors"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"

	"github.com/framegrace/ledwand/internal/display"
)

type State int

const (
	StateLiteral State = iota
	StateSequence
	StateOSC
	StateOSCEscape
	StateCharset
)

const (
	// MaxSequence bounds the escape accumulator, ESC included.
	MaxSequence = 10
	// maxOSC bounds operating system command strings (window titles).
	maxOSC = 512

	esc = 0x1b
	bel = 0x07
	can = 0x18
	sub = 0x1a
	del = 0x7f

	// replacementGlyph stands in for anything the device font cannot show.
	replacementGlyph = '?'
)

// ErrSequenceOverflow is reported through the log and Stats when an escape
// sequence outgrows the accumulator. The sequence is discarded.
var ErrSequenceOverflow = errors.New("parser: escape sequence overflow")

// Stats counts notable interpreter events.
type Stats struct {
	Sequences int
	Unhandled int
	Overflows int
}

// Interpreter consumes terminal output and applies it to a Screen.
type Interpreter struct {
	screen *display.Screen
	state  State
	seq    []byte
	oscLen int
	utf    []byte
	saved  display.Cursor
	dirty  bool
	ramp   bool
	stats  Stats
	log    zerolog.Logger
}

// Option configures an Interpreter.
type Option func(*Interpreter)

func WithLogger(l zerolog.Logger) Option { return func(p *Interpreter) { p.log = l } }

// WithColorRamp gives each basic foreground colour its own luminance
// instead of the single dimmed tier.
func WithColorRamp(on bool) Option { return func(p *Interpreter) { p.ramp = on } }

// New creates an interpreter driving s.
func New(s *display.Screen, opts ...Option) *Interpreter {
	p := &Interpreter{
		screen: s,
		state:  StateLiteral,
		seq:    make([]byte, 0, MaxSequence+1),
		utf:    make([]byte, 0, utf8.UTFMax),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Interpreter) State() State            { return p.state }
func (p *Interpreter) Stats() Stats            { return p.stats }
func (p *Interpreter) Screen() *display.Screen { return p.screen }

// Dirty reports whether the screen changed since the last ClearDirty.
func (p *Interpreter) Dirty() bool { return p.dirty }
func (p *Interpreter) ClearDirty() { p.dirty = false }

// Write implements io.Writer. It never fails.
func (p *Interpreter) Write(data []byte) (int, error) {
	p.Parse(data)
	return len(data), nil
}

// Parse processes a slice of bytes from the shell.
func (p *Interpreter) Parse(data []byte) {
	for _, b := range data {
		switch p.state {
		case StateLiteral:
			p.literal(b)
		case StateSequence:
			p.sequence(b)
		case StateOSC:
			switch b {
			case bel:
				p.state = StateLiteral
			case esc:
				p.state = StateOSCEscape
			default:
				p.oscLen++
				if p.oscLen > maxOSC {
					p.overflow()
				}
			}
		case StateOSCEscape:
			// ESC \ terminates; anything else is malformed and ends the string too.
			p.state = StateLiteral
		case StateCharset:
			p.state = StateLiteral
		}
	}
}

func (p *Interpreter) literal(b byte) {
	if b >= 0x80 {
		p.multibyte(b)
		return
	}
	if len(p.utf) > 0 {
		p.flushInvalidUTF()
	}
	switch {
	case b == esc:
		p.state = StateSequence
		p.seq = append(p.seq[:0], b)
	case b == '\r':
		p.carriageReturn()
	case b == '\n', b == '\v', b == '\f':
		p.newLine(false)
	case b == '\b':
		p.backspace()
	case b == '\t':
		p.tab()
	case b >= 0x20 && b < del:
		p.placeGlyph(b)
	case b == bel, b == del, b == 0:
	default:
		p.log.Debug().Int("code", int(b)).Msg("Parser: Unhandled character code")
	}
}

// multibyte collects UTF-8 sequences. The device font is 7-bit, so every
// decoded rune is drawn as a replacement glyph spanning its display width.
func (p *Interpreter) multibyte(b byte) {
	p.utf = append(p.utf, b)
	if !utf8.FullRune(p.utf) {
		if len(p.utf) >= utf8.UTFMax {
			p.flushInvalidUTF()
		}
		return
	}
	r, size := utf8.DecodeRune(p.utf)
	p.utf = p.utf[:0]
	if r == utf8.RuneError && size <= 1 {
		p.placeGlyph(replacementGlyph)
		return
	}
	for i := 0; i < runewidth.RuneWidth(r); i++ {
		p.placeGlyph(replacementGlyph)
	}
}

func (p *Interpreter) flushInvalidUTF() {
	p.utf = p.utf[:0]
	p.placeGlyph(replacementGlyph)
}

func (p *Interpreter) sequence(b byte) {
	switch b {
	case can, sub:
		p.state = StateLiteral
		p.seq = p.seq[:0]
		return
	case esc:
		p.seq = append(p.seq[:0], b)
		return
	}
	p.seq = append(p.seq, b)

	if len(p.seq) == 2 {
		switch b {
		case '[', '?':
			return
		case ']':
			p.state = StateOSC
			p.oscLen = 0
			p.seq = p.seq[:0]
			return
		case '(', ')', '#':
			p.state = StateCharset
			p.seq = p.seq[:0]
			return
		}
		if !isLetter(b) {
			p.shortEscape(b)
			p.finish()
			return
		}
	}

	if isLetter(b) {
		p.dispatch(p.seq[1:])
		p.finish()
		return
	}
	if len(p.seq) > MaxSequence {
		p.overflow()
	}
}

func (p *Interpreter) finish() {
	p.state = StateLiteral
	p.seq = p.seq[:0]
}

func (p *Interpreter) overflow() {
	p.stats.Overflows++
	p.log.Warn().Err(ErrSequenceOverflow).Bytes("buffer", p.seq).Msg("Parser: Multichar buffer overflow, sequence discarded")
	p.finish()
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
