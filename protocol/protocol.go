// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: protocol/protocol.go
// Summary: Binary frame codec shared by the terminal client and the display device.
// Usage: Encode builds one datagram per request; Decode parses replies and requests.
// Notes: The layout is fixed by the device firmware; never reorder header fields.

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the size of the fixed frame header in bytes.
	HeaderSize = 10
	// TrailerSize is the historical padding byte appended to every frame.
	TrailerSize = 1

	// MaxDatagram bounds the receive buffer used by both ends.
	MaxDatagram = 4096

	// DefaultPort is the UDP port the display listens on.
	DefaultPort = 2342
)

// Opcode identifies the request carried by a frame.
type Opcode uint16

const (
	OpAck Opcode = iota
	OpNak
	OpClear
	OpWriteChars
	OpWriteChars1
	OpWriteLum
	OpWriteLum1
	OpSetIntensity
	OpReset
	OpReadChars
	OpReadLum
	OpHardReset
)

var opcodeNames = [...]string{
	OpAck:          "ACK",
	OpNak:          "NAK",
	OpClear:        "CLEAR",
	OpWriteChars:   "WRITE_CHARS",
	OpWriteChars1:  "WRITE_CHARS_1",
	OpWriteLum:     "WRITE_LUM",
	OpWriteLum1:    "WRITE_LUM_1",
	OpSetIntensity: "SET_INTENSITY",
	OpReset:        "RESET",
	OpReadChars:    "READ_CHARS",
	OpReadLum:      "READ_LUM",
	OpHardReset:    "HARD_RESET",
}

func (o Opcode) String() string {
	if int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return fmt.Sprintf("OPCODE(%d)", uint16(o))
}

// ExpectsReply reports whether the device answers this opcode. Resets reboot
// the display controller and never produce an acknowledgement.
func (o Opcode) ExpectsReply() bool {
	return o != OpReset && o != OpHardReset
}

// Frame is a single request or reply. Payload holds Width*Height bytes for
// grid writes; other opcodes carry whatever their semantics require.
type Frame struct {
	Opcode  Opcode
	X       uint16
	Y       uint16
	Width   uint16
	Height  uint16
	Payload []byte
}

var (
	ErrMalformedFrame = errors.New("protocol: frame shorter than header")
	ErrFrameTooLarge  = errors.New("protocol: frame exceeds datagram size")
)

// Encode serialises the frame into a freshly allocated datagram. The payload
// is copied; callers retain ownership of their slice.
func Encode(f Frame) []byte {
	buf := make([]byte, HeaderSize+len(f.Payload)+TrailerSize)
	binary.LittleEndian.PutUint16(buf[0:], uint16(f.Opcode))
	binary.LittleEndian.PutUint16(buf[2:], f.X)
	binary.LittleEndian.PutUint16(buf[4:], f.Y)
	binary.LittleEndian.PutUint16(buf[6:], f.Width)
	binary.LittleEndian.PutUint16(buf[8:], f.Height)
	copy(buf[HeaderSize:], f.Payload)
	// Trailer byte stays zero; the device ignores it.
	return buf
}

// Decode parses a datagram. Everything between the header and the final
// trailer byte is payload. A datagram consisting of just the header has an
// empty payload.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if len(data) < HeaderSize {
		return f, ErrMalformedFrame
	}
	f.Opcode = Opcode(binary.LittleEndian.Uint16(data[0:]))
	f.X = binary.LittleEndian.Uint16(data[2:])
	f.Y = binary.LittleEndian.Uint16(data[4:])
	f.Width = binary.LittleEndian.Uint16(data[6:])
	f.Height = binary.LittleEndian.Uint16(data[8:])

	end := len(data) - TrailerSize
	if end > HeaderSize {
		f.Payload = make([]byte, end-HeaderSize)
		copy(f.Payload, data[HeaderSize:end])
	} else {
		f.Payload = []byte{}
	}
	return f, nil
}

// NewAck builds the device reply for req: an exact echo of header and payload
// with the opcode replaced by ACK.
func NewAck(req Frame) Frame {
	ack := req
	ack.Opcode = OpAck
	ack.Payload = append([]byte(nil), req.Payload...)
	return ack
}

// Cells returns the number of cells covered by the frame rectangle.
func (f Frame) Cells() int {
	return int(f.Width) * int(f.Height)
}

func (f Frame) String() string {
	return fmt.Sprintf("%s x=%d y=%d w=%d h=%d len=%d", f.Opcode, f.X, f.Y, f.Width, f.Height, len(f.Payload))
}
