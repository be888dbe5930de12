// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: simulator/device.go
// Summary: In-memory model of the LED display controller.
// Usage: The UDP server applies every decoded request; tests apply frames directly.

package simulator

import (
	"sync"

	"github.com/framegrace/ledwand/internal/display"
	"github.com/framegrace/ledwand/protocol"
)

// Device holds what the physical wall would currently show.
type Device struct {
	mu  sync.RWMutex
	buf *display.Buffer
}

func NewDevice(width, height int) *Device {
	return &Device{buf: display.NewBuffer(width, height)}
}

// Apply executes one request. Writes outside the grid are ignored cell by
// cell; payloads shorter than the rectangle fill what they cover.
func (d *Device) Apply(f protocol.Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch f.Opcode {
	case protocol.OpClear, protocol.OpReset, protocol.OpHardReset:
		d.buf.Clear()
	case protocol.OpSetIntensity:
		if len(f.Payload) == 0 {
			return
		}
		lum := f.SignedAt(0)
		for y := 0; y < d.buf.Height(); y++ {
			for x := 0; x < d.buf.Width(); x++ {
				d.buf.SetLum(x, y, lum)
			}
		}
	case protocol.OpWriteChars, protocol.OpWriteChars1:
		d.eachCell(f, func(x, y, i int) { d.buf.SetGlyph(x, y, f.Payload[i]) })
	case protocol.OpWriteLum, protocol.OpWriteLum1:
		d.eachCell(f, func(x, y, i int) { d.buf.SetLum(x, y, f.SignedAt(i)) })
	}
}

// eachCell walks the payload row-major over the frame rectangle.
func (d *Device) eachCell(f protocol.Frame, fn func(x, y, i int)) {
	w := int(f.Width)
	if w == 0 {
		return
	}
	n := len(f.Payload)
	if cells := f.Cells(); cells < n {
		n = cells
	}
	for i := 0; i < n; i++ {
		fn(int(f.X)+i%w, int(f.Y)+i/w, i)
	}
}

// Snapshot returns a copy of the current contents.
func (d *Device) Snapshot() *display.Buffer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buf.Clone()
}

func (d *Device) Cell(x, y int) display.Cell {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buf.Cell(x, y)
}
