// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: protocol/grid.go
// Summary: Payload encoders for rectangular glyph and luminance writes.
// Usage: Used by the device client to pack sub-grids and by the simulator to unpack them.

package protocol

import "errors"

// Device luminance range. Values outside it are clamped before transmission.
const (
	LumMin = 0
	LumMax = 8
)

var (
	ErrEmptyGrid  = errors.New("protocol: empty grid")
	ErrRaggedGrid = errors.New("protocol: grid rows differ in length")
	ErrGridBounds = errors.New("protocol: grid dimensions exceed 16 bits")
)

// ClampLum folds an in-memory luminance into the device range.
func ClampLum(lum int) int {
	if lum < LumMin {
		return LumMin
	}
	if lum > LumMax {
		return LumMax
	}
	return lum
}

func gridSize[T any](grid [][]T) (int, int, error) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return 0, 0, ErrEmptyGrid
	}
	w := len(grid[0])
	for _, row := range grid[1:] {
		if len(row) != w {
			return 0, 0, ErrRaggedGrid
		}
	}
	if w > 0xFFFF || len(grid) > 0xFFFF {
		return 0, 0, ErrGridBounds
	}
	return w, len(grid), nil
}

// GlyphFrame packs a glyph grid row-major into a WRITE_CHARS frame anchored at x,y.
func GlyphFrame(grid [][]byte, x, y int) (Frame, error) {
	w, h, err := gridSize(grid)
	if err != nil {
		return Frame{}, err
	}
	payload := make([]byte, 0, w*h)
	for _, row := range grid {
		payload = append(payload, row...)
	}
	return Frame{Opcode: OpWriteChars, X: uint16(x), Y: uint16(y), Width: uint16(w), Height: uint16(h), Payload: payload}, nil
}

// LuminanceFrame packs a luminance grid row-major into a WRITE_LUM frame.
// Each cell becomes one signed byte clamped to the device range.
func LuminanceFrame(grid [][]int, x, y int) (Frame, error) {
	w, h, err := gridSize(grid)
	if err != nil {
		return Frame{}, err
	}
	payload := make([]byte, 0, w*h)
	for _, row := range grid {
		for _, lum := range row {
			payload = append(payload, byte(int8(ClampLum(lum))))
		}
	}
	return Frame{Opcode: OpWriteLum, X: uint16(x), Y: uint16(y), Width: uint16(w), Height: uint16(h), Payload: payload}, nil
}

// IntensityFrame builds the global SET_INTENSITY request.
func IntensityFrame(level int) Frame {
	return Frame{Opcode: OpSetIntensity, Width: 1, Height: 1, Payload: []byte{byte(int8(ClampLum(level)))}}
}

// SignedAt interprets payload byte i as a signed luminance value.
func (f Frame) SignedAt(i int) int {
	return int(int8(f.Payload[i]))
}
