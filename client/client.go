// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: client/client.go
// Summary: Device client turning display operations into frames with an ack wait.
// Usage: Driven by the delta synchronizer from the session loop goroutine.
// Notes: Timeouts are soft; the display is advisory and callers proceed best-effort.

package client

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/framegrace/ledwand/protocol"
)

// DefaultAckTimeout bounds the wait for a reply to any non-reset request.
const DefaultAckTimeout = 3 * time.Second

// drainWindow is how long a stale-reply drain waits per datagram.
const drainWindow = time.Millisecond

var ErrTimeout = errors.New("client: no reply within ack timeout")

// FrameRecorder observes every frame handed to the transport.
type FrameRecorder interface {
	Record(f protocol.Frame)
}

// Stats counts client activity. Safe to read from other goroutines.
type Stats struct {
	Frames   atomic.Int64
	Bytes    atomic.Int64
	Timeouts atomic.Int64
	Dropped  atomic.Int64
}

// Client talks to one display.
type Client struct {
	transport  Transport
	ackTimeout time.Duration
	recorder   FrameRecorder
	log        zerolog.Logger
	stats      Stats
}

// Option configures a Client.
type Option func(*Client)

func WithAckTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.ackTimeout = d
		}
	}
}

func WithRecorder(r FrameRecorder) Option { return func(c *Client) { c.recorder = r } }

func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.log = l } }

// New wraps an existing transport.
func New(t Transport, opts ...Option) *Client {
	c := &Client{
		transport:  t,
		ackTimeout: DefaultAckTimeout,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to the display at host:port over UDP.
func Dial(host string, port int, opts ...Option) (*Client, error) {
	t, err := DialUDP(host, port)
	if err != nil {
		return nil, err
	}
	return New(t, opts...), nil
}

// Stats exposes the live counters.
func (c *Client) Stats() *Stats { return &c.stats }

// Send transmits f and, unless the opcode is a reset, waits for any reply up
// to the ack timeout. Reply content is only a liveness signal.
func (c *Client) Send(f protocol.Frame) error {
	c.drain()

	datagram := protocol.Encode(f)
	if len(datagram) > protocol.MaxDatagram {
		return protocol.ErrFrameTooLarge
	}
	if err := c.transport.Send(datagram); err != nil {
		return fmt.Errorf("client: send %s: %w", f.Opcode, err)
	}
	c.stats.Frames.Add(1)
	c.stats.Bytes.Add(int64(len(datagram)))
	if c.recorder != nil {
		c.recorder.Record(f)
	}

	if !f.Opcode.ExpectsReply() {
		return nil
	}

	deadline := time.Now().Add(c.ackTimeout)
	for {
		reply, err := c.transport.Receive(deadline)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				c.stats.Timeouts.Add(1)
				c.log.Warn().Str("op", f.Opcode.String()).Dur("timeout", c.ackTimeout).Msg("Client: No answer received")
				return ErrTimeout
			}
			return fmt.Errorf("client: receive: %w", err)
		}
		if _, err := protocol.Decode(reply); err != nil {
			c.stats.Dropped.Add(1)
			continue
		}
		return nil
	}
}

// drain discards replies that arrived after their request gave up waiting,
// and the unsolicited acks some devices send for resets.
func (c *Client) drain() {
	for {
		if _, err := c.transport.Receive(time.Now().Add(drainWindow)); err != nil {
			return
		}
		c.stats.Dropped.Add(1)
	}
}

// Clear blanks the device and restores full global intensity.
func (c *Client) Clear() error {
	err := c.Send(protocol.Frame{Opcode: protocol.OpClear})
	return errors.Join(err, c.SetLuminance(protocol.LumMax))
}

// SetLuminance applies one intensity level to every cell.
func (c *Client) SetLuminance(level int) error {
	return c.Send(protocol.IntensityFrame(level))
}

// DisplayChars writes a rectangular glyph grid with its top-left corner at x,y.
func (c *Client) DisplayChars(grid [][]byte, x, y int) error {
	f, err := protocol.GlyphFrame(grid, x, y)
	if err != nil {
		return err
	}
	return c.Send(f)
}

// DisplayLuminance writes a rectangular luminance grid with its top-left
// corner at x,y. Values are clamped to the device range.
func (c *Client) DisplayLuminance(grid [][]int, x, y int) error {
	f, err := protocol.LuminanceFrame(grid, x, y)
	if err != nil {
		return err
	}
	return c.Send(f)
}

// DisplayChar writes a single glyph using the single-cell opcode.
func (c *Client) DisplayChar(x, y int, g byte) error {
	return c.Send(protocol.Frame{Opcode: protocol.OpWriteChars1, X: uint16(x), Y: uint16(y), Width: 1, Height: 1, Payload: []byte{g}})
}

// DisplayCellLuminance writes a single luminance using the single-cell opcode.
func (c *Client) DisplayCellLuminance(x, y, lum int) error {
	return c.Send(protocol.Frame{
		Opcode: protocol.OpWriteLum1, X: uint16(x), Y: uint16(y), Width: 1, Height: 1,
		Payload: []byte{byte(int8(protocol.ClampLum(lum)))},
	})
}

// Reset reboots the display controller. The device never answers, so
// success and an unreachable device look the same; callers must assume the
// display is blank afterwards.
func (c *Client) Reset(hard bool) error {
	op := protocol.OpReset
	if hard {
		op = protocol.OpHardReset
	}
	return c.Send(protocol.Frame{Opcode: op})
}

func (c *Client) Close() error { return c.transport.Close() }
