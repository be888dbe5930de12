// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/session/session_test.go
// Summary: Tests for the session event loop.

package session

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrace/ledwand/client"
	"github.com/framegrace/ledwand/internal/delta"
	"github.com/framegrace/ledwand/internal/display"
)

type fakeDevice struct {
	mu      sync.Mutex
	ops     []string
	origins []byte
}

func (d *fakeDevice) op(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ops = append(d.ops, name)
	return nil
}

func (d *fakeDevice) DisplayChars(grid [][]byte, x, y int) error {
	d.mu.Lock()
	if x == 0 && y == 0 {
		d.origins = append(d.origins, grid[0][0])
	}
	d.mu.Unlock()
	return d.op("chars:" + strings.TrimRight(string(grid[0]), " "))
}

func (d *fakeDevice) DisplayLuminance([][]int, int, int) error { return d.op("lum") }
func (d *fakeDevice) DisplayChar(int, int, byte) error         { return d.op("char1") }
func (d *fakeDevice) DisplayCellLuminance(int, int, int) error { return d.op("lum1") }
func (d *fakeDevice) Clear() error                             { return d.op("clear") }

func (d *fakeDevice) Reset(hard bool) error {
	if hard {
		return d.op("hardreset")
	}
	return d.op("reset")
}

func (d *fakeDevice) snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ops...)
}

func (d *fakeDevice) originGlyphs() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.origins...)
}

type fakeShell struct {
	out *io.PipeReader
	mu  sync.Mutex
	in  bytes.Buffer
}

func newFakeShell() (*fakeShell, *io.PipeWriter) {
	r, w := io.Pipe()
	return &fakeShell{out: r}, w
}

func (s *fakeShell) Read(p []byte) (int, error) { return s.out.Read(p) }

func (s *fakeShell) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.in.Write(p)
}

func (s *fakeShell) typed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.in.String()
}

func start(t *testing.T, s *Session) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background()) }()
	return errCh
}

func wait(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
		return nil
	}
}

func TestShellOutputReachesDevice(t *testing.T) {
	dev := &fakeDevice{}
	shell, w := newFakeShell()
	s := New(dev, shell)
	errCh := start(t, s)

	_, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, wait(t, errCh))

	ops := dev.snapshot()
	require.NotEmpty(t, ops)
	assert.Equal(t, "clear", ops[0], "device cleared on start")
	assert.Equal(t, "clear", ops[len(ops)-1], "device cleared on shell EOF")
	assert.Contains(t, ops, "chars:hello_")
	assert.Equal(t, "hello", s.Screen().Buf.Row(0))
}

func TestKeyboardPassthrough(t *testing.T) {
	dev := &fakeDevice{}
	shell, w := newFakeShell()
	s := New(dev, shell, WithKeyboard(strings.NewReader("ls -l\r")))
	errCh := start(t, s)

	require.Eventually(t, func() bool { return shell.typed() == "ls -l\r" }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, w.Close())
	require.NoError(t, wait(t, errCh))
}

func TestCommandKeyQuit(t *testing.T) {
	dev := &fakeDevice{}
	shell, w := newFakeShell()
	defer w.Close()
	s := New(dev, shell, WithKeyboard(strings.NewReader("ab\x1dqcd")))

	require.NoError(t, wait(t, start(t, s)))
	assert.Equal(t, "ab", shell.typed())
	ops := dev.snapshot()
	assert.Equal(t, "clear", ops[len(ops)-1])
}

func TestCommandKeyEscapesItself(t *testing.T) {
	dev := &fakeDevice{}
	shell, w := newFakeShell()
	keys, kw := io.Pipe()
	s := New(dev, shell, WithKeyboard(keys))
	errCh := start(t, s)

	_, err := kw.Write([]byte("x\x1d\x1dy\x1dzw"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return shell.typed() == "x\x1dyw" }, 2*time.Second, 5*time.Millisecond)

	// Command key split across reads still applies to the next byte.
	_, err = kw.Write([]byte("\x1d"))
	require.NoError(t, err)
	_, err = kw.Write([]byte("q"))
	require.NoError(t, err)
	require.NoError(t, wait(t, errCh))
	assert.Equal(t, "x\x1dyw", shell.typed())
	_ = kw.Close()
	_ = w.Close()
}

func TestClearAndResetCommandsRepaint(t *testing.T) {
	dev := &fakeDevice{}
	shell, w := newFakeShell()
	keys, kw := io.Pipe()
	s := New(dev, shell, WithKeyboard(keys), WithMode(delta.ModeDiff), WithBlinkInterval(time.Hour))
	errCh := start(t, s)

	_, err := w.Write([]byte("abc"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(dev.snapshot()) >= 3 }, 2*time.Second, 5*time.Millisecond)

	before := len(dev.snapshot())
	_, err = kw.Write([]byte("\x1dr"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(dev.snapshot()) >= before+3 }, 2*time.Second, 5*time.Millisecond)
	ops := dev.snapshot()[before:]
	assert.Equal(t, "reset", ops[0])
	assert.Equal(t, "chars:abc_", ops[1], "full repaint after reset")

	before = len(dev.snapshot())
	_, err = kw.Write([]byte("\x1dc"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(dev.snapshot()) >= before+3 }, 2*time.Second, 5*time.Millisecond)
	ops = dev.snapshot()[before:]
	assert.Equal(t, "clear", ops[0])
	assert.Equal(t, "chars:abc_", ops[1])

	require.NoError(t, w.Close())
	require.NoError(t, wait(t, errCh))
}

func TestInterruptForwardsControlC(t *testing.T) {
	dev := &fakeDevice{}
	shell, w := newFakeShell()
	sig := make(chan os.Signal, 1)
	s := New(dev, shell, WithInterrupts(sig))
	errCh := start(t, s)

	sig <- os.Interrupt
	require.Eventually(t, func() bool { return shell.typed() == "\x03" }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, w.Close())
	require.NoError(t, wait(t, errCh))
}

func TestContextCancel(t *testing.T) {
	dev := &fakeDevice{}
	shell, w := newFakeShell()
	defer w.Close()
	s := New(dev, shell)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	cancel()
	assert.ErrorIs(t, wait(t, errCh), context.Canceled)
}

func TestCursorBlinks(t *testing.T) {
	dev := &fakeDevice{}
	shell, w := newFakeShell()
	s := New(dev, shell, WithBlinkInterval(10*time.Millisecond))
	errCh := start(t, s)

	require.Eventually(t, func() bool {
		var on, off bool
		for _, g := range dev.originGlyphs() {
			on = on || g == display.CursorGlyph
			off = off || g == ' '
		}
		return on && off
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, w.Close())
	require.NoError(t, wait(t, errCh))
}

func TestOutputBurstIsRateLimited(t *testing.T) {
	dev := &fakeDevice{}
	shell, w := newFakeShell()
	s := New(dev, shell, WithFlushInterval(time.Hour), WithBlinkInterval(time.Hour))
	errCh := start(t, s)

	for i := 0; i < 20; i++ {
		_, err := w.Write([]byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, wait(t, errCh))

	flushes := 0
	for _, op := range dev.snapshot() {
		if strings.HasPrefix(op, "chars:") {
			flushes++
		}
	}
	assert.Equal(t, 1, flushes, "only the first chunk flushes inside one interval")
	assert.Equal(t, strings.Repeat("x", 20), s.Screen().Buf.Row(0))
}

func TestDryRunClientEndToEnd(t *testing.T) {
	c := client.New(client.NewDryRunTransport())
	shell, w := newFakeShell()
	s := New(c, shell, WithMode(delta.ModeDiff), WithBlinkInterval(time.Hour))
	errCh := start(t, s)

	_, err := w.Write([]byte("\x1b[2J\x1b[10;20Hled\x1b[31mwand\x1b[1;200H\x1b[5A"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, wait(t, errCh))

	assert.Equal(t, strings.Repeat(" ", 19)+"ledwand", s.Screen().Buf.Row(9))
	assert.Equal(t, display.LumColor, s.Screen().Buf.Cell(24, 9).Lum)
	assert.Zero(t, c.Stats().Timeouts.Load())
	assert.Zero(t, s.ParserStats().Overflows)
	assert.Equal(t, 1, s.SyncStats().Flushes)
}
