// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/host/host.go
// Summary: Local side of a session: the shell behind a PTY and the raw keyboard.
// Notes: The PTY reports end of output as EIO on Linux; Read folds that into io.EOF.

package host

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// Terminal type advertised to the shell. The interpreter models a vt100 subset.
const TermType = "vt100"

// Shell is a child process attached to a pseudo terminal.
type Shell struct {
	cmd  *exec.Cmd
	ptmx *os.File
}

// DefaultShell returns $SHELL, falling back to /bin/sh.
func DefaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// StartShell launches shell (with optional args) on a PTY sized cols x rows.
func StartShell(shell string, cols, rows int, args ...string) (*Shell, error) {
	if shell == "" {
		shell = DefaultShell()
	}
	cmd := exec.Command(shell, args...)
	cmd.Env = append(os.Environ(), "TERM="+TermType)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, fmt.Errorf("host: start %s: %w", shell, err)
	}
	return &Shell{cmd: cmd, ptmx: ptmx}, nil
}

func (s *Shell) Read(p []byte) (int, error) {
	n, err := s.ptmx.Read(p)
	if err != nil && errors.Is(err, syscall.EIO) {
		err = io.EOF
	}
	return n, err
}

func (s *Shell) Write(p []byte) (int, error) { return s.ptmx.Write(p) }

// Resize updates the PTY window size.
func (s *Shell) Resize(cols, rows int) error {
	return pty.Setsize(s.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// Pid returns the shell process id.
func (s *Shell) Pid() int { return s.cmd.Process.Pid }

// Close hangs up the PTY and reaps the child.
func (s *Shell) Close() error {
	err := s.ptmx.Close()
	if s.cmd.ProcessState == nil {
		_ = s.cmd.Process.Signal(syscall.SIGHUP)
		_ = s.cmd.Wait()
	}
	return err
}

// MakeRaw puts fd into raw mode when it is a terminal. The returned restore
// func is always safe to call.
func MakeRaw(fd int) (func(), error) {
	if !term.IsTerminal(fd) {
		return func() {}, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return func() {}, fmt.Errorf("host: MakeRaw: %w", err)
	}
	return func() { _ = term.Restore(fd, state) }, nil
}
