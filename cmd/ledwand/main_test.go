// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrace/ledwand/client"
	"github.com/framegrace/ledwand/internal/journal"
	"github.com/framegrace/ledwand/protocol"
)

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("LEDWAND_CONFIG", filepath.Join(t.TempDir(), "ledwand.json"))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestArgumentErrors(t *testing.T) {
	isolateConfig(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no host", nil},
		{"two hosts", []string{"a", "b"}},
		{"unknown flag", []string{"host", "--bogus"}},
		{"port zero", []string{"host", "-p", "0"}},
		{"port too large", []string{"host", "--port", "70000"}},
		{"port not a number", []string{"host", "-p", "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestHelp(t *testing.T) {
	isolateConfig(t)
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--dry-run")
	assert.Contains(t, out, "Ctrl-]")
}

func recordSession(t *testing.T, path string) {
	t.Helper()
	j, err := journal.Open(path, zerolog.Nop())
	require.NoError(t, err)
	c := client.New(client.NewDryRunTransport(), client.WithRecorder(j))
	require.NoError(t, c.Clear())
	require.NoError(t, c.DisplayChars([][]byte{[]byte("hi")}, 0, 0))
	require.NoError(t, j.Close())
}

func TestReplayDryRun(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "frames.db")
	recordSession(t, path)

	out, err := execute(t, "replay", path, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "replayed 3/3 frames")
	assert.Contains(t, out, "(0 timeouts)")
}

func TestReplayList(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "frames.db")
	recordSession(t, path)
	recordSession(t, path)

	out, err := execute(t, "replay", path, "--list")
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("3 frames")))
}

func TestReplayErrors(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "frames.db")
	recordSession(t, path)

	_, err := execute(t, "replay", path)
	assert.Error(t, err, "host required without dry-run")
	_, err = execute(t, "replay", path, "--dry-run", "--session", "not-a-uuid")
	assert.Error(t, err)
	_, err = execute(t, "replay")
	assert.Error(t, err)
}

func TestReplayPacing(t *testing.T) {
	c := client.New(client.NewDryRunTransport())
	now := time.Now()
	frames := []journal.Entry{
		{Time: now, Frame: protocol.Frame{Opcode: protocol.OpClear}},
		{Time: now.Add(200 * time.Millisecond), Frame: protocol.Frame{Opcode: protocol.OpClear}},
	}

	start := time.Now()
	sent, err := replay(context.Background(), c, frames, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sent, err = replay(ctx, c, frames, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sent)
}
