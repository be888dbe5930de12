// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/journal/journal_test.go
// Summary: Tests for frame journaling and read-back.

package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrace/ledwand/client"
	"github.com/framegrace/ledwand/protocol"
)

func openTemp(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frames.db")
	j, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j, path
}

func TestRecordAndReadBack(t *testing.T) {
	j, _ := openTemp(t)

	frames := []protocol.Frame{
		{Opcode: protocol.OpClear},
		protocol.IntensityFrame(8),
		{Opcode: protocol.OpWriteChars, X: 3, Y: 4, Width: 2, Height: 1, Payload: []byte("hi")},
		{Opcode: protocol.OpReset},
	}
	for _, f := range frames {
		j.Record(f)
	}
	require.NoError(t, j.Flush())

	got, err := j.Frames(j.Session())
	require.NoError(t, err)
	require.Len(t, got, len(frames))
	for i, e := range got {
		assert.Equal(t, int64(i+1), e.Seq)
		assert.Equal(t, j.Session(), e.Session)
		assert.Equal(t, frames[i].Opcode, e.Frame.Opcode)
		assert.Equal(t, frames[i].X, e.Frame.X)
		assert.Equal(t, frames[i].Width, e.Frame.Width)
		assert.Equal(t, len(frames[i].Payload), len(e.Frame.Payload))
		assert.WithinDuration(t, time.Now(), e.Time, time.Minute)
	}
	assert.Equal(t, []byte("hi"), got[2].Frame.Payload)
	assert.Equal(t, 8, got[1].Frame.SignedAt(0))
}

func TestRecordCopiesPayload(t *testing.T) {
	j, _ := openTemp(t)
	payload := []byte("ab")
	j.Record(protocol.Frame{Opcode: protocol.OpWriteChars, Width: 2, Height: 1, Payload: payload})
	payload[0] = 'z'
	require.NoError(t, j.Flush())

	got, err := j.Frames(j.Session())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []byte("ab"), got[0].Frame.Payload)
}

func TestBatchesWrittenWithoutFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.db")
	cfg := DefaultConfig(path)
	cfg.BatchSize = 2
	cfg.BatchTimeout = 20 * time.Millisecond
	j, err := OpenWithConfig(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer j.Close()

	for i := 0; i < 5; i++ {
		j.Record(protocol.Frame{Opcode: protocol.OpClear})
	}
	require.Eventually(t, func() bool {
		got, err := j.Frames(j.Session())
		return err == nil && len(got) == 5
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "frames.db")

	first, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	first.Record(protocol.Frame{Opcode: protocol.OpClear})
	first.Record(protocol.Frame{Opcode: protocol.OpClear})
	require.NoError(t, first.Close())
	require.NoError(t, first.Close(), "close is idempotent")
	assert.ErrorIs(t, first.Flush(), ErrClosed)

	second, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	second.Record(protocol.Frame{Opcode: protocol.OpReset})
	require.NoError(t, second.Close())
	require.NotEqual(t, first.Session(), second.Session())

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	sessions, err := r.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.Session(), sessions[0].ID)
	assert.Equal(t, int64(2), sessions[0].Frames)
	assert.Equal(t, int64(1), sessions[1].Frames)

	latest, err := r.Latest()
	require.NoError(t, err)
	assert.Equal(t, second.Session(), latest.ID)

	frames, err := r.Frames(first.Session())
	require.NoError(t, err)
	assert.Len(t, frames, 2)
}

func TestLatestOnEmptyJournal(t *testing.T) {
	r, err := OpenReader(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Latest()
	assert.Error(t, err)
}

func TestJournalAsClientRecorder(t *testing.T) {
	j, _ := openTemp(t)
	c := client.New(client.NewDryRunTransport(), client.WithRecorder(j))

	require.NoError(t, c.Clear())
	require.NoError(t, c.DisplayChars([][]byte{[]byte("led"), []byte("wnd")}, 1, 2))
	require.NoError(t, j.Flush())

	got, err := j.Frames(j.Session())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, protocol.OpClear, got[0].Frame.Opcode)
	assert.Equal(t, protocol.OpSetIntensity, got[1].Frame.Opcode)
	assert.Equal(t, protocol.OpWriteChars, got[2].Frame.Opcode)
	assert.Equal(t, []byte("ledwnd"), got[2].Frame.Payload)
}
