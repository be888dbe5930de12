// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/journal/reader.go
// Summary: Read-only access to recorded journals for replay.

package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/framegrace/ledwand/protocol"
)

// Reader opens an existing journal without starting a session.
type Reader struct {
	db *sql.DB
}

func OpenReader(path string) (*Reader, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Sessions() ([]SessionInfo, error) { return readSessions(r.db) }

func (r *Reader) Frames(session uuid.UUID) ([]Entry, error) { return readFrames(r.db, session) }

// Latest returns the most recently started session.
func (r *Reader) Latest() (SessionInfo, error) {
	sessions, err := readSessions(r.db)
	if err != nil {
		return SessionInfo{}, err
	}
	if len(sessions) == 0 {
		return SessionInfo{}, fmt.Errorf("journal: no sessions recorded")
	}
	return sessions[len(sessions)-1], nil
}

func (r *Reader) Close() error { return r.db.Close() }

func readSessions(db *sql.DB) ([]SessionInfo, error) {
	rows, err := db.Query(`
		SELECT s.id, s.started, s.host, COUNT(f.seq)
		FROM sessions s
		LEFT JOIN frames f ON f.session = s.id
		GROUP BY s.id
		ORDER BY s.started ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("journal: list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var (
			id      string
			started int64
			info    SessionInfo
		)
		if err := rows.Scan(&id, &started, &info.Host, &info.Frames); err != nil {
			return nil, fmt.Errorf("journal: scan session: %w", err)
		}
		if info.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("journal: session id %q: %w", id, err)
		}
		info.Started = time.Unix(0, started)
		out = append(out, info)
	}
	return out, rows.Err()
}

func readFrames(db *sql.DB, session uuid.UUID) ([]Entry, error) {
	rows, err := db.Query(`
		SELECT seq, timestamp, opcode, x, y, w, h, payload
		FROM frames
		WHERE session = ?
		ORDER BY seq ASC
	`, session.String())
	if err != nil {
		return nil, fmt.Errorf("journal: query frames: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			ts         int64
			op         int
			x, y, w, h int
			payload    []byte
		)
		if err := rows.Scan(&e.Seq, &ts, &op, &x, &y, &w, &h, &payload); err != nil {
			return nil, fmt.Errorf("journal: scan frame: %w", err)
		}
		e.Session = session
		e.Time = time.Unix(0, ts)
		e.Frame = protocol.Frame{
			Opcode:  protocol.Opcode(op),
			X:       uint16(x),
			Y:       uint16(y),
			Width:   uint16(w),
			Height:  uint16(h),
			Payload: payload,
		}
		if e.Frame.Payload == nil {
			e.Frame.Payload = []byte{}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
