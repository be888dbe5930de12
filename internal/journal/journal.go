// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/journal/journal.go
// Summary: SQLite journal of every frame sent to the display.
//
// Provides a record of device traffic with:
//   - One session row per journal opened, keyed by a random UUID
//   - Async batched inserts so the ack path never waits on disk
//   - Ordered read-back for replay and debugging

package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/framegrace/ledwand/protocol"
)

var ErrClosed = errors.New("journal: closed")

// Config holds journal tuning.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BatchSize is the number of frames to accumulate before writing.
	// Default: 64
	BatchSize int

	// BatchTimeout is how long a partial batch may wait.
	// Default: 1s
	BatchTimeout time.Duration

	// ChannelBuffer is the size of the async queue. Frames arriving while it
	// is full are dropped and counted.
	// Default: 1024
	ChannelBuffer int

	// Host is stored with the session for reference.
	Host string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(dbPath string) Config {
	return Config{
		DBPath:        dbPath,
		BatchSize:     64,
		BatchTimeout:  time.Second,
		ChannelBuffer: 1024,
	}
}

// Entry is one recorded frame.
type Entry struct {
	Session uuid.UUID
	Seq     int64
	Time    time.Time
	Frame   protocol.Frame
}

// SessionInfo describes one recorded session.
type SessionInfo struct {
	ID      uuid.UUID
	Started time.Time
	Host    string
	Frames  int64
}

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    started INTEGER NOT NULL,        -- UnixNano
    host TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS frames (
    session TEXT NOT NULL REFERENCES sessions(id),
    seq INTEGER NOT NULL,
    timestamp INTEGER NOT NULL,      -- UnixNano
    opcode INTEGER NOT NULL,
    x INTEGER NOT NULL,
    y INTEGER NOT NULL,
    w INTEGER NOT NULL,
    h INTEGER NOT NULL,
    payload BLOB,
    PRIMARY KEY (session, seq)
);

CREATE INDEX IF NOT EXISTS idx_frames_opcode ON frames(opcode);
`

// Journal records frames for a single session.
type Journal struct {
	config  Config
	db      *sql.DB
	session uuid.UUID
	log     zerolog.Logger

	seq     atomic.Int64
	dropped atomic.Int64

	batchChan chan Entry
	stopCh    chan struct{}
	doneCh    chan struct{}
	flushCh   chan chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

// Open creates or opens the journal at path and starts a new session.
func Open(path string, log zerolog.Logger) (*Journal, error) {
	return OpenWithConfig(DefaultConfig(path), log)
}

// OpenWithConfig is Open with explicit tuning.
func OpenWithConfig(config Config, log zerolog.Logger) (*Journal, error) {
	if config.BatchSize <= 0 {
		config.BatchSize = 64
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = time.Second
	}
	if config.ChannelBuffer <= 0 {
		config.ChannelBuffer = 1024
	}

	db, err := openDB(config.DBPath)
	if err != nil {
		return nil, err
	}

	j := &Journal{
		config:    config,
		db:        db,
		session:   uuid.New(),
		log:       log,
		batchChan: make(chan Entry, config.ChannelBuffer),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		flushCh:   make(chan chan struct{}),
	}
	if _, err := db.Exec("INSERT INTO sessions (id, started, host) VALUES (?, ?, ?)",
		j.session.String(), time.Now().UnixNano(), config.Host); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create session: %w", err)
	}

	go j.batchWriter()
	log.Info().Str("session", j.session.String()).Str("path", config.DBPath).Msg("Journal: Recording frames")
	return j, nil
}

func openDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create directory: %w", err)
	}
	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: connect: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}
	if _, err := db.Exec("INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: record schema version: %w", err)
	}
	return db, nil
}

// Session returns the id frames are recorded under.
func (j *Journal) Session() uuid.UUID { return j.session }

// Dropped reports frames lost to a full queue.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Record queues f. It never blocks; when the queue is full the frame is
// dropped. The payload is copied.
func (j *Journal) Record(f protocol.Frame) {
	f.Payload = append([]byte(nil), f.Payload...)
	e := Entry{Session: j.session, Seq: j.seq.Add(1), Time: time.Now(), Frame: f}
	select {
	case <-j.stopCh:
		return
	default:
	}
	select {
	case j.batchChan <- e:
	default:
		if j.dropped.Add(1) == 1 {
			j.log.Warn().Msg("Journal: Queue full, dropping frames")
		}
	}
}

// batchWriter runs in a background goroutine, batching entries and writing periodically.
func (j *Journal) batchWriter() {
	defer close(j.doneCh)

	batch := make([]Entry, 0, j.config.BatchSize)
	timer := time.NewTimer(j.config.BatchTimeout)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		j.writeBatch(batch)
		batch = batch[:0]
	}
	drain := func() {
		for {
			select {
			case e := <-j.batchChan:
				batch = append(batch, e)
			default:
				return
			}
		}
	}

	for {
		select {
		case e := <-j.batchChan:
			batch = append(batch, e)
			if len(batch) >= j.config.BatchSize {
				flush()
				timer.Reset(j.config.BatchTimeout)
			}

		case <-timer.C:
			flush()
			timer.Reset(j.config.BatchTimeout)

		case done := <-j.flushCh:
			drain()
			flush()
			close(done)

		case <-j.stopCh:
			drain()
			flush()
			return
		}
	}
}

// writeBatch inserts a batch in a single transaction.
func (j *Journal) writeBatch(batch []Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.Begin()
	if err != nil {
		j.log.Error().Err(err).Msg("Journal: Failed to begin transaction")
		return
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO frames (session, seq, timestamp, opcode, x, y, w, h, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		j.log.Error().Err(err).Msg("Journal: Failed to prepare statement")
		tx.Rollback()
		return
	}
	defer stmt.Close()

	for _, e := range batch {
		f := e.Frame
		if _, err := stmt.Exec(e.Session.String(), e.Seq, e.Time.UnixNano(),
			int(f.Opcode), int(f.X), int(f.Y), int(f.Width), int(f.Height), f.Payload); err != nil {
			j.log.Error().Err(err).Int64("seq", e.Seq).Msg("Journal: Failed to insert frame")
			tx.Rollback()
			return
		}
	}
	if err := tx.Commit(); err != nil {
		j.log.Error().Err(err).Msg("Journal: Failed to commit batch")
	}
}

// Flush blocks until all queued frames are written.
func (j *Journal) Flush() error {
	done := make(chan struct{})
	select {
	case j.flushCh <- done:
		<-done
		return nil
	case <-j.stopCh:
		return ErrClosed
	}
}

// Frames returns the frames recorded for session in send order.
func (j *Journal) Frames(session uuid.UUID) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return readFrames(j.db, session)
}

// Sessions lists recorded sessions, oldest first.
func (j *Journal) Sessions() ([]SessionInfo, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return readSessions(j.db)
}

// Close flushes pending frames and closes the database.
func (j *Journal) Close() error {
	var err error
	j.closeOnce.Do(func() {
		close(j.stopCh)
		<-j.doneCh
		err = j.db.Close()
	})
	return err
}
