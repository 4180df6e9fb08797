// Package store persists errors surfaced by the event bus so they survive a
// process restart, using the same sql.DB-over-sqlite3 idiom the swarm's
// original task-board integration used for its own local storage.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"
)

// DeadLetterStore is an eventbus.ErrorSink backed by a SQLite database. Every
// error handed to HandleError is recorded as a row; nothing is ever deleted
// automatically, so an operator can inspect and reprocess failures later.
type DeadLetterStore struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (or reuses) the SQLite database at path and ensures its
// schema exists.
func Open(path string) (*DeadLetterStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	s := &DeadLetterStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *DeadLetterStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS dead_letters (
		id TEXT PRIMARY KEY,
		occurred_at TIMESTAMP NOT NULL,
		message TEXT NOT NULL
	);`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	return nil
}

// HandleError implements eventbus.ErrorSink, recording err as a new row.
// A write failure here is dropped silently rather than re-entering the
// error sink.
func (s *DeadLetterStore) HandleError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.db.Exec(
		`INSERT INTO dead_letters (id, occurred_at, message) VALUES (?, ?, ?)`,
		uuid.NewString(), time.Now(), err.Error(),
	)
}

// Count returns the number of dead letters recorded so far.
func (s *DeadLetterStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM dead_letters`).Scan(&n)
	return n, err
}

// Close releases the underlying database handle.
func (s *DeadLetterStore) Close() error {
	return s.db.Close()
}
