// Package sqlite provides a SQLite-backed implementation of the storage.Store
// interface.
//
// Settlement and membership mutations run inside immediate transactions:
// SQLite's single-writer model then serializes all read-compute-write cycles
// for a pool, which is what keeps two concurrent joins from both splitting
// against the same participant snapshot. busy_timeout bounds how long a
// request waits for the write lock before failing.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/rachajunto/backend/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path. It creates the parent
// directories and runs migrations automatically.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// _txlock=immediate makes every transaction take the write lock up
	// front, so a read-compute-write cycle can never deadlock on lock
	// upgrade against another writer. The pragmas ride in the DSN because
	// busy_timeout and foreign_keys are per-connection state: the driver
	// applies them to every connection the pool opens, where a one-off
	// Exec would only reach whichever connection served it.
	dsn := "file:" + dbPath + "?_txlock=immediate" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// malformed wraps a boundary validation failure for one table.
func malformed(table string, err error) error {
	return &storage.PersistenceError{Table: table, Err: err}
}
