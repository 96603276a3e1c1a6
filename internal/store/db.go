// Package store persists run history, per-package outcomes, and the
// pre-run snapshot registry in SQLite.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the history database. One Store serves the whole process;
// the schema lives in schema.go and the queries in queries.go.
type Store struct {
	db *sql.DB
}

// pragmas are applied once after open. Foreign keys make deleting a run
// cascade to its outcomes; WAL keeps history reads from blocking the
// writer while a run is being recorded.
var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
}

// New opens the history database at dbPath, creating the file if it
// does not exist. ":memory:" gives a throwaway database for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// A single connection: SQLite allows one writer, and runs are
	// persisted strictly sequentially anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying connection for queries the Store does not
// wrap.
func (s *Store) DB() *sql.DB {
	return s.db
}

// CreateSchema creates the runs, outcomes, and snapshots tables with
// their indexes. Every statement is IF NOT EXISTS, so calling it on an
// existing database is a no-op.
func (s *Store) CreateSchema() error {
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
