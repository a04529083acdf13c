// Package store keeps the exercise history: one row per coaching run in
// sessions and one row per rated frame in evaluations. It is an output log
// of verdicts; reference motions themselves are never stored here.
//
// The database is SQLite through the pure-Go modernc.org/sqlite driver, so a
// history file can be opened on any platform without cgo.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// busyTimeoutMS is how long a write waits for another process holding the
// history file, e.g. a second replay pointed at the same database.
const busyTimeoutMS = 5000

// connPragmas are applied to the single pooled connection.
var connPragmas = []string{
	"PRAGMA foreign_keys = ON",
	fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS),
}

// Store is an open history database.
type Store struct {
	db   *sql.DB
	path string
}

// New opens or creates the history database at dbPath and brings its schema
// up to date. ":memory:" gives a throwaway history that lives as long as the
// Store.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", dbPath, err)
	}

	// Pragmas and ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range connPragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure history (%s): %w", pragma, err)
		}
	}

	s := &Store{db: db, path: dbPath}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}
	return s, nil
}

// Close releases the database. Repositories obtained from s fail afterwards.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the connection for ad-hoc queries and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}
