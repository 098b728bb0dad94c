// Package store persists the clipboard history to a SQLite database so a
// daemon restart comes back with the same entries. The whole history is
// small and bounded, so writes replace the full snapshot in one
// transaction rather than diffing.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"go.klb.dev/clipvault/internal/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	position    INTEGER PRIMARY KEY,
	mime        TEXT    NOT NULL,
	data        BLOB    NOT NULL,
	captured_at INTEGER NOT NULL
);
`

// Journal is a SQLite-backed history snapshot store.
type Journal struct {
	db *sql.DB
}

// DefaultPath returns the per-user database location, honoring
// XDG_DATA_HOME.
func DefaultPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "clipvault", "history.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "clipvault", "history.db")
	}
	return filepath.Join(home, ".local", "share", "clipvault", "history.db")
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	// modernc.org/sqlite is not safe for concurrent writers on one file.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Load returns the persisted entries, newest first.
func (j *Journal) Load() ([]history.Entry, error) {
	rows, err := j.db.Query("SELECT mime, data, captured_at FROM entries ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		var e history.Entry
		var capturedAt int64
		if err := rows.Scan(&e.MIME, &e.Data, &capturedAt); err != nil {
			return nil, fmt.Errorf("scanning journal row: %w", err)
		}
		e.CapturedAt = time.Unix(0, capturedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Replace atomically rewrites the stored snapshot. Implements
// history.Journal.
func (j *Journal) Replace(entries []history.Entry) error {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("starting journal write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return fmt.Errorf("clearing journal: %w", err)
	}
	for i, e := range entries {
		_, err := tx.Exec(
			"INSERT INTO entries (position, mime, data, captured_at) VALUES (?, ?, ?, ?)",
			i, e.MIME, e.Data, e.CapturedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("writing journal entry %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
