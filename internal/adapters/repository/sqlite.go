// Package repository implements lcpdoc.LicenseRepository on top of a
// local SQLite database, the way the agent persists its work queue
// (grounded on agent.SQLiteStore).
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/readium/r2-lcp-go/internal/lcpdoc"
)

// SQLiteStore persists every license payload this reader has validated,
// keyed by id, keeping the newest updated timestamp per id (spec §3's
// "replacement must be strictly newer" invariant lives upstream of
// this store; AddLicense itself is an upsert that never replaces a
// stored copy with one whose updated timestamp is older).
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens (creating if needed) a database file under dir.
func NewSQLiteStore(dir string, logger zerolog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create license store directory: %w", err)
	}

	dbPath := filepath.Join(dir, "licenses.db")
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open license database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger.With().Str("component", "license_repository").Logger()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate license database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS licenses (
			id TEXT PRIMARY KEY,
			updated_at TEXT NOT NULL,
			profile TEXT NOT NULL,
			raw BLOB NOT NULL,
			stored_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AddLicense implements lcpdoc.LicenseRepository. It overwrites any
// previously stored copy of the same id, but only if the new payload's
// updated timestamp is not older than what's already on disk.
func (s *SQLiteStore) AddLicense(ctx context.Context, license *lcpdoc.License) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO licenses (id, updated_at, profile, raw)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			profile = excluded.profile,
			raw = excluded.raw,
			stored_at = datetime('now')
		WHERE excluded.updated_at >= licenses.updated_at
	`, license.ID(), license.Updated().Format(time.RFC3339), license.Profile(), license.Raw())
	if err != nil {
		return fmt.Errorf("persist license %s: %w", license.ID(), err)
	}
	return nil
}

// Get returns the most recently stored payload for id, if any.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*lcpdoc.License, error) {
	row := s.db.QueryRowContext(ctx, `SELECT raw FROM licenses WHERE id = ?`, id)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load license %s: %w", id, err)
	}
	return lcpdoc.ParseLicense(raw)
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }
