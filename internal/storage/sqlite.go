// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	saved_at   TEXT    NOT NULL,
	size_bytes INTEGER NOT NULL,
	data       BLOB    NOT NULL
)`

// SQLiteBackend keeps the last N snapshots in a SQLite table.
type SQLiteBackend struct {
	db   *sql.DB
	keep int
}

// OpenSQLiteBackend opens (creating if needed) a SQLite database at path.
// ":memory:" opens a private in-memory database.
func OpenSQLiteBackend(ctx context.Context, path string, keep int) (*SQLiteBackend, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // ping error takes precedence
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close() //nolint:errcheck // migration error takes precedence
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}

	if keep < 1 {
		keep = 1
	}
	return &SQLiteBackend{db: db, keep: keep}, nil
}

// Name implements Backend.
func (b *SQLiteBackend) Name() string { return "sqlite" }

// Save inserts a snapshot row and deletes rows beyond the retention count.
func (b *SQLiteBackend) Save(ctx context.Context, data []byte) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (saved_at, size_bytes, data) VALUES (?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), len(data), data,
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`,
		b.keep,
	); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return tx.Commit()
}

// Load returns the newest snapshot row.
func (b *SQLiteBackend) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, `SELECT data FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return data, nil
}

// Count returns the number of retained snapshots.
func (b *SQLiteBackend) Count(ctx context.Context) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n)
	return n, err
}

// Close implements Backend.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
