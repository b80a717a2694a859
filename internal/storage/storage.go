// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

// Package storage persists engine snapshots.
//
// A snapshot is gob-encoded, checksummed with SHA-256 and gzip-compressed
// into an envelope (see Encode). Envelopes are opaque byte slices to the
// backends, which only store and return the latest one:
//
//   - file: versioned snapshot_vN.gob.gz files with pruning of old versions
//   - badger: an embedded BadgerDB key
//   - redis: a Redis string key, shareable between replicas
//   - sqlite: a snapshots table keeping the last N rows
//   - memory: process-local, for tests and ephemeral deployments
//
// Loading when nothing has been saved yet returns ErrSnapshotNotFound, which
// wraps fs.ErrNotExist.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/sanctuary/internal/metrics"
)

// ErrSnapshotNotFound is returned by Load when no snapshot exists.
var ErrSnapshotNotFound = fmt.Errorf("snapshot not found: %w", fs.ErrNotExist)

// Backend stores the latest encoded snapshot.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Save stores data as the latest snapshot.
	Save(ctx context.Context, data []byte) error

	// Load returns the latest snapshot or ErrSnapshotNotFound.
	Load(ctx context.Context) ([]byte, error)

	// Close releases backend resources.
	Close() error
}

// Store encodes values and writes them to a backend.
type Store struct {
	backend Backend
	logger  zerolog.Logger
}

// NewStore wraps a backend.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewStore(backend Backend, logger zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.With().Str("component", "storage").Str("backend", backend.Name()).Logger(),
	}
}

// Name returns the backend name.
func (s *Store) Name() string {
	return s.backend.Name()
}

// Save encodes v and stores it as the latest snapshot.
func (s *Store) Save(ctx context.Context, v any) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordSnapshot(s.backend.Name(), "save", time.Since(start), err)
	}()

	data, meta, err := Encode(v)
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, data); err != nil {
		return fmt.Errorf("%s save: %w", s.backend.Name(), err)
	}

	s.logger.Debug().
		Str("checksum", meta.Checksum).
		Int64("raw_bytes", meta.RawBytes).
		Int64("size_bytes", meta.SizeBytes).
		Dur("duration", time.Since(start)).
		Msg("snapshot written")
	return nil
}

// Load reads the latest snapshot into v.
func (s *Store) Load(ctx context.Context, v any) (err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrSnapshotNotFound) {
			metrics.RecordSnapshot(s.backend.Name(), "load", time.Since(start), nil)
			return
		}
		metrics.RecordSnapshot(s.backend.Name(), "load", time.Since(start), err)
	}()

	data, err := s.backend.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return err
		}
		return fmt.Errorf("%s load: %w", s.backend.Name(), err)
	}

	meta, err := Decode(data, v)
	if err != nil {
		return err
	}

	s.logger.Debug().
		Time("saved_at", meta.SavedAt).
		Str("checksum", meta.Checksum).
		Int64("size_bytes", meta.SizeBytes).
		Msg("snapshot read")
	return nil
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
