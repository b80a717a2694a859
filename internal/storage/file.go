// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	snapshotPrefix = "snapshot_v"
	snapshotSuffix = ".gob.gz"
)

// FileBackend writes each snapshot to a new versioned file and prunes old
// versions.
type FileBackend struct {
	dir  string
	keep int

	mu      sync.Mutex
	version int
}

// NewFileBackend opens (creating if needed) a snapshot directory. keep is the
// number of versions retained, at least 1.
func NewFileBackend(dir string, keep int) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	if keep < 1 {
		keep = 1
	}

	b := &FileBackend{dir: dir, keep: keep}
	versions, err := b.versions()
	if err != nil {
		return nil, fmt.Errorf("scan snapshot directory: %w", err)
	}
	if len(versions) > 0 {
		b.version = versions[len(versions)-1]
	}
	return b, nil
}

// Name implements Backend.
func (b *FileBackend) Name() string { return "file" }

// Save writes data to the next version atomically and prunes old versions.
func (b *FileBackend) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.version + 1
	target := b.path(next)

	tmp, err := os.CreateTemp(b.dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() //nolint:errcheck // temp file is gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck // sync error takes precedence
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	b.version = next

	return b.pruneLocked()
}

// Load returns the newest snapshot.
func (b *FileBackend) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	version := b.version
	b.mu.Unlock()

	if version == 0 {
		return nil, ErrSnapshotNotFound
	}
	data, err := os.ReadFile(b.path(version))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Close implements Backend.
func (b *FileBackend) Close() error { return nil }

// Version returns the newest version number, 0 if none.
func (b *FileBackend) Version() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

func (b *FileBackend) path(version int) string {
	return filepath.Join(b.dir, fmt.Sprintf("%s%d%s", snapshotPrefix, version, snapshotSuffix))
}

// versions lists snapshot versions on disk in ascending order.
func (b *FileBackend) versions() ([]int, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}

	var out []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if v, ok := parseSnapshotFilename(entry.Name()); ok {
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (b *FileBackend) pruneLocked() error {
	versions, err := b.versions()
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	if len(versions) <= b.keep {
		return nil
	}
	for _, v := range versions[:len(versions)-b.keep] {
		if err := os.Remove(b.path(v)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("prune snapshot v%d: %w", v, err)
		}
	}
	return nil
}

// parseSnapshotFilename extracts the version from "snapshot_v12.gob.gz".
func parseSnapshotFilename(name string) (int, bool) {
	if !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), snapshotSuffix))
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}
