// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Badger keys.
const (
	badgerSnapshotKey = "snapshot:latest"
	badgerMetaKey     = "snapshot:meta"
)

// badgerMeta is stored next to the snapshot for inspection.
type badgerMeta struct {
	Sequence  int64     `json:"sequence"`
	SavedAt   time.Time `json:"saved_at"`
	SizeBytes int       `json:"size_bytes"`
}

// BadgerBackend stores the latest snapshot in an embedded BadgerDB.
type BadgerBackend struct {
	db     *badger.DB
	ownsDB bool
}

// OpenBadgerBackend opens a BadgerDB at path. An empty path opens an
// in-memory database.
func OpenBadgerBackend(path string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for snapshots: %w", err)
	}
	return &BadgerBackend{db: db, ownsDB: true}, nil
}

// NewBadgerBackend uses an existing database. Close does not close it.
func NewBadgerBackend(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

// Name implements Backend.
func (b *BadgerBackend) Name() string { return "badger" }

// Save implements Backend.
func (b *BadgerBackend) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		meta := badgerMeta{SavedAt: time.Now().UTC(), SizeBytes: len(data)}
		prev, err := readBadgerMeta(txn)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		meta.Sequence = prev.Sequence + 1

		encoded, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal snapshot meta: %w", err)
		}
		if err := txn.Set([]byte(badgerSnapshotKey), data); err != nil {
			return fmt.Errorf("set snapshot: %w", err)
		}
		if err := txn.Set([]byte(badgerMetaKey), encoded); err != nil {
			return fmt.Errorf("set snapshot meta: %w", err)
		}
		return nil
	})
}

// Load implements Backend.
func (b *BadgerBackend) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerSnapshotKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSnapshotNotFound
		}
		if err != nil {
			return fmt.Errorf("get snapshot: %w", err)
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Sequence returns how many snapshots have been written to this database.
func (b *BadgerBackend) Sequence() (int64, error) {
	var meta badgerMeta
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		meta, err = readBadgerMeta(txn)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	return meta.Sequence, err
}

// Close implements Backend.
func (b *BadgerBackend) Close() error {
	if !b.ownsDB {
		return nil
	}
	return b.db.Close()
}

func readBadgerMeta(txn *badger.Txn) (badgerMeta, error) {
	var meta badgerMeta
	item, err := txn.Get([]byte(badgerMetaKey))
	if err != nil {
		return meta, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &meta)
	})
	return meta, err
}
