// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package storage

import (
	"context"
	"sync"
)

// MemoryBackend keeps the latest snapshot in process memory.
type MemoryBackend struct {
	mu    sync.RWMutex
	data  []byte
	saves int
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Name implements Backend.
func (b *MemoryBackend) Name() string { return "memory" }

// Save implements Backend.
func (b *MemoryBackend) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append([]byte(nil), data...)
	b.saves++
	return nil
}

// Load implements Backend.
func (b *MemoryBackend) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.data == nil {
		return nil, ErrSnapshotNotFound
	}
	return append([]byte(nil), b.data...), nil
}

// Saves returns the number of successful saves.
func (b *MemoryBackend) Saves() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saves
}

// Close implements Backend.
func (b *MemoryBackend) Close() error { return nil }
