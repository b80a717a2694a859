// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package bandit

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidSnapshot is returned by Restore for snapshots that do not fit the
// store's configuration.
var ErrInvalidSnapshot = errors.New("bandit: invalid snapshot")

// SnapshotEntry pairs a key with its persisted model.
type SnapshotEntry struct {
	Key   Key   `json:"key"`
	Model Model `json:"model"`
}

// Snapshot is the complete persisted state of a store.
type Snapshot struct {
	Dim               int             `json:"dim"`
	TotalInteractions int             `json:"total_interactions"`
	Alpha             float64         `json:"alpha"`
	Entries           []SnapshotEntry `json:"entries"`
}

// Snapshot copies the store's state. Updates are held off for the duration
// of the copy, so the total and alpha match the copied models.
func (s *Store) Snapshot() Snapshot {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	keys := s.Keys()
	snap := Snapshot{
		Dim:     s.config.Dim,
		Entries: make([]SnapshotEntry, 0, len(keys)),
	}

	for _, k := range keys {
		s.mu.RLock()
		e := s.models[k]
		s.mu.RUnlock()
		if e == nil {
			continue
		}
		e.mu.Lock()
		snap.Entries = append(snap.Entries, SnapshotEntry{Key: k, Model: e.model()})
		e.mu.Unlock()
	}

	s.stateMu.Lock()
	snap.TotalInteractions = s.total
	snap.Alpha = s.alpha
	s.stateMu.Unlock()

	return snap
}

// Restore replaces the store's state with snap. Locks are created fresh. On
// error the store is left unchanged.
func (s *Store) Restore(snap Snapshot) error {
	if snap.Dim != s.config.Dim {
		return fmt.Errorf("%w: dim %d, store dim %d", ErrInvalidSnapshot, snap.Dim, s.config.Dim)
	}
	if snap.TotalInteractions < 0 {
		return fmt.Errorf("%w: negative total interactions", ErrInvalidSnapshot)
	}
	if snap.Alpha <= 0 || !finite(snap.Alpha) {
		return fmt.Errorf("%w: alpha %v", ErrInvalidSnapshot, snap.Alpha)
	}

	models := make(map[Key]*entry, len(snap.Entries))
	for _, se := range snap.Entries {
		e, err := entryFromModel(se.Model, s.config.Dim)
		if err != nil {
			return fmt.Errorf("%w: key %s: %v", ErrInvalidSnapshot, se.Key, err)
		}
		models[se.Key] = e
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	s.mu.Lock()
	s.models = models
	s.mu.Unlock()

	s.stateMu.Lock()
	s.total = snap.TotalInteractions
	s.alpha = snap.Alpha
	s.stateMu.Unlock()

	return nil
}

func entryFromModel(m Model, dim int) (*entry, error) {
	if len(m.A) != dim || len(m.B) != dim || len(m.Theta) != dim {
		return nil, fmt.Errorf("shape mismatch")
	}
	if m.Count < 0 {
		return nil, fmt.Errorf("negative count")
	}

	a := mat.NewDense(dim, dim, nil)
	for i, row := range m.A {
		if len(row) != dim {
			return nil, fmt.Errorf("row %d has %d columns", i, len(row))
		}
		if !finiteSlice(row) {
			return nil, fmt.Errorf("row %d is not finite", i)
		}
		a.SetRow(i, row)
	}
	if !finiteSlice(m.B) || !finiteSlice(m.Theta) {
		return nil, fmt.Errorf("vector is not finite")
	}

	return &entry{
		a:     a,
		b:     mat.NewVecDense(dim, append([]float64(nil), m.B...)),
		theta: mat.NewVecDense(dim, append([]float64(nil), m.Theta...)),
		count: m.Count,
	}, nil
}
