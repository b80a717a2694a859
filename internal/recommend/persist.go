// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package recommend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/tomtom215/sanctuary/internal/metrics"
	"github.com/tomtom215/sanctuary/internal/recommend/bandit"
	"github.com/tomtom215/sanctuary/internal/recommend/usercontext"
)

// State captures the learned state: bandit models and user statistics.
func (e *Engine) State() *State {
	return &State{
		Version: StateVersion,
		SavedAt: time.Now().UTC(),
		Bandit:  e.bandit.Snapshot(),
		Users:   e.users.Snapshot(),
	}
}

// Restore replaces the learned state. Both parts are validated before
// either is applied, so on error the engine is unchanged.
func (e *Engine) Restore(st *State) error {
	if st == nil {
		return fmt.Errorf("%w: nil state", ErrUnsupportedState)
	}
	if st.Version != StateVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrUnsupportedState, st.Version, StateVersion)
	}

	probe := bandit.NewStore(e.bandit.Config(), e.logger)
	if err := probe.Restore(st.Bandit); err != nil {
		return fmt.Errorf("restore bandit: %w", err)
	}
	if err := usercontext.NewStore().Restore(st.Users); err != nil {
		return fmt.Errorf("restore users: %w", err)
	}

	if err := e.bandit.Restore(st.Bandit); err != nil {
		return fmt.Errorf("restore bandit: %w", err)
	}
	if err := e.users.Restore(st.Users); err != nil {
		return fmt.Errorf("restore users: %w", err)
	}

	e.bandit.PublishMetrics()
	metrics.UpdateUserContexts(e.users.Len())
	return nil
}

// Save writes the learned state to the snapshot store.
func (e *Engine) Save(ctx context.Context) error {
	if e.snapshots == nil {
		return ErrNoSnapshotStore
	}
	st := e.State()
	if err := e.snapshots.Save(ctx, st); err != nil {
		return fmt.Errorf("save snapshot to %s: %w", e.snapshots.Name(), err)
	}

	e.logger.Debug().
		Str("store", e.snapshots.Name()).
		Int("models", len(st.Bandit.Entries)).
		Int("users", len(st.Users)).
		Msg("Snapshot saved")
	return nil
}

// Load restores the learned state from the snapshot store. A missing
// snapshot is not an error: it returns false and the engine stays fresh.
// Any other failure also leaves the engine fresh, and is returned so the
// caller can log it.
func (e *Engine) Load(ctx context.Context) (bool, error) {
	if e.snapshots == nil {
		return false, ErrNoSnapshotStore
	}

	var st State
	if err := e.snapshots.Load(ctx, &st); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.logger.Info().Str("store", e.snapshots.Name()).Msg("No snapshot found, starting with fresh models")
			return false, nil
		}
		return false, fmt.Errorf("load snapshot from %s: %w", e.snapshots.Name(), err)
	}
	if err := e.Restore(&st); err != nil {
		return false, err
	}

	e.logger.Info().
		Str("store", e.snapshots.Name()).
		Time("saved_at", st.SavedAt).
		Int("models", len(st.Bandit.Entries)).
		Int("users", len(st.Users)).
		Int("total_interactions", st.Bandit.TotalInteractions).
		Msg("Snapshot loaded")
	return true, nil
}
