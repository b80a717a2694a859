// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

// Package usercontext keeps per-user running feedback statistics that feed the
// user block of the bandit context vector.
package usercontext

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Stats is a user's running feedback summary.
type Stats struct {
	AvgFeedback      float64 `json:"avg_feedback"`
	InteractionCount int     `json:"interaction_count"`
	SuccessCount     int     `json:"success_count"`
}

// SuccessRate returns SuccessCount / InteractionCount, or 0 for a cold user.
func (s Stats) SuccessRate() float64 {
	if s.InteractionCount == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.InteractionCount)
}

// Features returns the three user context features: average feedback,
// interaction count scaled by 1/100 and capped at 1, and success rate.
func (s Stats) Features() [3]float64 {
	return [3]float64{
		s.AvgFeedback,
		math.Min(float64(s.InteractionCount)/100, 1),
		s.SuccessRate(),
	}
}

type entry struct {
	mu    sync.Mutex
	stats Stats
}

// Store holds Stats per user id. Entries are created on first Record and live
// for the process lifetime.
type Store struct {
	mu    sync.RWMutex
	users map[string]*entry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{users: make(map[string]*entry)}
}

// Get returns the user's stats, or zero stats for an unknown user.
func (s *Store) Get(userID string) Stats {
	s.mu.RLock()
	e, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return Stats{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Record folds reward into the user's running average and returns the new
// stats. A reward above zero counts as a success.
func (s *Store) Record(userID string, reward float64) Stats {
	e := s.entry(userID)

	e.mu.Lock()
	defer e.mu.Unlock()

	n := float64(e.stats.InteractionCount)
	e.stats.AvgFeedback = (e.stats.AvgFeedback*n + reward) / (n + 1)
	e.stats.InteractionCount++
	if reward > 0 {
		e.stats.SuccessCount++
	}
	return e.stats
}

func (s *Store) entry(userID string) *entry {
	s.mu.RLock()
	e, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.users[userID]; ok {
		return e
	}
	e = &entry{}
	s.users[userID] = e
	return e
}

// Len returns the number of tracked users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// UserStats pairs a user id with its stats for persistence.
type UserStats struct {
	UserID string `json:"user_id"`
	Stats  Stats  `json:"stats"`
}

// Snapshot copies all user stats, sorted by user id.
func (s *Store) Snapshot() []UserStats {
	s.mu.RLock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	out := make([]UserStats, 0, len(ids))
	for _, id := range ids {
		out = append(out, UserStats{UserID: id, Stats: s.Get(id)})
	}
	return out
}

// Restore replaces all user stats. On error the store is left unchanged.
func (s *Store) Restore(users []UserStats) error {
	next := make(map[string]*entry, len(users))
	for _, u := range users {
		if u.Stats.InteractionCount < 0 || u.Stats.SuccessCount < 0 ||
			u.Stats.SuccessCount > u.Stats.InteractionCount {
			return fmt.Errorf("user %q: inconsistent counts", u.UserID)
		}
		if math.IsNaN(u.Stats.AvgFeedback) || math.IsInf(u.Stats.AvgFeedback, 0) {
			return fmt.Errorf("user %q: average feedback is not finite", u.UserID)
		}
		next[u.UserID] = &entry{stats: u.Stats}
	}

	s.mu.Lock()
	s.users = next
	s.mu.Unlock()
	return nil
}
