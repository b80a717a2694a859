// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

// Package bandit implements a disjoint LinUCB contextual bandit with one ridge
// regression model per (emotion, category) key.
//
// Each model holds a design matrix A (initialized to the identity), a
// reward-weighted context accumulator b and a weight estimate theta = A⁻¹b.
// Scoring adds an exploration bonus proportional to the model's uncertainty
// about the context. Updates discount older evidence by a forgetting factor
// so models can track drifting preferences.
//
// # Thread Safety
//
// Every model is guarded by its own mutex, so unrelated keys never contend.
// The store-wide interaction counter and the shared exploration parameter
// alpha live under a separate mutex that is only taken inside a key's
// critical section.
//
// # Failure Handling
//
// Numerical failures never escape the package. A pseudo-inverse that cannot be
// computed makes Score return (0, alpha). A singular solve during Update
// resets that key to its initial state.
package bandit

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/tomtom215/sanctuary/internal/metrics"
	"github.com/tomtom215/sanctuary/internal/wellness"
)

// ErrInvalidDimension is returned when a context vector does not match the
// store's dimension.
var ErrInvalidDimension = errors.New("bandit: context dimension mismatch")

// ErrInvalidReward is returned for NaN or infinite rewards.
var ErrInvalidReward = errors.New("bandit: reward is not finite")

// ContextDim is the production context vector width:
// 7 emotions + 4 categories + 5 video features + 3 user features.
const ContextDim = 19

// Config holds bandit store configuration.
type Config struct {
	// Dim is the context vector dimension.
	// Default: 19
	Dim int

	// Alpha is the initial exploration parameter.
	// Default: 1.0
	Alpha float64

	// MinAlpha is the floor alpha decays toward.
	// Default: 0.1
	MinAlpha float64

	// AlphaDecay multiplies alpha on every update past the warm-up.
	// Default: 0.999
	AlphaDecay float64

	// WarmupInteractions is the store-wide interaction count after which
	// alpha starts to decay.
	// Default: 100
	WarmupInteractions int

	// Forgetting is the factor λ applied to A and b before each update.
	// 1 disables forgetting.
	// Default: 0.99
	Forgetting float64
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Dim:                ContextDim,
		Alpha:              1.0,
		MinAlpha:           0.1,
		AlphaDecay:         0.999,
		WarmupInteractions: 100,
		Forgetting:         0.99,
	}
}

// Validate checks the configuration for values that would break the model.
func (c Config) Validate() error {
	if c.Dim < 1 {
		return fmt.Errorf("dim must be positive, got %d", c.Dim)
	}
	if c.Alpha <= 0 || !finite(c.Alpha) {
		return fmt.Errorf("alpha must be positive, got %v", c.Alpha)
	}
	if c.MinAlpha <= 0 || c.MinAlpha > c.Alpha {
		return fmt.Errorf("min_alpha must be in (0, alpha], got %v", c.MinAlpha)
	}
	if c.AlphaDecay <= 0 || c.AlphaDecay > 1 {
		return fmt.Errorf("alpha_decay must be in (0, 1], got %v", c.AlphaDecay)
	}
	if c.WarmupInteractions < 0 {
		return fmt.Errorf("warmup_interactions must be non-negative, got %d", c.WarmupInteractions)
	}
	if c.Forgetting <= 0 || c.Forgetting > 1 {
		return fmt.Errorf("forgetting must be in (0, 1], got %v", c.Forgetting)
	}
	return nil
}

// Key identifies one disjoint model.
type Key struct {
	Emotion  wellness.Emotion  `json:"emotion"`
	Category wellness.Category `json:"category"`
}

// NewKey builds a key from raw labels, mapping unknown values to their defaults.
func NewKey(emotion, category string) Key {
	return Key{
		Emotion:  wellness.ParseEmotion(emotion),
		Category: wellness.ParseCategory(category),
	}
}

// String returns "emotion/category".
func (k Key) String() string {
	return string(k.Emotion) + "/" + string(k.Category)
}

// Model is the serializable state of one key. It never carries a lock.
type Model struct {
	A     [][]float64 `json:"a"`
	B     []float64   `json:"b"`
	Theta []float64   `json:"theta"`
	Count int         `json:"count"`
}

// entry is the runtime wrapper around a model's state.
type entry struct {
	mu    sync.Mutex
	a     *mat.Dense
	b     *mat.VecDense
	theta *mat.VecDense
	count int

	// pinv caches A⁺ between updates; nil when stale.
	pinv *mat.Dense
}

func newEntry(dim int) *entry {
	return &entry{
		a:     identity(dim),
		b:     mat.NewVecDense(dim, nil),
		theta: mat.NewVecDense(dim, nil),
	}
}

// reset returns the entry to its initial state. Caller holds e.mu.
func (e *entry) reset(dim int) {
	e.a = identity(dim)
	e.b = mat.NewVecDense(dim, nil)
	e.theta = mat.NewVecDense(dim, nil)
	e.count = 0
	e.pinv = nil
}

// model copies the entry into its persisted form. Caller holds e.mu.
func (e *entry) model() Model {
	r, _ := e.a.Dims()
	a := make([][]float64, r)
	for i := 0; i < r; i++ {
		a[i] = mat.Row(nil, i, e.a)
	}
	return Model{
		A:     a,
		B:     mat.Col(nil, 0, e.b),
		Theta: mat.Col(nil, 0, e.theta),
		Count: e.count,
	}
}

// UpdateResult describes the outcome of a single update.
type UpdateResult struct {
	// Count is the key's interaction count after the update.
	Count int
	// TotalInteractions is the store-wide count after the update.
	TotalInteractions int
	// Alpha is the exploration parameter after the update.
	Alpha float64
	// Reset is true when the solve failed and the key was reinitialized.
	Reset bool
}

// Store maps keys to independent LinUCB models.
type Store struct {
	config Config
	logger zerolog.Logger

	// updateMu is held shared by Update and exclusively by Snapshot and
	// Restore, so a snapshot never sees a total ahead of its models.
	updateMu sync.RWMutex

	mu     sync.RWMutex
	models map[Key]*entry

	// stateMu guards total and alpha.
	stateMu sync.Mutex
	total   int
	alpha   float64
}

// NewStore creates an empty store. Invalid config values are replaced with
// defaults.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewStore(cfg Config, logger zerolog.Logger) *Store {
	def := DefaultConfig()
	if cfg.Dim <= 0 {
		cfg.Dim = def.Dim
	}
	if cfg.Alpha <= 0 {
		cfg.Alpha = def.Alpha
	}
	if cfg.MinAlpha <= 0 {
		cfg.MinAlpha = def.MinAlpha
	}
	if cfg.AlphaDecay <= 0 || cfg.AlphaDecay > 1 {
		cfg.AlphaDecay = def.AlphaDecay
	}
	if cfg.WarmupInteractions < 0 {
		cfg.WarmupInteractions = def.WarmupInteractions
	}
	if cfg.Forgetting <= 0 || cfg.Forgetting > 1 {
		cfg.Forgetting = def.Forgetting
	}

	return &Store{
		config: cfg,
		logger: logger.With().Str("component", "bandit").Logger(),
		models: make(map[Key]*entry),
		alpha:  cfg.Alpha,
	}
}

// Config returns the effective configuration.
func (s *Store) Config() Config {
	return s.config
}

// Dim returns the context vector dimension.
func (s *Store) Dim() int {
	return s.config.Dim
}

// Alpha returns the current exploration parameter.
func (s *Store) Alpha() float64 {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.alpha
}

// TotalInteractions returns the store-wide update count.
func (s *Store) TotalInteractions() int {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.total
}

// entry returns the entry for key, creating it on first reference.
func (s *Store) entry(key Key) *entry {
	s.mu.RLock()
	e, ok := s.models[key]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.models[key]; ok {
		return e
	}
	e = newEntry(s.config.Dim)
	s.models[key] = e
	return e
}

// Score returns the UCB value thetaᵀx + alpha·sqrt(max(0, xᵀA⁺x)) and the
// uncertainty term separately. When the pseudo-inverse cannot be computed it
// returns (0, alpha).
func (s *Store) Score(key Key, x []float64) (score, uncertainty float64) {
	alpha := s.Alpha()

	if len(x) != s.config.Dim || !finiteSlice(x) {
		s.logger.Warn().
			Str("key", key.String()).
			Int("dim", len(x)).
			Msg("invalid context vector, using exploration fallback")
		metrics.RecordScoreFallback()
		return 0, alpha
	}

	e := s.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pinv == nil {
		p, ok := pseudoInverse(e.a)
		if !ok {
			s.logger.Warn().Str("key", key.String()).Msg("pseudo-inverse failed, using exploration fallback")
			metrics.RecordScoreFallback()
			return 0, alpha
		}
		e.pinv = p
	}

	xv := mat.NewVecDense(len(x), x)
	mean := mat.Dot(e.theta, xv)
	variance := mat.Inner(xv, e.pinv, xv)
	uncertainty = alpha * math.Sqrt(math.Max(0, variance))
	score = mean + uncertainty

	if !finite(score) {
		metrics.RecordScoreFallback()
		return 0, alpha
	}
	return score, uncertainty
}

// Update applies A ← λA + xxᵀ, b ← λb + r·x and recomputes theta by solving
// A·theta = b. A failed solve resets the key. The key's count and the
// store-wide total are incremented either way, and alpha decays once the
// total exceeds the warm-up threshold.
func (s *Store) Update(key Key, x []float64, reward float64) (UpdateResult, error) {
	if len(x) != s.config.Dim {
		return UpdateResult{}, fmt.Errorf("%w: got %d, want %d", ErrInvalidDimension, len(x), s.config.Dim)
	}
	if !finiteSlice(x) {
		return UpdateResult{}, fmt.Errorf("%w: context contains non-finite values", ErrInvalidDimension)
	}
	if !finite(reward) {
		return UpdateResult{}, ErrInvalidReward
	}

	xv := mat.NewVecDense(len(x), append([]float64(nil), x...))
	lambda := s.config.Forgetting

	s.updateMu.RLock()
	defer s.updateMu.RUnlock()

	e := s.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.a.Scale(lambda, e.a)
	e.a.RankOne(e.a, 1, xv, xv)
	e.b.ScaleVec(lambda, e.b)
	e.b.AddScaledVec(e.b, reward, xv)
	e.pinv = nil

	var result UpdateResult
	if theta, ok := solve(e.a, e.b); ok {
		e.theta = theta
	} else {
		s.logger.Warn().
			Str("key", key.String()).
			Int("count", e.count).
			Msg("singular design matrix, resetting model")
		e.reset(s.config.Dim)
		result.Reset = true
	}
	e.count++
	result.Count = e.count

	s.stateMu.Lock()
	s.total++
	if s.total > s.config.WarmupInteractions {
		s.alpha = math.Max(s.config.MinAlpha, s.alpha*s.config.AlphaDecay)
	}
	result.TotalInteractions = s.total
	result.Alpha = s.alpha
	s.stateMu.Unlock()

	metrics.RecordBanditUpdate(string(key.Emotion), string(key.Category), result.Reset)
	return result, nil
}

// Model returns a copy of the key's state without creating it.
func (s *Store) Model(key Key) (Model, bool) {
	s.mu.RLock()
	e, ok := s.models[key]
	s.mu.RUnlock()
	if !ok {
		return Model{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model(), true
}

// Keys returns all known keys sorted by their string form.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	keys := make([]Key, 0, len(s.models))
	for k := range s.models {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// KeyStatistics summarizes one model.
type KeyStatistics struct {
	Key          Key     `json:"key"`
	Interactions int     `json:"interactions"`
	WeightNorm   float64 `json:"weight_norm"`
}

// Statistics summarizes the whole store.
type Statistics struct {
	TotalInteractions int             `json:"total_interactions"`
	Alpha             float64         `json:"current_alpha"`
	ModelsTrained     int             `json:"models_trained"`
	Models            []KeyStatistics `json:"model_details"`
}

// Statistics returns per-key interaction counts and ‖theta‖ plus the
// store-wide totals. It does not mutate any model.
func (s *Store) Statistics() Statistics {
	keys := s.Keys()

	stats := Statistics{Models: make([]KeyStatistics, 0, len(keys))}
	for _, k := range keys {
		s.mu.RLock()
		e := s.models[k]
		s.mu.RUnlock()
		if e == nil {
			continue
		}

		e.mu.Lock()
		ks := KeyStatistics{
			Key:          k,
			Interactions: e.count,
			WeightNorm:   mat.Norm(e.theta, 2),
		}
		e.mu.Unlock()
		stats.Models = append(stats.Models, ks)
	}

	s.stateMu.Lock()
	stats.TotalInteractions = s.total
	stats.Alpha = s.alpha
	s.stateMu.Unlock()
	stats.ModelsTrained = len(stats.Models)

	return stats
}

// PublishMetrics pushes store-wide gauges to Prometheus.
func (s *Store) PublishMetrics() {
	s.mu.RLock()
	n := len(s.models)
	s.mu.RUnlock()

	s.stateMu.Lock()
	total, alpha := s.total, s.alpha
	s.stateMu.Unlock()

	metrics.UpdateBanditGauges(total, alpha, n)
}
