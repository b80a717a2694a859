// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package recommend

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/sanctuary/internal/recommend/bandit"
)

// Config holds recommendation engine configuration.
type Config struct {
	// Bandit configures the LinUCB model store.
	Bandit bandit.Config `json:"bandit"`

	// Blend controls how bandit and heuristic scores are combined.
	Blend BlendConfig `json:"blend"`

	// Normalizer controls feature standardization.
	Normalizer NormalizerConfig `json:"normalizer"`

	// Reward controls how feedback outcomes become rewards.
	Reward RewardConfig `json:"reward"`

	// Limits bounds request sizes.
	Limits LimitsConfig `json:"limits"`

	// BoostRules are CEL expressions that add a fixed boost to matching
	// candidates.
	BoostRules []BoostRule `json:"boost_rules,omitempty"`

	// SourceTimeout bounds a candidate source fetch.
	SourceTimeout time.Duration `json:"source_timeout"`
}

// BlendConfig controls the maturity-dependent bandit weight.
type BlendConfig struct {
	// MaxBanditWeight is the weight a fully ramped user gets.
	MaxBanditWeight float64 `json:"max_bandit_weight"`

	// RampInteractions is the number of feedback events after which a user
	// reaches MaxBanditWeight.
	RampInteractions int `json:"ramp_interactions"`
}

// NormalizerConfig controls feature standardization.
type NormalizerConfig struct {
	// RefitEachBatch refits the normalizer on every request batch instead
	// of only the first one.
	RefitEachBatch bool `json:"refit_each_batch"`
}

// RewardConfig controls reward computation.
type RewardConfig struct {
	// Shaped enables watch-time reward shaping when watch data is present.
	Shaped bool `json:"shaped"`
}

// LimitsConfig bounds request sizes.
type LimitsConfig struct {
	DefaultTopN   int `json:"default_top_n"`
	MaxTopN       int `json:"max_top_n"`
	MaxCandidates int `json:"max_candidates"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Bandit: bandit.DefaultConfig(),
		Blend: BlendConfig{
			MaxBanditWeight:  0.7,
			RampInteractions: 20,
		},
		Reward: RewardConfig{
			Shaped: true,
		},
		Limits: LimitsConfig{
			DefaultTopN:   5,
			MaxTopN:       50,
			MaxCandidates: 500,
		},
		SourceTimeout: 5 * time.Second,
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Bandit.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bandit: %w", err))
	}
	if c.Bandit.Dim != ContextDim {
		errs = append(errs, fmt.Errorf("bandit.dim must be %d to match the context vector, got %d", ContextDim, c.Bandit.Dim))
	}
	if c.Blend.MaxBanditWeight < 0 || c.Blend.MaxBanditWeight > 1 {
		errs = append(errs, fmt.Errorf("blend.max_bandit_weight must be in [0, 1], got %v", c.Blend.MaxBanditWeight))
	}
	if c.Blend.RampInteractions < 1 {
		errs = append(errs, fmt.Errorf("blend.ramp_interactions must be >= 1, got %d", c.Blend.RampInteractions))
	}
	if c.Limits.DefaultTopN < 1 {
		errs = append(errs, fmt.Errorf("limits.default_top_n must be >= 1, got %d", c.Limits.DefaultTopN))
	}
	if c.Limits.MaxTopN < c.Limits.DefaultTopN {
		errs = append(errs, fmt.Errorf("limits.max_top_n (%d) must be >= default_top_n (%d)", c.Limits.MaxTopN, c.Limits.DefaultTopN))
	}
	if c.Limits.MaxCandidates < 1 {
		errs = append(errs, fmt.Errorf("limits.max_candidates must be >= 1, got %d", c.Limits.MaxCandidates))
	}
	if c.SourceTimeout <= 0 {
		errs = append(errs, fmt.Errorf("source_timeout must be positive, got %v", c.SourceTimeout))
	}

	seen := make(map[string]bool, len(c.BoostRules))
	for i, r := range c.BoostRules {
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("boost_rules[%d].name is required", i))
		} else if seen[r.Name] {
			errs = append(errs, fmt.Errorf("boost_rules[%d].name %q is duplicated", i, r.Name))
		}
		seen[r.Name] = true
		if r.Expr == "" {
			errs = append(errs, fmt.Errorf("boost_rules[%d].expr is required", i))
		}
		if r.Boost < 0 {
			errs = append(errs, fmt.Errorf("boost_rules[%d].boost must be >= 0, got %v", i, r.Boost))
		}
	}

	return errors.Join(errs...)
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() Config {
	out := *c
	if c.BoostRules != nil {
		out.BoostRules = make([]BoostRule, len(c.BoostRules))
		copy(out.BoostRules, c.BoostRules)
	}
	return out
}
