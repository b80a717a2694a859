// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package config

import (
	"time"

	"github.com/tomtom215/sanctuary/internal/logging"
	"github.com/tomtom215/sanctuary/internal/recommend"
	"github.com/tomtom215/sanctuary/internal/recommend/bandit"
	"github.com/tomtom215/sanctuary/internal/storage"
)

// Config holds all application configuration.
//
// Loading order (see Load):
//  1. Defaults: defaultConfig()
//  2. Config file: YAML found via CONFIG_PATH or DefaultConfigPaths
//  3. Environment variables: the mapping in envTransformFunc
//
// Config is immutable after Load and safe for concurrent reads.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Engine   EngineConfig   `koanf:"engine"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Storage  storage.Config `koanf:"storage"`
	Snapshot SnapshotConfig `koanf:"snapshot"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// ReadTimeout and WriteTimeout bound a single request.
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// RateLimitRequests per RateLimitWindow per client IP.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// EngineConfig mirrors recommend.Config with koanf keys.
type EngineConfig struct {
	Bandit     BanditConfig          `koanf:"bandit"`
	Blend      BlendConfig           `koanf:"blend"`
	Normalizer NormalizerConfig      `koanf:"normalizer"`
	Reward     RewardConfig          `koanf:"reward"`
	Limits     LimitsConfig          `koanf:"limits"`
	BoostRules []recommend.BoostRule `koanf:"boost_rules"`

	// SourceTimeout bounds a candidate source fetch.
	SourceTimeout time.Duration `koanf:"source_timeout"`
}

// BanditConfig holds LinUCB hyperparameters. The context dimension is fixed
// by the feature layout and is not configurable.
type BanditConfig struct {
	Alpha              float64 `koanf:"alpha"`
	MinAlpha           float64 `koanf:"min_alpha"`
	AlphaDecay         float64 `koanf:"alpha_decay"`
	WarmupInteractions int     `koanf:"warmup_interactions"`
	Forgetting         float64 `koanf:"forgetting"`
}

// BlendConfig controls the per-user bandit weight ramp.
type BlendConfig struct {
	MaxBanditWeight  float64 `koanf:"max_bandit_weight"`
	RampInteractions int     `koanf:"ramp_interactions"`
}

// NormalizerConfig controls feature standardization.
type NormalizerConfig struct {
	RefitEachBatch bool `koanf:"refit_each_batch"`
}

// RewardConfig controls reward shaping.
type RewardConfig struct {
	Shaped bool `koanf:"shaped"`
}

// LimitsConfig bounds request sizes.
type LimitsConfig struct {
	DefaultTopN   int `koanf:"default_top_n"`
	MaxTopN       int `koanf:"max_top_n"`
	MaxCandidates int `koanf:"max_candidates"`
}

// CatalogConfig configures candidate sources. With no paths the engine only
// scores candidates supplied in requests.
type CatalogConfig struct {
	// Paths are YAML catalog files. More than one is queried through a
	// fanout, in order.
	Paths []string `koanf:"paths"`

	// Timeout bounds each catalog query inside the fanout.
	Timeout time.Duration `koanf:"timeout"`
}

// SnapshotConfig controls the snapshot service.
type SnapshotConfig struct {
	// Interval between periodic saves. Zero disables periodic saves; state
	// is still saved on shutdown.
	Interval time.Duration `koanf:"interval"`

	// LoadOnStartup restores the latest snapshot before serving.
	LoadOnStartup bool `koanf:"load_on_startup"`

	// Timeout bounds one save.
	Timeout time.Duration `koanf:"timeout"`

	// BreakerFailures consecutive failures open the circuit breaker, which
	// stays open for BreakerCooldown.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is trace, debug, info, warn or error.
	// Default: info
	Level string `koanf:"level"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller adds file:line to log entries.
	Caller bool `koanf:"caller"`
}

// RecommendConfig converts the engine section to the engine's own type.
func (c *Config) RecommendConfig() recommend.Config {
	e := c.Engine
	rc := recommend.Config{
		Bandit: bandit.Config{
			Dim:                recommend.ContextDim,
			Alpha:              e.Bandit.Alpha,
			MinAlpha:           e.Bandit.MinAlpha,
			AlphaDecay:         e.Bandit.AlphaDecay,
			WarmupInteractions: e.Bandit.WarmupInteractions,
			Forgetting:         e.Bandit.Forgetting,
		},
		Blend: recommend.BlendConfig{
			MaxBanditWeight:  e.Blend.MaxBanditWeight,
			RampInteractions: e.Blend.RampInteractions,
		},
		Normalizer: recommend.NormalizerConfig{RefitEachBatch: e.Normalizer.RefitEachBatch},
		Reward:     recommend.RewardConfig{Shaped: e.Reward.Shaped},
		Limits: recommend.LimitsConfig{
			DefaultTopN:   e.Limits.DefaultTopN,
			MaxTopN:       e.Limits.MaxTopN,
			MaxCandidates: e.Limits.MaxCandidates,
		},
		SourceTimeout: e.SourceTimeout,
	}
	if len(e.BoostRules) > 0 {
		rc.BoostRules = make([]recommend.BoostRule, len(e.BoostRules))
		copy(rc.BoostRules, e.BoostRules)
	}
	return rc
}

// LoggingSettings converts the logging section for logging.Init.
func (c *Config) LoggingSettings() logging.Config {
	out := logging.DefaultConfig()
	out.Level = c.Logging.Level
	out.Format = c.Logging.Format
	out.Caller = c.Logging.Caller
	return out
}
