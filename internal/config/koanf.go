// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/sanctuary/internal/recommend"
	"github.com/tomtom215/sanctuary/internal/storage"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"sanctuary.yaml",
	"sanctuary.yml",
	"/etc/sanctuary/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	rc := recommend.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			MaxBodyBytes:      1 << 20,
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Engine: EngineConfig{
			Bandit: BanditConfig{
				Alpha:              rc.Bandit.Alpha,
				MinAlpha:           rc.Bandit.MinAlpha,
				AlphaDecay:         rc.Bandit.AlphaDecay,
				WarmupInteractions: rc.Bandit.WarmupInteractions,
				Forgetting:         rc.Bandit.Forgetting,
			},
			Blend: BlendConfig{
				MaxBanditWeight:  rc.Blend.MaxBanditWeight,
				RampInteractions: rc.Blend.RampInteractions,
			},
			Reward: RewardConfig{Shaped: rc.Reward.Shaped},
			Limits: LimitsConfig{
				DefaultTopN:   rc.Limits.DefaultTopN,
				MaxTopN:       rc.Limits.MaxTopN,
				MaxCandidates: rc.Limits.MaxCandidates,
			},
			SourceTimeout: rc.SourceTimeout,
		},
		Catalog: CatalogConfig{
			Timeout: 2 * time.Second,
		},
		Storage: storage.Config{
			Backend: storage.BackendFile,
			Path:    "/data/sanctuary/snapshots",
			Keep:    5,
			Redis: storage.RedisConfig{
				Addr: "localhost:6379",
				Key:  storage.DefaultRedisKey,
			},
		},
		Snapshot: SnapshotConfig{
			Interval:        5 * time.Minute,
			LoadOnStartup:   true,
			Timeout:         30 * time.Second,
			BreakerFailures: 3,
			BreakerCooldown: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// Load builds the configuration from defaults, the config file found via
// CONFIG_PATH or DefaultConfigPaths, and environment variables, then
// validates it.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file. An empty path skips the
// file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as strings.
var sliceConfigPaths = []string{
	"catalog.paths",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"http_max_body_bytes":   "server.max_body_bytes",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	// Engine
	"bandit_alpha":                "engine.bandit.alpha",
	"bandit_min_alpha":            "engine.bandit.min_alpha",
	"bandit_alpha_decay":          "engine.bandit.alpha_decay",
	"bandit_warmup_interactions":  "engine.bandit.warmup_interactions",
	"bandit_forgetting":           "engine.bandit.forgetting",
	"blend_max_bandit_weight":     "engine.blend.max_bandit_weight",
	"blend_ramp_interactions":     "engine.blend.ramp_interactions",
	"normalizer_refit_each_batch": "engine.normalizer.refit_each_batch",
	"reward_shaped":               "engine.reward.shaped",
	"default_top_n":               "engine.limits.default_top_n",
	"max_top_n":                   "engine.limits.max_top_n",
	"max_candidates":              "engine.limits.max_candidates",
	"source_timeout":              "engine.source_timeout",

	// Catalog
	"catalog_paths":   "catalog.paths",
	"catalog_timeout": "catalog.timeout",

	// Storage
	"snapshot_backend":   "storage.backend",
	"snapshot_path":      "storage.path",
	"snapshot_keep":      "storage.keep",
	"redis_addr":         "storage.redis.addr",
	"redis_password":     "storage.redis.password",
	"redis_db":           "storage.redis.db",
	"redis_snapshot_key": "storage.redis.key",
	"redis_snapshot_ttl": "storage.redis.ttl",

	// Snapshot service
	"snapshot_interval":         "snapshot.interval",
	"snapshot_load_on_startup":  "snapshot.load_on_startup",
	"snapshot_timeout":          "snapshot.timeout",
	"snapshot_breaker_failures": "snapshot.breaker_failures",
	"snapshot_breaker_cooldown": "snapshot.breaker_cooldown",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
