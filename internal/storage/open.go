// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Backend names accepted by Config.Backend.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown snapshot backend")

// Config selects and configures a snapshot backend.
type Config struct {
	// Backend is one of file, badger, redis, sqlite or memory.
	Backend string `koanf:"backend"`

	// Path is the directory for file and badger, or the database file for
	// sqlite.
	Path string `koanf:"path"`

	// Keep is how many versions the file and sqlite backends retain.
	Keep int `koanf:"keep"`

	Redis RedisConfig `koanf:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Key      string        `koanf:"key"`
	TTL      time.Duration `koanf:"ttl"`
}

// Validate checks the configuration for the selected backend.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case BackendFile, BackendBadger, BackendSQLite:
		if c.Path == "" {
			return fmt.Errorf("snapshot path is required for the %s backend", c.Backend)
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis address is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.Keep < 0 {
		return fmt.Errorf("snapshot keep must be non-negative, got %d", c.Keep)
	}
	return nil
}

// Open constructs the backend described by cfg.
//
//nolint:gocritic // Config is passed once at startup
func Open(ctx context.Context, cfg Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Backend) {
	case BackendFile:
		return NewFileBackend(cfg.Path, cfg.Keep)
	case BackendBadger:
		return OpenBadgerBackend(cfg.Path)
	case BackendSQLite:
		path := cfg.Path
		if path != ":memory:" && filepath.Ext(path) == "" {
			path = filepath.Join(path, "snapshots.db")
		}
		return OpenSQLiteBackend(ctx, path, cfg.Keep)
	case BackendRedis:
		return NewRedisBackend(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
			TTL:      cfg.Redis.TTL,
		})
	default:
		return NewMemoryBackend(), nil
	}
}
