// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/sanctuary/internal/logging"
)

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	rc := c.RecommendConfig()
	return errors.Join(
		c.validateServer(),
		prefixed("engine", rc.Validate()),
		c.validateCatalog(),
		prefixed("storage", c.Storage.Validate()),
		c.validateSnapshot(),
		c.validateLogging(),
	)
}

func prefixed(section string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", section, err)
}

func (c *Config) validateServer() error {
	s := c.Server
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", s.Port)
	}
	if s.ReadTimeout <= 0 || s.WriteTimeout <= 0 {
		return errors.New("server.read_timeout and server.write_timeout must be positive")
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %v", s.ShutdownTimeout)
	}
	if s.MaxBodyBytes < 1024 {
		return fmt.Errorf("server.max_body_bytes must be at least 1024, got %d", s.MaxBodyBytes)
	}
	if !s.RateLimitDisabled && (s.RateLimitRequests < 1 || s.RateLimitWindow <= 0) {
		return errors.New("server.rate_limit_requests and server.rate_limit_window must be positive unless rate limiting is disabled")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	for i, p := range c.Catalog.Paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("catalog.paths[%d] is empty", i)
		}
	}
	if len(c.Catalog.Paths) > 0 && c.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog.timeout must be positive, got %v", c.Catalog.Timeout)
	}
	return nil
}

func (c *Config) validateSnapshot() error {
	s := c.Snapshot
	if s.Interval < 0 {
		return fmt.Errorf("snapshot.interval must not be negative, got %v", s.Interval)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("snapshot.timeout must be positive, got %v", s.Timeout)
	}
	if s.BreakerFailures < 1 {
		return errors.New("snapshot.breaker_failures must be at least 1")
	}
	if s.BreakerCooldown <= 0 {
		return fmt.Errorf("snapshot.breaker_cooldown must be positive, got %v", s.BreakerCooldown)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
}
