// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/sanctuary/internal/metrics"
)

// Saver persists engine state. *recommend.Engine satisfies it.
type Saver interface {
	Save(ctx context.Context) error
}

// SnapshotConfig configures a SnapshotService.
type SnapshotConfig struct {
	// Interval between periodic saves. Zero disables them.
	Interval time.Duration

	// Timeout bounds a single save.
	Timeout time.Duration

	// BreakerFailures consecutive failures open the breaker for
	// BreakerCooldown. While open, periodic saves are skipped.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// SnapshotService saves engine state on a ticker and once more on shutdown.
type SnapshotService struct {
	saver   Saver
	config  SnapshotConfig
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  zerolog.Logger
}

const snapshotBreakerName = "snapshot-store"

// NewSnapshotService creates the service.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSnapshotService(saver Saver, cfg SnapshotConfig, logger zerolog.Logger) *SnapshotService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = time.Minute
	}

	s := &SnapshotService{
		saver:  saver,
		config: cfg,
		logger: logger.With().Str("service", "snapshot").Logger(),
	}

	metrics.CircuitBreakerState.WithLabelValues(snapshotBreakerName).Set(0)
	s.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        snapshotBreakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Snapshot circuit breaker state change")
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String(), int(to))
		},
	})
	return s
}

// Serve implements suture.Service.
func (s *SnapshotService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.config.Interval).Msg("Snapshot service started")

	var tick <-chan time.Time
	if s.config.Interval > 0 {
		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.finalSave()
			return ctx.Err()
		case <-tick:
			if err := s.SaveNow(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn().Err(err).Msg("Periodic snapshot failed")
			}
		}
	}
}

// SaveNow saves through the circuit breaker. It returns
// gobreaker.ErrOpenState while the breaker is open.
func (s *SnapshotService) SaveNow(ctx context.Context) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		saveCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
		return struct{}{}, s.saver.Save(saveCtx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(snapshotBreakerName, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(snapshotBreakerName, "failure").Inc()
		}
		return err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(snapshotBreakerName, "success").Inc()
	return nil
}

// State returns the breaker state.
func (s *SnapshotService) State() gobreaker.State {
	return s.breaker.State()
}

// finalSave bypasses the breaker: it is the last chance to persist state.
func (s *SnapshotService) finalSave() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	start := time.Now()
	if err := s.saver.Save(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Final snapshot failed")
		return
	}
	s.logger.Info().Dur("duration", time.Since(start)).Msg("Final snapshot saved")
}

// String implements fmt.Stringer.
func (s *SnapshotService) String() string {
	return "snapshot-service"
}
