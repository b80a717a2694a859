// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/sanctuary/internal/metrics"
	"github.com/tomtom215/sanctuary/internal/recommend"
)

// ErrNoSources is returned by Fetch on a Fanout with no sources.
var ErrNoSources = errors.New("fanout has no sources")

// Fanout queries several sources concurrently and merges their results.
type Fanout struct {
	sources []recommend.CandidateSource
	timeout time.Duration
	logger  zerolog.Logger
}

// NewFanout creates a fanout over sources. A positive timeout bounds each
// source's Fetch.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewFanout(timeout time.Duration, logger zerolog.Logger, sources ...recommend.CandidateSource) *Fanout {
	return &Fanout{
		sources: sources,
		timeout: timeout,
		logger:  logger.With().Str("component", "catalog_fanout").Logger(),
	}
}

// Name implements recommend.CandidateSource.
func (f *Fanout) Name() string { return "fanout" }

// Fetch implements recommend.CandidateSource.
func (f *Fanout) Fetch(ctx context.Context, q recommend.Query) ([]recommend.Candidate, error) {
	if len(f.sources) == 0 {
		return nil, ErrNoSources
	}

	results := make([][]recommend.Candidate, len(f.sources))
	errs := make([]error, len(f.sources))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, src := range f.sources {
		eg.Go(func() error {
			fetchCtx := egCtx
			if f.timeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(egCtx, f.timeout)
				defer cancel()
			}

			items, err := src.Fetch(fetchCtx, q)
			if err != nil {
				// A single failing source must not cancel the others.
				errs[i] = fmt.Errorf("%s: %w", src.Name(), err)
				metrics.RecordSourceError(src.Name())
				f.logger.Warn().Err(err).Str("source", src.Name()).Msg("Candidate source failed")
				return nil
			}
			for j := range items {
				if items[j].Source == "" {
					items[j].Source = src.Name()
				}
			}
			results[i] = items
			return nil
		})
	}
	_ = eg.Wait() //nolint:errcheck // goroutines never return errors

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(f.sources) {
		return nil, fmt.Errorf("all candidate sources failed: %w", errors.Join(errs...))
	}

	merged := mergeFirst(results)
	if q.Limit > 0 && len(merged) > q.Limit {
		merged = merged[:q.Limit]
	}
	return merged, nil
}

// mergeFirst flattens results in source order, keeping the first occurrence
// of each ID.
func mergeFirst(results [][]recommend.Candidate) []recommend.Candidate {
	total := 0
	for _, r := range results {
		total += len(r)
	}

	seen := make(map[string]struct{}, total)
	out := make([]recommend.Candidate, 0, total)
	for _, r := range results {
		for i := range r {
			if _, dup := seen[r[i].ID]; dup {
				continue
			}
			seen[r[i].ID] = struct{}{}
			out = append(out, r[i])
		}
	}
	return out
}
