// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/sanctuary/internal/catalog"
	"github.com/tomtom215/sanctuary/internal/config"
	"github.com/tomtom215/sanctuary/internal/logging"
	"github.com/tomtom215/sanctuary/internal/recommend"
	"github.com/tomtom215/sanctuary/internal/storage"
)

// app holds the components shared by every command.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *storage.Store
	engine *recommend.Engine
}

// loadConfig loads configuration from path, or from the default lookup when
// path is empty, and initializes logging.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	logging.Init(cfg.LoggingSettings())
	return cfg, nil
}

// newApp opens the snapshot backend, builds the candidate source and creates
// a fresh engine.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := logging.WithComponent("sanctuary")

	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open snapshot backend: %w", err)
	}
	store := storage.NewStore(backend, logging.Logger())

	opts := []recommend.Option{recommend.WithSnapshotStore(store)}
	source, err := buildCatalog(cfg, logging.Logger())
	if err != nil {
		_ = store.Close() //nolint:errcheck // catalog error takes precedence
		return nil, err
	}
	if source != nil {
		opts = append(opts, recommend.WithCandidateSource(source))
	}

	engine, err := recommend.NewEngine(cfg.RecommendConfig(), logging.Logger(), opts...)
	if err != nil {
		_ = store.Close() //nolint:errcheck // engine error takes precedence
		return nil, fmt.Errorf("create engine: %w", err)
	}

	return &app{cfg: cfg, logger: logger, store: store, engine: engine}, nil
}

// restore loads the latest snapshot into the engine. It reports false
// without error when no snapshot exists yet.
func (a *app) restore(ctx context.Context) (bool, error) {
	loadCtx, cancel := context.WithTimeout(ctx, a.cfg.Snapshot.Timeout)
	defer cancel()

	loaded, err := a.engine.Load(loadCtx)
	if err != nil {
		return false, fmt.Errorf("restore snapshot: %w", err)
	}
	return loaded, nil
}

// save writes the engine state with the configured timeout.
func (a *app) save(ctx context.Context) error {
	saveCtx, cancel := context.WithTimeout(ctx, a.cfg.Snapshot.Timeout)
	defer cancel()
	return a.engine.Save(saveCtx)
}

func (a *app) Close() error {
	return a.store.Close()
}

// buildCatalog returns nil when no catalog is configured. A single file is
// used directly; several are merged through a fanout.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func buildCatalog(cfg *config.Config, logger zerolog.Logger) (recommend.CandidateSource, error) {
	paths := cfg.Catalog.Paths
	if len(paths) == 0 {
		return nil, nil
	}

	sources := make([]recommend.CandidateSource, 0, len(paths))
	var errs []error
	for _, p := range paths {
		src, err := catalog.LoadStaticSource(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Info().Str("catalog", src.Name()).Int("entries", src.Len()).Msg("Catalog loaded")
		sources = append(sources, src)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if len(sources) == 1 {
		return sources[0], nil
	}
	return catalog.NewFanout(cfg.Catalog.Timeout, logger, sources...), nil
}
