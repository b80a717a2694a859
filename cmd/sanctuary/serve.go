// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/sanctuary/internal/api"
	"github.com/tomtom215/sanctuary/internal/config"
	"github.com/tomtom215/sanctuary/internal/logging"
	"github.com/tomtom215/sanctuary/internal/supervisor"
	"github.com/tomtom215/sanctuary/internal/supervisor/services"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the recommendation API under a supervisor tree. Engine state is
restored from the latest snapshot on startup (snapshot.load_on_startup),
saved every snapshot.interval and once more on shutdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Error closing snapshot backend")
		}
	}()

	a.logger.Info().
		Str("version", version).
		Str("backend", a.store.Name()).
		Strs("catalogs", cfg.Catalog.Paths).
		Msg("Starting Sanctuary")

	if cfg.Snapshot.LoadOnStartup {
		loaded, err := a.restore(ctx)
		if err != nil {
			// The engine stays fresh and the next save replaces the snapshot.
			a.logger.Warn().Err(err).Msg("Snapshot restore failed, starting with fresh models")
		} else {
			a.logger.Info().Bool("restored", loaded).Msg("Snapshot restore finished")
		}
	}

	server := &http.Server{
		Addr: net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler: api.NewRouter(api.NewHandler(a.engine), api.RouterConfig{
			MaxBodyBytes:      cfg.Server.MaxBodyBytes,
			RateLimitRequests: cfg.Server.RateLimitRequests,
			RateLimitWindow:   cfg.Server.RateLimitWindow,
			RateLimitDisabled: cfg.Server.RateLimitDisabled,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewSnapshotService(a.engine, services.SnapshotConfig{
		Interval:        cfg.Snapshot.Interval,
		Timeout:         cfg.Snapshot.Timeout,
		BreakerFailures: cfg.Snapshot.BreakerFailures,
		BreakerCooldown: cfg.Snapshot.BreakerCooldown,
	}, logging.Logger()))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logging.Logger()))

	a.logger.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info().Msg("Shutdown signal received, waiting for services to stop")
		err = <-errCh
	case err = <-errCh:
	}

	if unstopped, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(unstopped) > 0 {
		a.logger.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	a.logger.Info().Msg("Sanctuary stopped")
	return nil
}
