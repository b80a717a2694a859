// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print bandit statistics from the latest snapshot",
		Long: `Load the latest snapshot from the configured backend and print the
per-key bandit statistics, alpha and user count as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // read-only command

			loaded, err := a.restore(cmd.Context())
			if err != nil {
				return err
			}
			if !loaded {
				a.logger.Warn().Str("backend", a.store.Name()).Msg("No snapshot found, statistics are empty")
			}
			return writeJSON(cmd.OutOrStdout(), a.engine.Stats())
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
