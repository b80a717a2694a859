// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

/*
Package main is the entry point for the sanctuary command.

Sanctuary ranks wellness videos (exercise, yoga, meditation and reading)
for a user's current emotional state. It blends a popularity
heuristic with a contextual LinUCB bandit that learns from thumbs up/down
and watch-time feedback.

Usage:

	sanctuary [command]

Available Commands:

	serve       Run the HTTP API under the supervisor tree
	stats       Print bandit statistics from the latest snapshot
	replay      Apply a JSONL feedback log to the latest snapshot
	version     Show version information

Configuration is layered (highest priority wins): environment variables,
the YAML file named by --config or CONFIG_PATH, then built-in defaults.

Examples:

	# Serve with a catalog and Redis-backed snapshots
	CATALOG_PATHS=/etc/sanctuary/catalog.yaml SNAPSHOT_BACKEND=redis \
	  REDIS_ADDR=redis:6379 sanctuary serve

	# Inspect what the models have learned
	sanctuary stats --config /etc/sanctuary/config.yaml

	# Train offline from exported feedback
	sanctuary replay feedback.jsonl
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "sanctuary",
		Short: "Wellness video recommendation engine",
		Long: `Sanctuary ranks wellness videos for a user's emotional state by blending
a popularity heuristic with a contextual LinUCB bandit that learns from
feedback.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default: $CONFIG_PATH or ./config.yaml)")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newStatsCmd(&configPath),
		newReplayCmd(&configPath),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:  %s\n", version)
			fmt.Fprintf(out, "Commit:   %s\n", commit)
			fmt.Fprintf(out, "Built:    %s\n", date)
			return nil
		},
	}
}
