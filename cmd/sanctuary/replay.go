// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tomtom215/sanctuary/internal/recommend"
)

// maxReplayLine bounds one JSONL record. Context vectors make feedback lines
// larger than bufio's 64KiB default only in pathological cases.
const maxReplayLine = 1 << 20

func newReplayCmd(configPath *string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "replay <feedback.jsonl|->",
		Short: "Apply a JSONL feedback log to the latest snapshot",
		Long: `Read one feedback request per line (the POST /api/v1/feedback body) and
apply them in order to the engine restored from the latest snapshot. The
evaluation summary is printed as JSON and the updated state is saved unless
--dry-run is set. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			in, closeIn, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeIn()

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					a.logger.Error().Err(err).Msg("Error closing snapshot backend")
				}
			}()

			if _, err := a.restore(ctx); err != nil {
				return err
			}

			summary, err := replayFeedback(ctx, a.engine, in, a.logger)
			if err != nil {
				return err
			}
			summary.Evaluation = a.engine.Evaluation()
			summary.TotalInteractions = a.engine.Stats().Bandit.TotalInteractions

			if !dryRun {
				if err := a.save(ctx); err != nil {
					return fmt.Errorf("save snapshot: %w", err)
				}
				summary.Saved = true
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "apply feedback without saving the snapshot")
	return cmd
}

func openInput(cmd *cobra.Command, name string) (io.Reader, func(), error) {
	if name == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(name) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, nil, fmt.Errorf("open feedback log: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // read-only file
}

// feedbackApplier is the engine surface replay needs.
type feedbackApplier interface {
	Feedback(ctx context.Context, req recommend.FeedbackRequest) (*recommend.FeedbackResult, error)
}

// replaySummary is printed after a replay.
type replaySummary struct {
	Lines             int                       `json:"lines"`
	Applied           int                       `json:"applied"`
	Ignored           int                       `json:"ignored"`
	Rejected          int                       `json:"rejected"`
	TotalInteractions int                       `json:"total_interactions"`
	Evaluation        recommend.EvaluationStats `json:"evaluation"`
	Saved             bool                      `json:"saved"`
}

// replayFeedback applies each JSONL record in r. Malformed or rejected
// records are logged and counted; only read errors and cancellation stop the
// replay.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func replayFeedback(ctx context.Context, engine feedbackApplier, r io.Reader, logger zerolog.Logger) (replaySummary, error) {
	var summary replaySummary

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxReplayLine)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Lines++

		var req recommend.FeedbackRequest
		if err := json.Unmarshal(line, &req); err != nil {
			summary.Rejected++
			logger.Warn().Err(err).Int("line", lineNo).Msg("Skipping malformed feedback record")
			continue
		}

		result, err := engine.Feedback(ctx, req)
		if err != nil {
			summary.Rejected++
			logger.Warn().Err(err).Int("line", lineNo).Msg("Feedback record rejected")
			continue
		}
		if result.Status == recommend.StatusIgnored {
			summary.Ignored++
			continue
		}
		summary.Applied++
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("read feedback log: %w", err)
	}

	logger.Info().
		Int("applied", summary.Applied).
		Int("ignored", summary.Ignored).
		Int("rejected", summary.Rejected).
		Msg("Replay finished")
	return summary, nil
}
