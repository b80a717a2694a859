// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package recommend

import (
	"math"
	"strings"
)

// Reward bounds.
const (
	RewardPositive = 1.0
	RewardNegative = -1.0

	// RewardExplicitNegative overrides shaped rewards on thumbs down.
	RewardExplicitNegative = -1.5

	rewardMin = RewardExplicitNegative
	rewardMax = RewardPositive
)

// Outcome labels used for metrics.
const (
	outcomeThumbsUp   = "thumbs_up"
	outcomeThumbsDown = "thumbs_down"
	outcomeWatch      = "watch"
	outcomeIgnored    = "ignored"
)

// Reward converts an outcome into a reward. The second return value is false
// when the outcome carries no usable signal and should be ignored.
//
// Without watch data (or with shaping disabled) thumbs up/down map to +1/-1.
// With shaping and a known duration, the watch fraction f gives a base of
// (2f-1)*0.5, thumbs up adds 0.5 and thumbs down overrides everything with
// -1.5. The result is clamped to [-1.5, 1]. Unrecognized signals are
// ignored even when watch data is present.
func Reward(o Outcome, shaped bool) (float64, bool) {
	signal := normalizeSignal(o.Signal)
	switch signal {
	case "", SignalThumbsUp, SignalThumbsDown:
	default:
		return 0, false
	}
	hasWatch := shaped && o.DurationSeconds > 0 && !math.IsNaN(o.WatchSeconds)

	if !hasWatch {
		switch signal {
		case SignalThumbsUp:
			return RewardPositive, true
		case SignalThumbsDown:
			return RewardNegative, true
		default:
			return 0, false
		}
	}

	if signal == SignalThumbsDown {
		return RewardExplicitNegative, true
	}

	f := math.Min(math.Max(o.WatchSeconds/o.DurationSeconds, 0), 1)
	r := (2*f - 1) * 0.5
	if signal == SignalThumbsUp {
		r += 0.5
	}
	return math.Min(math.Max(r, rewardMin), rewardMax), true
}

func normalizeSignal(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// outcomeLabel names an outcome for metrics.
func outcomeLabel(o Outcome, ok bool) string {
	if !ok {
		return outcomeIgnored
	}
	switch normalizeSignal(o.Signal) {
	case SignalThumbsUp:
		return outcomeThumbsUp
	case SignalThumbsDown:
		return outcomeThumbsDown
	default:
		return outcomeWatch
	}
}
