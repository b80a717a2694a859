// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package recommend

import "math"

const (
	// heuristicViewsScale maps the log-views feature roughly onto [0, 1].
	heuristicViewsScale = 15.0

	// NeutralHeuristicScore is returned for malformed feature vectors.
	NeutralHeuristicScore = 0.5
)

// HeuristicScore is the fixed popularity/engagement prior:
//
//	0.5*min(f[0]/15, 1) + 0.5*clamp(f[1], 0, 1)
//
// Vectors with fewer than two features score NeutralHeuristicScore.
func HeuristicScore(features []float64) float64 {
	if len(features) < 2 {
		return NeutralHeuristicScore
	}
	views := math.Min(features[FeatureLogViews]/heuristicViewsScale, 1)
	engagement := math.Min(math.Max(features[FeatureEngagement], 0), 1)
	return 0.5*views + 0.5*engagement
}
