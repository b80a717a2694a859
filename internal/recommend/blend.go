// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package recommend

import (
	"math"
	"sort"
)

// MaturityWeight returns the bandit blend weight for a user with the given
// number of feedback events: min(n/ramp, 1) * max.
func MaturityWeight(interactions int, cfg BlendConfig) float64 {
	if interactions <= 0 || cfg.RampInteractions <= 0 {
		return 0
	}
	ramp := math.Min(float64(interactions)/float64(cfg.RampInteractions), 1)
	return ramp * cfg.MaxBanditWeight
}

// Blend combines the component scores: w*bandit + (1-w)*heuristic + boost.
// Negative boosts are treated as zero.
func Blend(w, banditScore, heuristicScore, boost float64) float64 {
	return w*banditScore + (1-w)*heuristicScore + math.Max(boost, 0)
}

// MatchPercent maps a raw score onto 0-100 with a logistic curve, rounded to
// one decimal. A raw score of 0 is 50%.
func MatchPercent(raw float64) float64 {
	p := 100 / (1 + math.Exp(-raw))
	return math.Round(p*10) / 10
}

// rankStable sorts by final score descending, keeping input order on ties.
func rankStable(items []Recommendation) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].FinalScore > items[j].FinalScore
	})
}
