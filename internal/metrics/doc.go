// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

/*
Package metrics provides Prometheus metrics for the recommendation engine.

All collectors are registered on the default registry through promauto and
exposed at /metrics by the API router.

# Available Metrics

Recommendation:
  - sanctuary_recommend_requests_total{status}
  - sanctuary_recommend_duration_seconds
  - sanctuary_candidates_scored_total
  - sanctuary_candidates_skipped_total{reason}
  - sanctuary_candidate_source_errors_total{source}
  - sanctuary_boost_rule_errors_total{rule}

Feedback and evaluation:
  - sanctuary_feedback_events_total{outcome}
  - sanctuary_cumulative_reward
  - sanctuary_success_rate
  - sanctuary_user_contexts

Bandit:
  - sanctuary_bandit_updates_total{emotion,category}
  - sanctuary_bandit_resets_total{emotion,category}
  - sanctuary_bandit_score_fallbacks_total
  - sanctuary_bandit_alpha
  - sanctuary_bandit_interactions
  - sanctuary_bandit_models

Persistence:
  - sanctuary_snapshot_duration_seconds{backend,operation}
  - sanctuary_snapshot_errors_total{backend,operation}
  - circuit_breaker_state{name}
  - circuit_breaker_state_transitions_total{name,from_state,to_state}

# Usage

Call the Record* helpers rather than touching collectors directly:

	metrics.RecordBanditUpdate("stressed", "yoga", false)
	metrics.RecordSnapshot("badger", "save", time.Since(start), err)
*/
package metrics
