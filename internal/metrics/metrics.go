// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sanctuary_recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"status"}, // "ok", "empty", "error"
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sanctuary_recommend_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	CandidatesScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sanctuary_candidates_scored_total",
			Help: "Total number of candidates scored",
		},
	)

	CandidatesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sanctuary_candidates_skipped_total",
			Help: "Total number of candidates skipped because of malformed metadata",
		},
		[]string{"reason"},
	)

	CandidateSourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sanctuary_candidate_source_errors_total",
			Help: "Total number of candidate source fetch failures",
		},
		[]string{"source"},
	)

	BoostRuleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sanctuary_boost_rule_errors_total",
			Help: "Total number of boost rule evaluation failures",
		},
		[]string{"rule"},
	)

	// Feedback Metrics
	FeedbackEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sanctuary_feedback_events_total",
			Help: "Total number of feedback events",
		},
		[]string{"outcome"}, // "thumbs_up", "thumbs_down", "watch", "ignored"
	)

	CumulativeReward = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sanctuary_cumulative_reward",
			Help: "Sum of all rewards applied since process start",
		},
	)

	SuccessRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sanctuary_success_rate",
			Help: "Fraction of applied feedback events with a positive reward",
		},
	)

	UserContexts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sanctuary_user_contexts",
			Help: "Number of users with running statistics",
		},
	)

	// Bandit Metrics
	BanditUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sanctuary_bandit_updates_total",
			Help: "Total number of bandit model updates",
		},
		[]string{"emotion", "category"},
	)

	BanditResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sanctuary_bandit_resets_total",
			Help: "Total number of bandit models reset after a failed solve",
		},
		[]string{"emotion", "category"},
	)

	BanditScoreFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sanctuary_bandit_score_fallbacks_total",
			Help: "Total number of UCB scores that fell back to the exploration-only result",
		},
	)

	BanditAlpha = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sanctuary_bandit_alpha",
			Help: "Current shared exploration parameter",
		},
	)

	BanditTotalInteractions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sanctuary_bandit_interactions",
			Help: "Total interactions applied across all bandit models",
		},
	)

	BanditModels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sanctuary_bandit_models",
			Help: "Number of (emotion, category) models",
		},
	)

	// Snapshot Metrics
	SnapshotDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sanctuary_snapshot_duration_seconds",
			Help:    "Duration of snapshot operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	SnapshotErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sanctuary_snapshot_errors_total",
			Help: "Total number of failed snapshot operations",
		},
		[]string{"backend", "operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result (success, failure, rejected)",
		},
		[]string{"name", "result"},
	)

	// API Metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sanctuary_api_request_duration_seconds",
			Help:    "Duration of HTTP API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordRecommend records a finished recommendation request.
func RecordRecommend(duration time.Duration, returned int, err error) {
	RecommendDuration.Observe(duration.Seconds())
	switch {
	case err != nil:
		RecommendRequests.WithLabelValues("error").Inc()
	case returned == 0:
		RecommendRequests.WithLabelValues("empty").Inc()
	default:
		RecommendRequests.WithLabelValues("ok").Inc()
	}
}

// RecordCandidatesScored adds n scored candidates.
func RecordCandidatesScored(n int) {
	CandidatesScored.Add(float64(n))
}

// RecordCandidateSkipped records a candidate dropped from a batch.
func RecordCandidateSkipped(reason string) {
	CandidatesSkipped.WithLabelValues(reason).Inc()
}

// RecordSourceError records a failed candidate source fetch.
func RecordSourceError(source string) {
	CandidateSourceErrors.WithLabelValues(source).Inc()
}

// RecordBoostRuleError records a boost rule that failed to evaluate.
func RecordBoostRuleError(rule string) {
	BoostRuleErrors.WithLabelValues(rule).Inc()
}

// RecordFeedback records one feedback event by outcome.
func RecordFeedback(outcome string) {
	FeedbackEvents.WithLabelValues(outcome).Inc()
}

// UpdateEvaluationGauges publishes the running reward evaluation.
func UpdateEvaluationGauges(cumulativeReward, successRate float64) {
	CumulativeReward.Set(cumulativeReward)
	SuccessRate.Set(successRate)
}

// UpdateUserContexts publishes the number of tracked users.
func UpdateUserContexts(n int) {
	UserContexts.Set(float64(n))
}

// RecordBanditUpdate records a model update, and a reset when the solve failed.
func RecordBanditUpdate(emotion, category string, reset bool) {
	BanditUpdates.WithLabelValues(emotion, category).Inc()
	if reset {
		BanditResets.WithLabelValues(emotion, category).Inc()
	}
}

// RecordScoreFallback records a UCB score that could not be computed.
func RecordScoreFallback() {
	BanditScoreFallbacks.Inc()
}

// UpdateBanditGauges publishes store-wide bandit state.
func UpdateBanditGauges(totalInteractions int, alpha float64, models int) {
	BanditTotalInteractions.Set(float64(totalInteractions))
	BanditAlpha.Set(alpha)
	BanditModels.Set(float64(models))
}

// RecordSnapshot records a snapshot save or load against a backend.
func RecordSnapshot(backend, operation string, duration time.Duration, err error) {
	SnapshotDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		SnapshotErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordCircuitBreakerTransition records a breaker state change.
// States follow gobreaker's ordering: closed=0, half-open=1, open=2.
func RecordCircuitBreakerTransition(name, from, to string, toState int) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(float64(toState))
}

// RecordAPIRequest records an HTTP API request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}
