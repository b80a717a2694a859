// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRecommend(t *testing.T) {
	tests := []struct {
		name     string
		returned int
		err      error
		status   string
	}{
		{name: "successful request", returned: 5, status: "ok"},
		{name: "empty result", returned: 0, status: "empty"},
		{name: "failed request", returned: 0, err: errors.New("boom"), status: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(RecommendRequests.WithLabelValues(tt.status))
			RecordRecommend(3*time.Millisecond, tt.returned, tt.err)
			after := testutil.ToFloat64(RecommendRequests.WithLabelValues(tt.status))
			if after-before != 1 {
				t.Errorf("requests{status=%q} delta = %v, want 1", tt.status, after-before)
			}
		})
	}
}

func TestRecordBanditUpdate(t *testing.T) {
	updates := testutil.ToFloat64(BanditUpdates.WithLabelValues("tired", "reading"))
	resets := testutil.ToFloat64(BanditResets.WithLabelValues("tired", "reading"))

	RecordBanditUpdate("tired", "reading", false)
	RecordBanditUpdate("tired", "reading", true)

	if got := testutil.ToFloat64(BanditUpdates.WithLabelValues("tired", "reading")) - updates; got != 2 {
		t.Errorf("updates delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(BanditResets.WithLabelValues("tired", "reading")) - resets; got != 1 {
		t.Errorf("resets delta = %v, want 1", got)
	}
}

func TestUpdateGauges(t *testing.T) {
	UpdateBanditGauges(150, 0.95, 3)
	if got := testutil.ToFloat64(BanditTotalInteractions); got != 150 {
		t.Errorf("BanditTotalInteractions = %v, want 150", got)
	}
	if got := testutil.ToFloat64(BanditAlpha); got != 0.95 {
		t.Errorf("BanditAlpha = %v, want 0.95", got)
	}
	if got := testutil.ToFloat64(BanditModels); got != 3 {
		t.Errorf("BanditModels = %v, want 3", got)
	}

	UpdateEvaluationGauges(12.5, 0.75)
	if got := testutil.ToFloat64(SuccessRate); got != 0.75 {
		t.Errorf("SuccessRate = %v, want 0.75", got)
	}

	UpdateUserContexts(4)
	if got := testutil.ToFloat64(UserContexts); got != 4 {
		t.Errorf("UserContexts = %v, want 4", got)
	}
}

func TestRecordSnapshot(t *testing.T) {
	before := testutil.ToFloat64(SnapshotErrors.WithLabelValues("file", "save"))
	RecordSnapshot("file", "save", time.Millisecond, nil)
	RecordSnapshot("file", "save", time.Millisecond, errors.New("disk full"))
	if got := testutil.ToFloat64(SnapshotErrors.WithLabelValues("file", "save")) - before; got != 1 {
		t.Errorf("snapshot errors delta = %v, want 1", got)
	}
}

func TestRecordCircuitBreakerTransition(t *testing.T) {
	RecordCircuitBreakerTransition("snapshot", "closed", "open", 2)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("snapshot")); got != 2 {
		t.Errorf("circuit_breaker_state = %v, want 2", got)
	}
}

func TestRecordHelpersDoNotPanic(t *testing.T) {
	RecordCandidatesScored(3)
	RecordCandidateSkipped("invalid_metadata")
	RecordSourceError("static")
	RecordBoostRuleError("verified")
	RecordFeedback("thumbs_up")
	RecordScoreFallback()
	RecordAPIRequest("POST", "/api/v1/feedback", "200", 2*time.Millisecond)
}
