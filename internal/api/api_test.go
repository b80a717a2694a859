// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/sanctuary/internal/logging"
	"github.com/tomtom215/sanctuary/internal/recommend"
)

// stubEngine returns canned results.
type stubEngine struct {
	recommendErr error
	feedbackErr  error
	lastRequest  recommend.Request
	lastFeedback recommend.FeedbackRequest
}

func (s *stubEngine) Recommend(_ context.Context, req recommend.Request) (*recommend.Response, error) {
	s.lastRequest = req
	if s.recommendErr != nil {
		return nil, s.recommendErr
	}
	return &recommend.Response{Items: []recommend.Recommendation{{ID: "v1", FinalScore: 0.7}}}, nil
}

func (s *stubEngine) Feedback(_ context.Context, req recommend.FeedbackRequest) (*recommend.FeedbackResult, error) {
	s.lastFeedback = req
	if s.feedbackErr != nil {
		return nil, s.feedbackErr
	}
	return &recommend.FeedbackResult{Status: recommend.StatusSuccess, RequestID: req.RequestID, Reward: 1}, nil
}

func (s *stubEngine) Stats() recommend.Stats {
	return recommend.Stats{Users: 3, Requests: 7}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func newTestServer(t *testing.T, engine Recommender, cfg RouterConfig) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(NewHandler(engine), cfg))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, header map[string]string) (*http.Response, envelope) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s %s response: %v", method, path, err)
	}
	return resp, env
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubEngine{}, RouterConfig{RateLimitDisabled: true})
	resp, env := do(t, srv, http.MethodGet, "/healthz", "", nil)

	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("status = %d success = %v", resp.StatusCode, env.Success)
	}
	var health HealthResponse
	if err := json.Unmarshal(env.Data, &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" {
		t.Errorf("health status = %q", health.Status)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("missing X-Request-ID response header")
	}
}

func TestRecommendHandler(t *testing.T) {
	t.Parallel()

	engine := &stubEngine{}
	srv := newTestServer(t, engine, RouterConfig{RateLimitDisabled: true})

	resp, env := do(t, srv, http.MethodPost, "/api/v1/recommendations",
		`{"user_id":"u1","emotion":"stressed","candidates":[{"id":"v1"}]}`,
		map[string]string{RequestIDHeader: "req-abc"})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, error = %+v", resp.StatusCode, env.Error)
	}
	if env.Meta == nil || env.Meta.RequestID != "req-abc" {
		t.Errorf("meta = %+v, want request id req-abc", env.Meta)
	}
	if engine.lastRequest.RequestID != "req-abc" {
		t.Errorf("engine request id = %q, want header value", engine.lastRequest.RequestID)
	}
	if engine.lastRequest.UserID != "u1" || len(engine.lastRequest.Candidates) != 1 {
		t.Errorf("decoded request = %+v", engine.lastRequest)
	}

	var out recommend.Response
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Items) != 1 || out.Items[0].ID != "v1" {
		t.Errorf("items = %+v", out.Items)
	}
}

func TestRecommendErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid json", `{"user_id":`, nil, http.StatusBadRequest, CodeInvalidJSON},
		{"empty body", ``, nil, http.StatusBadRequest, CodeInvalidJSON},
		{"no candidates", `{"user_id":"u"}`, recommend.ErrNoCandidates, http.StatusBadRequest, CodeNoCandidates},
		{
			"source down", `{"user_id":"u"}`,
			fmt.Errorf("%w: yaml: %w", recommend.ErrSourceUnavailable, context.DeadlineExceeded),
			http.StatusBadGateway, CodeSourceUnavailable,
		},
		{"timeout", `{"user_id":"u"}`, context.DeadlineExceeded, http.StatusServiceUnavailable, CodeTimeout},
		{"internal", `{"user_id":"u"}`, errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(t, &stubEngine{recommendErr: tt.err}, RouterConfig{RateLimitDisabled: true})
			resp, env := do(t, srv, http.MethodPost, "/api/v1/recommendations", tt.body, nil)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if env.Success || env.Error == nil || env.Error.Code != tt.wantCode {
				t.Fatalf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
			if env.Error.RequestID == "" {
				t.Error("error missing request id")
			}
		})
	}
}

func TestFeedbackHandler(t *testing.T) {
	t.Parallel()

	engine := &stubEngine{}
	srv := newTestServer(t, engine, RouterConfig{RateLimitDisabled: true})

	resp, env := do(t, srv, http.MethodPost, "/api/v1/feedback",
		`{"user_id":"u1","video_id":"v1","emotion":"sad","category":"reading","outcome":{"signal":"thumbs_up"}}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, error = %+v", resp.StatusCode, env.Error)
	}
	if engine.lastFeedback.Outcome.Signal != recommend.SignalThumbsUp {
		t.Errorf("decoded outcome = %+v", engine.lastFeedback.Outcome)
	}
	if engine.lastFeedback.RequestID == "" {
		t.Error("feedback request id was not filled from the request context")
	}
}

func TestStatsHandler(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubEngine{}, RouterConfig{RateLimitDisabled: true})
	resp, env := do(t, srv, http.MethodGet, "/api/v1/stats", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var stats recommend.Stats
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Users != 3 || stats.Requests != 7 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRoutingErrors(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubEngine{}, RouterConfig{RateLimitDisabled: true})

	resp, env := do(t, srv, http.MethodGet, "/api/v1/nope", "", nil)
	if resp.StatusCode != http.StatusNotFound || env.Error == nil || env.Error.Code != CodeNotFound {
		t.Errorf("unknown route: status = %d error = %+v", resp.StatusCode, env.Error)
	}

	resp, env = do(t, srv, http.MethodGet, "/api/v1/feedback", "", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed || env.Error == nil || env.Error.Code != CodeMethodNotAllowed {
		t.Errorf("wrong method: status = %d error = %+v", resp.StatusCode, env.Error)
	}
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubEngine{}, RouterConfig{MaxBodyBytes: 64, RateLimitDisabled: true})
	body := `{"user_id":"` + strings.Repeat("x", 200) + `"}`

	resp, env := do(t, srv, http.MethodPost, "/api/v1/recommendations", body, nil)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413 (error %+v)", resp.StatusCode, env.Error)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubEngine{}, RouterConfig{RateLimitRequests: 2, RateLimitWindow: time.Minute})

	for i := 0; i < 2; i++ {
		if resp, _ := do(t, srv, http.MethodGet, "/api/v1/stats", "", nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d", i, resp.StatusCode)
		}
	}
	resp, env := do(t, srv, http.MethodGet, "/api/v1/stats", "", nil)
	if resp.StatusCode != http.StatusTooManyRequests || env.Error == nil || env.Error.Code != CodeRateLimited {
		t.Errorf("third request: status = %d error = %+v", resp.StatusCode, env.Error)
	}

	// Health checks sit outside the limited group.
	if resp, _ := do(t, srv, http.MethodGet, "/healthz", "", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
}

// TestRequestLogFields swaps the global logger, so it must not run in
// parallel with other tests.
func TestRequestLogFields(t *testing.T) {
	var buf bytes.Buffer
	prevLogger := logging.Logger()
	prevLevel := zerolog.GlobalLevel()
	logging.SetLogger(logging.NewTestLogger(&buf))
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() {
		logging.SetLogger(prevLogger)
		zerolog.SetGlobalLevel(prevLevel)
	})

	srv := newTestServer(t, &stubEngine{}, RouterConfig{RateLimitDisabled: true})
	do(t, srv, http.MethodGet, "/api/v1/stats", "", map[string]string{RequestIDHeader: "req-log"})

	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("log line %q is not JSON: %v", line, err)
		}
		if m["message"] == "Request completed" {
			entry = m
		}
	}
	if entry == nil {
		t.Fatalf("no request log written: %s", buf.String())
	}
	want := map[string]any{
		"component":  "api",
		"request_id": "req-log",
		"route":      "/api/v1/stats",
		"method":     http.MethodGet,
		"status":     float64(http.StatusOK),
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
	if id, _ := entry["correlation_id"].(string); id == "" {
		t.Error("missing correlation_id")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubEngine{}, RouterConfig{RateLimitDisabled: true})
	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestRecommendFeedbackRoundTrip(t *testing.T) {
	t.Parallel()

	engine, err := recommend.NewEngine(recommend.DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	srv := newTestServer(t, engine, RouterConfig{RateLimitDisabled: true, MaxBodyBytes: 1 << 20})

	resp, env := do(t, srv, http.MethodPost, "/api/v1/recommendations", `{
		"user_id": "u1",
		"emotion": "stressed",
		"category": "yoga",
		"candidates": [
			{"id": "a", "views": 5000000, "likes": 150000, "channel_subscribers": 11000000, "duration_minutes": 20, "published_days_ago": 30},
			{"id": "b", "views": 50000, "likes": 1000, "channel_subscribers": 100000, "duration_minutes": 10.5, "published_days_ago": 100}
		]
	}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("recommend status = %d, error = %+v", resp.StatusCode, env.Error)
	}

	var rec recommend.Response
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(rec.Items))
	}
	top := rec.Items[0]

	fb := recommend.FeedbackRequest{
		UserID:        "u1",
		VideoID:       top.ID,
		Emotion:       "stressed",
		Category:      "yoga",
		ContextVector: top.ContextVector,
		Outcome:       recommend.Outcome{Signal: recommend.SignalThumbsUp},
	}
	body, err := json.Marshal(fb)
	if err != nil {
		t.Fatal(err)
	}

	resp, env = do(t, srv, http.MethodPost, "/api/v1/feedback", string(body), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("feedback status = %d, error = %+v", resp.StatusCode, env.Error)
	}
	var result recommend.FeedbackResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatal(err)
	}
	if !result.ModelUpdated || result.TotalInteractions != 1 {
		t.Errorf("feedback result = %+v", result)
	}

	// Missing user id is a validation error from the engine.
	resp, env = do(t, srv, http.MethodPost, "/api/v1/feedback", `{"outcome":{"signal":"thumbs_up"}}`, nil)
	if resp.StatusCode != http.StatusBadRequest || env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("invalid feedback: status = %d error = %+v", resp.StatusCode, env.Error)
	}
}
