// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package recommend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/sanctuary/internal/recommend/bandit"
	"github.com/tomtom215/sanctuary/internal/recommend/usercontext"
	"github.com/tomtom215/sanctuary/internal/validation"
	"github.com/tomtom215/sanctuary/internal/wellness"
)

// mockSource implements CandidateSource for testing.
type mockSource struct {
	mu         sync.Mutex
	candidates []Candidate
	err        error
	queries    []Query
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Fetch(_ context.Context, q Query) ([]Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.err != nil {
		return nil, m.err
	}
	return m.candidates, nil
}

// memorySnapshots implements SnapshotStore in memory.
type memorySnapshots struct {
	mu      sync.Mutex
	state   *State
	loadErr error
	saves   int
}

func (m *memorySnapshots) Name() string { return "memory" }

func (m *memorySnapshots) Save(_ context.Context, v any) error {
	st, ok := v.(*State)
	if !ok {
		return fmt.Errorf("unexpected type %T", v)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *st
	m.state = &cp
	m.saves++
	return nil
}

func (m *memorySnapshots) Load(_ context.Context, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return m.loadErr
	}
	if m.state == nil {
		return fmt.Errorf("memory: %w", fs.ErrNotExist)
	}
	st, ok := v.(*State)
	if !ok {
		return fmt.Errorf("unexpected type %T", v)
	}
	*st = *m.state
	return nil
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig(), zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

// scenarioCandidates is the two-video batch used across engine tests:
// the first video dominates the second on every feature.
func scenarioCandidates() []Candidate {
	return []Candidate{
		{
			ID:                 "popular",
			Title:              "10 Minute Yoga for Stress",
			Views:              Float(5000000),
			Likes:              Float(150000),
			ChannelSubscribers: Float(11000000),
			DurationMinutes:    Float(20),
			PublishedDaysAgo:   Float(30),
		},
		{
			ID:                 "niche",
			Title:              "Gentle Stretch",
			Views:              Float(50000),
			Likes:              Float(1000),
			ChannelSubscribers: Float(100000),
			DurationMinutes:    Float(10.5),
			PublishedDaysAgo:   Float(100),
		},
	}
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad weight", func(c *Config) { c.Blend.MaxBanditWeight = 1.5 }},
		{"bad ramp", func(c *Config) { c.Blend.RampInteractions = 0 }},
		{"bad dim", func(c *Config) { c.Bandit.Dim = 7 }},
		{"bad top n", func(c *Config) { c.Limits.DefaultTopN = 0 }},
		{"bad rule", func(c *Config) { c.BoostRules = []BoostRule{{Name: "r", Expr: "candidate.views >", Boost: 1}} }},
		{"duplicate rule", func(c *Config) {
			c.BoostRules = []BoostRule{{Name: "r", Expr: "true", Boost: 1}, {Name: "r", Expr: "true", Boost: 1}}
		}},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(&cfg)
		if _, err := NewEngine(cfg, zerolog.Nop()); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestRecommendColdStartMatchesHeuristic(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	resp, err := e.Recommend(context.Background(), Request{
		UserID:     "fresh-user",
		Emotion:    "stressed",
		Category:   "yoga",
		Candidates: scenarioCandidates(),
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	if resp.Emotion != wellness.Stressed || resp.Category != wellness.Yoga {
		t.Errorf("resolved key = %s/%s", resp.Emotion, resp.Category)
	}
	if resp.BanditWeight != 0 {
		t.Errorf("BanditWeight = %v, want 0 for a fresh user", resp.BanditWeight)
	}
	if len(resp.Items) != 2 || resp.Items[0].ID != "popular" {
		t.Fatalf("ranking = %v, want popular first", ids(resp.Items))
	}
	if resp.Metadata.RequestID == "" || !resp.Metadata.NormalizerFitted {
		t.Errorf("metadata = %+v", resp.Metadata)
	}

	for _, item := range resp.Items {
		if !approx(item.FinalScore, item.HeuristicScore) {
			t.Errorf("%s: final %v != heuristic %v", item.ID, item.FinalScore, item.HeuristicScore)
		}
		if len(item.ContextVector) != ContextDim || len(item.NormalizedFeatures) != NumFeatures {
			t.Errorf("%s: vector lengths %d/%d", item.ID, len(item.ContextVector), len(item.NormalizedFeatures))
		}
	}

	// Two-element batch: every normalized feature is +1 or -1.
	top := resp.Items[0]
	for i, v := range top.NormalizedFeatures {
		if !approx(v, 1) {
			t.Errorf("normalized feature %d = %v, want 1", i, v)
		}
	}
	if want := 0.5/15 + 0.5; !approx(top.HeuristicScore, want) {
		t.Errorf("heuristic = %v, want %v", top.HeuristicScore, want)
	}
	// Fresh model: theta = 0, so the score is the exploration bonus alpha*|x|.
	if want := math.Sqrt(7); math.Abs(top.BanditScore-want) > 1e-9 || math.Abs(top.Uncertainty-want) > 1e-9 {
		t.Errorf("bandit = (%v, %v), want (%v, %v)", top.BanditScore, top.Uncertainty, want, want)
	}
	if top.MatchPercent != 63 {
		t.Errorf("match = %v, want 63", top.MatchPercent)
	}
}

func TestRecommendTopNAndSkips(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	cands := append(scenarioCandidates(),
		Candidate{ID: "broken", Views: Float(-10)},
		Candidate{ID: "bare"},
	)

	resp, err := e.Recommend(context.Background(), Request{
		UserID:     "u",
		Emotion:    "happy",
		Candidates: cands,
		TopN:       2,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if resp.TotalCandidates != 4 || resp.Skipped != 1 {
		t.Errorf("total/skipped = %d/%d, want 4/1", resp.TotalCandidates, resp.Skipped)
	}
	if len(resp.Items) != 2 {
		t.Errorf("len(items) = %d, want 2", len(resp.Items))
	}
	for _, item := range resp.Items {
		if item.ID == "broken" {
			t.Error("invalid candidate must be skipped")
		}
	}
}

func TestRecommendManualBoost(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	cands := scenarioCandidates()
	cands[1].ManualBoost = 5

	resp, err := e.Recommend(context.Background(), Request{UserID: "u", Candidates: cands})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if resp.Items[0].ID != "niche" || resp.Items[0].Boost != 5 {
		t.Errorf("boosted candidate not first: %v", ids(resp.Items))
	}
}

func TestRecommendUsesCandidateSource(t *testing.T) {
	t.Parallel()

	src := &mockSource{candidates: scenarioCandidates()}
	e := newTestEngine(t, WithCandidateSource(src))

	resp, err := e.Recommend(context.Background(), Request{
		UserID:   "u",
		Emotion:  "tired",
		Category: "meditation",
		Keywords: []string{"sleep"},
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("len(items) = %d", len(resp.Items))
	}
	if len(src.queries) != 1 {
		t.Fatalf("source called %d times", len(src.queries))
	}
	q := src.queries[0]
	if q.Emotion != wellness.Tired || q.Category != wellness.Meditation || len(q.Keywords) != 1 {
		t.Errorf("query = %+v", q)
	}
}

func TestRecommendErrors(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	_, err := e.Recommend(context.Background(), Request{UserID: "u"})
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("error = %v, want ErrNoCandidates", err)
	}

	_, err = e.Recommend(context.Background(), Request{Candidates: scenarioCandidates()})
	var verr *validation.RequestValidationError
	if !errors.As(err, &verr) {
		t.Errorf("missing user id error = %v, want validation error", err)
	}

	failing := newTestEngine(t, WithCandidateSource(&mockSource{err: errors.New("upstream down")}))
	if _, err := failing.Recommend(context.Background(), Request{UserID: "u"}); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("source error = %v, want ErrSourceUnavailable", err)
	}

	empty := newTestEngine(t, WithCandidateSource(&mockSource{}))
	resp, err := empty.Recommend(context.Background(), Request{UserID: "u"})
	if err != nil || len(resp.Items) != 0 {
		t.Errorf("empty source: resp=%v err=%v", resp, err)
	}

	if got := e.Stats().Errors; got != 2 {
		t.Errorf("errors = %d, want 2", got)
	}
}

func TestFeedbackUpdatesUserAndBandit(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	resp, err := e.Recommend(ctx, Request{UserID: "u1", Emotion: "stressed", Category: "yoga", Candidates: scenarioCandidates()})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	x := resp.Items[0].ContextVector

	res, err := e.Feedback(ctx, FeedbackRequest{
		UserID:        "u1",
		VideoID:       resp.Items[0].ID,
		Emotion:       string(resp.Emotion),
		Category:      string(resp.Category),
		ContextVector: x,
		Outcome:       Outcome{Signal: SignalThumbsUp},
	})
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if res.Status != StatusSuccess || res.Reward != 1 || !res.ModelUpdated {
		t.Fatalf("result = %+v", res)
	}
	if res.KeyInteractions != 1 || res.TotalInteractions != 1 {
		t.Errorf("counts = %d/%d, want 1/1", res.KeyInteractions, res.TotalInteractions)
	}
	if res.User.InteractionCount != 1 || res.User.SuccessCount != 1 || res.User.AvgFeedback != 1 {
		t.Errorf("user = %+v", res.User)
	}
	if !approx(res.BanditWeight, 0.035) {
		t.Errorf("bandit weight = %v, want 0.035", res.BanditWeight)
	}

	// A = 0.99 I + x xᵀ and b = x, so theta = x / (0.99 + |x|²).
	m, ok := e.bandit.Model(bandit.Key{Emotion: wellness.Stressed, Category: wellness.Yoga})
	if !ok {
		t.Fatal("model missing")
	}
	var sq float64
	for _, v := range x {
		sq += v * v
	}
	for i := range x {
		if want := x[i] / (0.99 + sq); math.Abs(m.Theta[i]-want) > 1e-9 {
			t.Fatalf("theta[%d] = %v, want %v", i, m.Theta[i], want)
		}
	}

	stats := e.Stats()
	if stats.Users != 1 || stats.Bandit.TotalInteractions != 1 || stats.Bandit.ModelsTrained != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Evaluation.Feedback != 1 || stats.Evaluation.Positive != 1 || stats.Evaluation.SuccessRate != 1 {
		t.Errorf("evaluation = %+v", stats.Evaluation)
	}
}

func TestFeedbackRaisesScoreForLikedContext(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	req := Request{UserID: "u", Emotion: "sad", Category: "reading", Candidates: scenarioCandidates()}

	before, err := e.Recommend(ctx, req)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	niche := before.Items[1]

	for i := 0; i < 5; i++ {
		if _, err := e.Feedback(ctx, FeedbackRequest{
			UserID:        "other",
			Emotion:       "sad",
			Category:      "reading",
			ContextVector: niche.ContextVector,
			Outcome:       Outcome{Signal: SignalThumbsUp},
		}); err != nil {
			t.Fatalf("Feedback: %v", err)
		}
	}

	key := bandit.Key{Emotion: wellness.Sad, Category: wellness.Reading}
	m, _ := e.bandit.Model(key)
	var exploit float64
	for i := range niche.ContextVector {
		exploit += m.Theta[i] * niche.ContextVector[i]
	}
	if exploit <= 0 {
		t.Errorf("theta·x = %v, want positive after repeated thumbs up", exploit)
	}

	score, uncertainty := e.bandit.Score(key, niche.ContextVector)
	if uncertainty >= niche.Uncertainty {
		t.Errorf("uncertainty %v did not shrink from %v", uncertainty, niche.Uncertainty)
	}
	if !approx(score, exploit+uncertainty) {
		t.Errorf("score %v != theta·x + bonus %v", score, exploit+uncertainty)
	}
}

func TestFeedbackIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outcome Outcome
	}{
		{"unknown signal", Outcome{Signal: "shrug"}},
		{"unknown signal with watch data", Outcome{Signal: "meh", WatchSeconds: 60, DurationSeconds: 60}},
		{"misspelled thumbs down with watch data", Outcome{Signal: "thumbs-down", WatchSeconds: 5, DurationSeconds: 60}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newTestEngine(t)
			res, err := e.Feedback(context.Background(), FeedbackRequest{
				UserID:        "u",
				Emotion:       "calm",
				Category:      "yoga",
				ContextVector: make([]float64, ContextDim),
				Outcome:       tt.outcome,
			})
			if err != nil {
				t.Fatalf("Feedback: %v", err)
			}
			if res.Status != StatusIgnored || res.ModelUpdated || res.TotalInteractions != 0 {
				t.Errorf("result = %+v", res)
			}

			stats := e.Stats()
			if stats.Users != 0 || stats.Bandit.TotalInteractions != 0 || stats.Evaluation.Ignored != 1 {
				t.Errorf("ignored feedback changed state: %+v", stats)
			}
			if stats.Evaluation.Feedback != 0 {
				t.Errorf("evaluation feedback = %d, want 0", stats.Evaluation.Feedback)
			}
		})
	}
}

func TestFeedbackContextFallbacks(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()

	rebuilt, err := e.Feedback(ctx, FeedbackRequest{
		UserID:             "u",
		Emotion:            "anxious",
		Category:           "exercise",
		NormalizedFeatures: []float64{1, 0, 0, 0, 0},
		Outcome:            Outcome{Signal: SignalThumbsDown},
	})
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if !rebuilt.ModelUpdated || rebuilt.Reward != -1 {
		t.Errorf("rebuild from features: %+v", rebuilt)
	}

	wrongLen, err := e.Feedback(ctx, FeedbackRequest{
		UserID:        "u",
		Emotion:       "anxious",
		Category:      "exercise",
		ContextVector: []float64{1, 2, 3},
		Outcome:       Outcome{Signal: SignalThumbsUp},
	})
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if wrongLen.ModelUpdated {
		t.Error("a short context vector without features must not update the model")
	}
	if wrongLen.User.InteractionCount != 2 {
		t.Errorf("user stats must still update, got %+v", wrongLen.User)
	}
	if wrongLen.KeyInteractions != 1 || wrongLen.TotalInteractions != 1 {
		t.Errorf("counts = %d/%d, want 1/1", wrongLen.KeyInteractions, wrongLen.TotalInteractions)
	}
}

func TestFeedbackValidation(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	_, err := e.Feedback(context.Background(), FeedbackRequest{
		Outcome: Outcome{Signal: SignalThumbsUp},
	})
	var verr *validation.RequestValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error = %v, want validation error", err)
	}

	_, err = e.Feedback(context.Background(), FeedbackRequest{
		UserID:  "u",
		Outcome: Outcome{WatchSeconds: -5, DurationSeconds: 10},
	})
	if !errors.As(err, &verr) {
		t.Errorf("negative watch time error = %v, want validation error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Feedback(ctx, FeedbackRequest{UserID: "u"}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled context error = %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store := &memorySnapshots{}
	e := newTestEngine(t, WithSnapshotStore(store))
	ctx := context.Background()

	loaded, err := e.Load(ctx)
	if err != nil || loaded {
		t.Fatalf("Load on empty store = (%v, %v), want (false, nil)", loaded, err)
	}

	for _, signal := range []string{SignalThumbsUp, SignalThumbsDown, SignalThumbsUp} {
		if _, err := e.Feedback(ctx, FeedbackRequest{
			UserID:             "u1",
			Emotion:            "motivated",
			Category:           "exercise",
			NormalizedFeatures: []float64{0.5, -0.5, 1, 0, 2},
			Outcome:            Outcome{Signal: signal},
		}); err != nil {
			t.Fatalf("Feedback: %v", err)
		}
	}
	if err := e.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := newTestEngine(t, WithSnapshotStore(store))
	loaded, err = restored.Load(ctx)
	if err != nil || !loaded {
		t.Fatalf("Load = (%v, %v)", loaded, err)
	}

	key := bandit.Key{Emotion: wellness.Motivated, Category: wellness.Exercise}
	want, _ := e.bandit.Model(key)
	got, ok := restored.bandit.Model(key)
	if !ok || got.Count != want.Count {
		t.Fatalf("restored model = %+v", got)
	}
	for i := range want.Theta {
		if got.Theta[i] != want.Theta[i] {
			t.Fatalf("theta[%d] = %v, want %v", i, got.Theta[i], want.Theta[i])
		}
	}
	if restored.users.Get("u1") != e.users.Get("u1") {
		t.Errorf("user stats = %+v, want %+v", restored.users.Get("u1"), e.users.Get("u1"))
	}
	if restored.bandit.TotalInteractions() != 3 {
		t.Errorf("total = %d, want 3", restored.bandit.TotalInteractions())
	}
}

func TestLoadFailureLeavesEngineFresh(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, WithSnapshotStore(&memorySnapshots{loadErr: errors.New("checksum mismatch")}))
	loaded, err := e.Load(context.Background())
	if err == nil || loaded {
		t.Fatalf("Load = (%v, %v), want failure", loaded, err)
	}
	if e.bandit.TotalInteractions() != 0 || e.users.Len() != 0 {
		t.Error("failed load must leave a fresh engine")
	}

	bare := newTestEngine(t)
	if err := bare.Save(context.Background()); !errors.Is(err, ErrNoSnapshotStore) {
		t.Errorf("Save without store = %v", err)
	}
}

func TestRestoreRejectsBadState(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	if err := e.Restore(nil); !errors.Is(err, ErrUnsupportedState) {
		t.Errorf("nil state error = %v", err)
	}
	if err := e.Restore(&State{Version: 99}); !errors.Is(err, ErrUnsupportedState) {
		t.Errorf("version error = %v", err)
	}

	good := e.State()
	good.Users = append(good.Users, badUser())
	if err := e.Restore(good); err == nil {
		t.Error("expected error for inconsistent user stats")
	}
}

func badUser() usercontext.UserStats {
	return usercontext.UserStats{
		UserID: "broken",
		Stats:  usercontext.Stats{InteractionCount: 1, SuccessCount: 2},
	}
}

func TestConcurrentRecommendAndFeedback(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx := context.Background()
	emotions := wellness.Emotions()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			emotion := string(emotions[i%len(emotions)])
			user := fmt.Sprintf("user-%d", i%4)
			resp, err := e.Recommend(ctx, Request{UserID: user, Emotion: emotion, Candidates: scenarioCandidates()})
			if err != nil {
				t.Errorf("Recommend: %v", err)
				return
			}
			if _, err := e.Feedback(ctx, FeedbackRequest{
				UserID:        user,
				Emotion:       emotion,
				Category:      string(resp.Category),
				ContextVector: resp.Items[0].ContextVector,
				Outcome:       Outcome{Signal: SignalThumbsUp},
			}); err != nil {
				t.Errorf("Feedback: %v", err)
			}
		}(i)
	}
	wg.Wait()

	stats := e.Stats()
	if stats.Bandit.TotalInteractions != 16 || stats.Users != 4 || stats.Requests != 16 {
		t.Errorf("stats = %+v", stats)
	}
}
