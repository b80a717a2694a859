// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/sanctuary/internal/logging"
	"github.com/tomtom215/sanctuary/internal/metrics"
	"github.com/tomtom215/sanctuary/internal/recommend/bandit"
	"github.com/tomtom215/sanctuary/internal/recommend/usercontext"
	"github.com/tomtom215/sanctuary/internal/validation"
	"github.com/tomtom215/sanctuary/internal/wellness"
)

// Engine errors.
var (
	// ErrNoCandidates is returned when a request carries no candidates and
	// no candidate source is configured.
	ErrNoCandidates = errors.New("no candidates supplied and no candidate source configured")

	// ErrSourceUnavailable wraps candidate source failures.
	ErrSourceUnavailable = errors.New("candidate source unavailable")

	// ErrNoSnapshotStore is returned by Save and Load without a snapshot store.
	ErrNoSnapshotStore = errors.New("no snapshot store configured")

	// ErrUnsupportedState is returned when restoring an unknown state layout.
	ErrUnsupportedState = errors.New("unsupported engine state")
)

// Engine is the hybrid recommendation engine.
type Engine struct {
	config Config
	logger zerolog.Logger

	bandit     *bandit.Store
	users      *usercontext.Store
	normalizer *Normalizer
	booster    *Booster

	source    CandidateSource
	snapshots SnapshotStore

	requestCount atomic.Int64
	errorCount   atomic.Int64

	evalMu sync.Mutex
	eval   EvaluationStats
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithCandidateSource sets the source queried when a request has no
// candidates.
func WithCandidateSource(src CandidateSource) Option {
	return func(e *Engine) {
		e.source = src
	}
}

// WithSnapshotStore sets the store used by Save and Load.
func WithSnapshotStore(s SnapshotStore) Option {
	return func(e *Engine) {
		e.snapshots = s
	}
}

// NewEngine creates a recommendation engine.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngine(cfg Config, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger = logger.With().Str("component", "recommend").Logger()

	booster, err := NewBooster(cfg.BoostRules, logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:     cfg.Clone(),
		logger:     logger,
		bandit:     bandit.NewStore(cfg.Bandit, logger),
		users:      usercontext.NewStore(),
		normalizer: NewNormalizer(),
		booster:    booster,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.logger.Info().
		Int("context_dim", e.bandit.Dim()).
		Float64("alpha", e.bandit.Alpha()).
		Int("boost_rules", booster.Len()).
		Bool("has_source", e.source != nil).
		Bool("has_snapshot_store", e.snapshots != nil).
		Msg("Recommendation engine initialized")

	return e, nil
}

// Recommend scores and ranks candidates for a user.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	e.requestCount.Add(1)

	if verr := validation.ValidateStruct(&req); verr != nil {
		e.errorCount.Add(1)
		metrics.RecordRecommend(time.Since(start), 0, verr)
		return nil, verr
	}

	req = e.prepareRequest(req)
	logger := e.createRequestLogger(req)
	emotion := wellness.ParseEmotion(req.Emotion)
	category := wellness.ParseCategory(req.Category)
	logger.Debug().
		Str("emotion", string(emotion)).
		Str("category", string(category)).
		Msg("processing recommendation request")

	candidates, err := e.getCandidates(ctx, req, emotion, category)
	if err != nil {
		e.errorCount.Add(1)
		metrics.RecordRecommend(time.Since(start), 0, err)
		return nil, fmt.Errorf("get candidates: %w", err)
	}

	resp := e.emptyResponse(req, emotion, category)
	if len(candidates) == 0 {
		logger.Debug().Msg("no candidates available")
		resp.Metadata.LatencyMS = time.Since(start).Milliseconds()
		metrics.RecordRecommend(time.Since(start), 0, nil)
		return resp, nil
	}

	items, skipped := e.scoreCandidates(req.UserID, candidates, emotion, category, &resp.BanditWeight, logger)
	rankStable(items)
	if len(items) > req.TopN {
		items = items[:req.TopN]
	}

	resp.Items = items
	resp.TotalCandidates = len(candidates)
	resp.Skipped = skipped
	resp.Metadata.NormalizerFitted = e.normalizer.IsFitted()
	resp.Metadata.LatencyMS = time.Since(start).Milliseconds()

	metrics.RecordCandidatesScored(len(candidates) - skipped)
	metrics.RecordRecommend(time.Since(start), len(items), nil)

	logger.Debug().
		Int("candidates", len(candidates)).
		Int("skipped", skipped).
		Int("returned", len(items)).
		Float64("bandit_weight", resp.BanditWeight).
		Int64("latency_ms", resp.Metadata.LatencyMS).
		Msg("recommendation complete")

	return resp, nil
}

// prepareRequest applies defaults and generates a request ID if needed.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(req Request) Request {
	if req.RequestID == "" {
		req.RequestID = logging.GenerateRequestID()
	}
	if req.TopN <= 0 {
		req.TopN = e.config.Limits.DefaultTopN
	}
	if req.TopN > e.config.Limits.MaxTopN {
		req.TopN = e.config.Limits.MaxTopN
	}
	return req
}

// createRequestLogger creates a logger with request context.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) createRequestLogger(req Request) zerolog.Logger {
	return e.logger.With().
		Str("request_id", req.RequestID).
		Str("user_id", req.UserID).
		Logger()
}

// getCandidates returns the request's candidates, or queries the source.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) getCandidates(ctx context.Context, req Request, emotion wellness.Emotion, category wellness.Category) ([]Candidate, error) {
	candidates := req.Candidates
	if len(candidates) == 0 {
		if e.source == nil {
			return nil, ErrNoCandidates
		}

		fetchCtx, cancel := context.WithTimeout(ctx, e.config.SourceTimeout)
		defer cancel()

		fetched, err := e.source.Fetch(fetchCtx, Query{
			Emotion:  emotion,
			Category: category,
			Keywords: req.Keywords,
			Limit:    e.config.Limits.MaxCandidates,
		})
		if err != nil {
			metrics.RecordSourceError(e.source.Name())
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, e.source.Name(), err)
		}
		candidates = fetched
	}

	if over := len(candidates) - e.config.Limits.MaxCandidates; over > 0 {
		e.logger.Warn().
			Str("request_id", req.RequestID).
			Int("candidates", len(candidates)).
			Int("max_candidates", e.config.Limits.MaxCandidates).
			Msg("Candidate list truncated")
		for i := 0; i < over; i++ {
			metrics.RecordCandidateSkipped("over_limit")
		}
		candidates = candidates[:e.config.Limits.MaxCandidates]
	}
	return candidates, nil
}

type extractedCandidate struct {
	candidate *Candidate
	raw       [NumFeatures]float64
}

// scoreCandidates computes component and final scores for every usable
// candidate, in input order. It returns the number of skipped candidates.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (e *Engine) scoreCandidates(
	userID string,
	candidates []Candidate,
	emotion wellness.Emotion,
	category wellness.Category,
	weight *float64,
	logger zerolog.Logger,
) ([]Recommendation, int) {
	skipped := 0
	valid := make([]extractedCandidate, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if c.ID == "" {
			skipped++
			metrics.RecordCandidateSkipped("missing_id")
			logger.Warn().Int("index", i).Msg("Skipping candidate without id")
			continue
		}
		raw, err := ExtractFeatures(c)
		if err != nil {
			skipped++
			metrics.RecordCandidateSkipped("invalid_metadata")
			logger.Warn().Err(err).Str("candidate_id", c.ID).Msg("Skipping candidate with invalid metadata")
			continue
		}
		valid = append(valid, extractedCandidate{candidate: c, raw: raw})
	}
	if len(valid) == 0 {
		return []Recommendation{}, skipped
	}

	e.fitNormalizer(valid, logger)

	user := e.users.Get(userID)
	w := MaturityWeight(user.InteractionCount, e.config.Blend)
	*weight = w
	key := bandit.Key{Emotion: emotion, Category: category}

	items := make([]Recommendation, 0, len(valid))
	for _, v := range valid {
		norm := e.normalizer.Transform(v.raw[:])
		x, err := BuildContext(emotion, category, norm, user)
		if err != nil {
			skipped++
			metrics.RecordCandidateSkipped("context")
			logger.Warn().Err(err).Str("candidate_id", v.candidate.ID).Msg("Skipping candidate, context build failed")
			continue
		}

		banditScore, uncertainty := e.bandit.Score(key, x)
		heuristic := HeuristicScore(norm)
		boost := math.Max(v.candidate.ManualBoost, 0) + e.booster.Boost(v.candidate, emotion, category)
		final := Blend(w, banditScore, heuristic, boost)

		items = append(items, Recommendation{
			ID:                 v.candidate.ID,
			Title:              v.candidate.Title,
			URL:                v.candidate.URL,
			Thumbnail:          v.candidate.Thumbnail,
			Channel:            v.candidate.Channel,
			Source:             v.candidate.Source,
			FinalScore:         final,
			HeuristicScore:     heuristic,
			BanditScore:        banditScore,
			Uncertainty:        uncertainty,
			Boost:              boost,
			MatchPercent:       MatchPercent(final),
			ContextVector:      x,
			NormalizedFeatures: norm,
		})
	}
	return items, skipped
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (e *Engine) fitNormalizer(valid []extractedCandidate, logger zerolog.Logger) {
	if e.normalizer.IsFitted() && !e.config.Normalizer.RefitEachBatch {
		return
	}
	batch := make([][]float64, len(valid))
	for i := range valid {
		batch[i] = valid[i].raw[:]
	}
	if err := e.normalizer.Fit(batch); err != nil {
		logger.Warn().Err(err).Msg("Normalizer fit failed, using raw features")
		return
	}
	logger.Info().Int("batch_size", len(batch)).Msg("Fitted feature normalizer on batch")
}

// emptyResponse returns a response with no items.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) emptyResponse(req Request, emotion wellness.Emotion, category wellness.Category) *Response {
	return &Response{
		Items:    []Recommendation{},
		Emotion:  emotion,
		Category: category,
		Metadata: ResponseMetadata{
			RequestID:        req.RequestID,
			UserID:           req.UserID,
			NormalizerFitted: e.normalizer.IsFitted(),
			Timestamp:        time.Now(),
		},
	}
}

// Feedback applies a user's reaction to a recommendation. User statistics
// are updated first, then the bandit model for (emotion, category).
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Feedback(ctx context.Context, req FeedbackRequest) (*FeedbackResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		e.errorCount.Add(1)
		return nil, verr
	}
	if req.RequestID == "" {
		req.RequestID = logging.GenerateRequestID()
	}
	logger := e.logger.With().
		Str("request_id", req.RequestID).
		Str("user_id", req.UserID).
		Str("video_id", req.VideoID).
		Logger()

	emotion := wellness.ParseEmotion(req.Emotion)
	category := wellness.ParseCategory(req.Category)
	key := bandit.Key{Emotion: emotion, Category: category}

	reward, ok := Reward(req.Outcome, e.config.Reward.Shaped)
	metrics.RecordFeedback(outcomeLabel(req.Outcome, ok))

	if !ok {
		e.recordEvaluation(0, false)
		user := e.users.Get(req.UserID)
		logger.Debug().Str("signal", req.Outcome.Signal).Msg("feedback ignored")
		return &FeedbackResult{
			Status:            StatusIgnored,
			RequestID:         req.RequestID,
			KeyInteractions:   e.keyInteractions(key),
			TotalInteractions: e.bandit.TotalInteractions(),
			Alpha:             e.bandit.Alpha(),
			BanditWeight:      MaturityWeight(user.InteractionCount, e.config.Blend),
			User:              user,
		}, nil
	}

	x := e.feedbackContext(&req, emotion, category, logger)

	user := e.users.Record(req.UserID, reward)
	metrics.UpdateUserContexts(e.users.Len())

	result := &FeedbackResult{
		Status:       StatusSuccess,
		RequestID:    req.RequestID,
		Reward:       reward,
		BanditWeight: MaturityWeight(user.InteractionCount, e.config.Blend),
		User:         user,
	}

	if x != nil {
		upd, err := e.bandit.Update(key, x, reward)
		if err != nil {
			logger.Warn().Err(err).Str("key", key.String()).Msg("Bandit update rejected")
		} else {
			result.ModelUpdated = true
			result.ModelReset = upd.Reset
			result.KeyInteractions = upd.Count
			result.TotalInteractions = upd.TotalInteractions
			result.Alpha = upd.Alpha
		}
	}
	if !result.ModelUpdated {
		result.KeyInteractions = e.keyInteractions(key)
		result.TotalInteractions = e.bandit.TotalInteractions()
		result.Alpha = e.bandit.Alpha()
	}

	e.recordEvaluation(reward, true)
	e.bandit.PublishMetrics()

	logger.Debug().
		Str("key", key.String()).
		Float64("reward", reward).
		Bool("model_updated", result.ModelUpdated).
		Int("total_interactions", result.TotalInteractions).
		Msg("feedback applied")

	return result, nil
}

// feedbackContext picks the vector the bandit learns from: the echoed
// context vector, else one rebuilt from the echoed normalized features and
// the user's stats before this feedback, else nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (e *Engine) feedbackContext(req *FeedbackRequest, emotion wellness.Emotion, category wellness.Category, logger zerolog.Logger) []float64 {
	if n := len(req.ContextVector); n > 0 {
		if n == e.bandit.Dim() {
			return append([]float64(nil), req.ContextVector...)
		}
		logger.Warn().
			Int("got", n).
			Int("want", e.bandit.Dim()).
			Msg("Echoed context vector has wrong length, ignoring it")
	}

	if len(req.NormalizedFeatures) == NumFeatures {
		x, err := BuildContext(emotion, category, req.NormalizedFeatures, e.users.Get(req.UserID))
		if err == nil && len(x) == e.bandit.Dim() {
			return x
		}
	}
	return nil
}

func (e *Engine) keyInteractions(key bandit.Key) int {
	if m, ok := e.bandit.Model(key); ok {
		return m.Count
	}
	return 0
}

func (e *Engine) recordEvaluation(reward float64, counted bool) {
	e.evalMu.Lock()
	if counted {
		e.eval.Feedback++
		e.eval.CumulativeReward += reward
		if reward > 0 {
			e.eval.Positive++
		}
	} else {
		e.eval.Ignored++
	}
	stats := e.evaluationLocked()
	e.evalMu.Unlock()

	metrics.UpdateEvaluationGauges(stats.CumulativeReward, stats.SuccessRate)
}

func (e *Engine) evaluationLocked() EvaluationStats {
	out := e.eval
	if out.Feedback > 0 {
		out.AverageReward = out.CumulativeReward / float64(out.Feedback)
		out.SuccessRate = float64(out.Positive) / float64(out.Feedback)
	}
	return out
}

// Evaluation returns reward statistics for this process.
func (e *Engine) Evaluation() EvaluationStats {
	e.evalMu.Lock()
	defer e.evalMu.Unlock()
	return e.evaluationLocked()
}

// Stats returns an engine-wide statistics report.
func (e *Engine) Stats() Stats {
	s := Stats{
		Bandit:           e.bandit.Statistics(),
		Users:            e.users.Len(),
		Evaluation:       e.Evaluation(),
		Requests:         e.requestCount.Load(),
		Errors:           e.errorCount.Load(),
		NormalizerFitted: e.normalizer.IsFitted(),
	}
	if e.source != nil {
		s.Source = e.source.Name()
	}
	if e.snapshots != nil {
		s.SnapshotStore = e.snapshots.Name()
	}
	return s
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return e.config.Clone()
}
