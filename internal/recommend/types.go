// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package recommend

import (
	"context"
	"time"

	"github.com/tomtom215/sanctuary/internal/recommend/bandit"
	"github.com/tomtom215/sanctuary/internal/recommend/usercontext"
	"github.com/tomtom215/sanctuary/internal/wellness"
)

// Candidate is a video as returned by a candidate source.
//
// Numeric metadata is optional. Missing values fall back to neutral defaults
// during feature extraction.
type Candidate struct {
	ID        string `json:"id" yaml:"id" validate:"required,max=256"`
	Title     string `json:"title,omitempty" yaml:"title"`
	URL       string `json:"url,omitempty" yaml:"url"`
	Thumbnail string `json:"thumbnail,omitempty" yaml:"thumbnail"`
	Channel   string `json:"channel,omitempty" yaml:"channel"`

	Views              *float64 `json:"views,omitempty" yaml:"views"`
	Likes              *float64 `json:"likes,omitempty" yaml:"likes"`
	ChannelSubscribers *float64 `json:"channel_subscribers,omitempty" yaml:"channel_subscribers"`
	DurationMinutes    *float64 `json:"duration_minutes,omitempty" yaml:"duration_minutes"`
	PublishedDaysAgo   *float64 `json:"published_days_ago,omitempty" yaml:"published_days_ago"`

	// ChannelVerified is only consulted by boost rules.
	ChannelVerified *bool `json:"channel_verified,omitempty" yaml:"channel_verified"`

	// ManualBoost is added to the blended score. Negative values are ignored.
	ManualBoost float64 `json:"manual_boost,omitempty" yaml:"manual_boost"`

	// Source names the candidate source that produced this video.
	Source string `json:"source,omitempty" yaml:"-"`
}

// Float returns a pointer to v, for building candidates in code.
func Float(v float64) *float64 {
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

// Request is a recommendation request.
type Request struct {
	// RequestID is generated when empty.
	RequestID string `json:"request_id,omitempty" validate:"max=128"`

	UserID string `json:"user_id" validate:"required,max=256"`

	// Emotion is the detected emotion label. Unknown labels map to calm.
	Emotion string `json:"emotion" validate:"max=64"`

	// Confidence is the classifier's confidence in Emotion. Informational.
	Confidence float64 `json:"confidence,omitempty" validate:"finite,gte=0,lte=1"`

	// Keywords are forwarded to the candidate source.
	Keywords []string `json:"keywords,omitempty" validate:"max=32,dive,max=128"`

	// Category is the wellness category. Empty or unknown labels map to yoga.
	Category string `json:"category,omitempty" validate:"max=64"`

	// Candidates are scored directly when present. Otherwise the engine's
	// candidate source is queried.
	Candidates []Candidate `json:"candidates,omitempty" validate:"dive"`

	// TopN is the number of results to return. Zero selects the default.
	TopN int `json:"top_n,omitempty" validate:"gte=0"`
}

// Recommendation is one ranked video.
type Recommendation struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Source    string `json:"source,omitempty"`

	FinalScore     float64 `json:"final_score"`
	HeuristicScore float64 `json:"heuristic_score"`
	BanditScore    float64 `json:"bandit_score"`
	Uncertainty    float64 `json:"uncertainty"`
	Boost          float64 `json:"boost"`
	MatchPercent   float64 `json:"match_percent"`

	// ContextVector is echoed back with feedback so the bandit learns from
	// exactly what it scored.
	ContextVector      []float64 `json:"context_vector"`
	NormalizedFeatures []float64 `json:"normalized_features"`
}

// Response is a recommendation response.
type Response struct {
	Items []Recommendation `json:"items"`

	// Emotion and Category are the resolved labels used as the bandit key.
	Emotion  wellness.Emotion  `json:"emotion"`
	Category wellness.Category `json:"category"`

	// BanditWeight is the blend weight applied to bandit scores.
	BanditWeight float64 `json:"bandit_weight"`

	TotalCandidates int `json:"total_candidates"`
	Skipped         int `json:"skipped_candidates"`

	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata contains timing and diagnostic information.
type ResponseMetadata struct {
	RequestID        string    `json:"request_id"`
	UserID           string    `json:"user_id"`
	LatencyMS        int64     `json:"latency_ms"`
	NormalizerFitted bool      `json:"normalizer_fitted"`
	Timestamp        time.Time `json:"timestamp"`
}

// Feedback signals.
const (
	SignalThumbsUp   = "thumbs_up"
	SignalThumbsDown = "thumbs_down"
)

// Outcome is what the user did with a recommendation.
type Outcome struct {
	// Signal is thumbs_up, thumbs_down or empty for a watch-only event.
	Signal string `json:"signal,omitempty" validate:"max=32"`

	WatchSeconds    float64 `json:"watch_seconds,omitempty" validate:"finite,gte=0"`
	DurationSeconds float64 `json:"duration_seconds,omitempty" validate:"finite,gte=0"`
}

// FeedbackRequest reports an outcome for a previously recommended video.
type FeedbackRequest struct {
	RequestID string `json:"request_id,omitempty" validate:"max=128"`
	UserID    string `json:"user_id" validate:"required,max=256"`
	VideoID   string `json:"video_id,omitempty" validate:"max=256"`
	Emotion   string `json:"emotion" validate:"max=64"`
	Category  string `json:"category" validate:"max=64"`

	// ContextVector should be the vector returned with the recommendation.
	ContextVector []float64 `json:"context_vector,omitempty" validate:"dive,finite"`

	// NormalizedFeatures rebuild the context when ContextVector is absent.
	NormalizedFeatures []float64 `json:"normalized_features,omitempty" validate:"dive,finite"`

	Outcome Outcome `json:"outcome"`
}

// Feedback statuses.
const (
	StatusSuccess = "success"
	StatusIgnored = "ignored"
)

// FeedbackResult summarizes the effect of a feedback event.
type FeedbackResult struct {
	Status    string  `json:"status"`
	RequestID string  `json:"request_id"`
	Reward    float64 `json:"reward"`

	// ModelUpdated is false when no usable context accompanied the feedback
	// or the update was rejected.
	ModelUpdated bool `json:"model_updated"`
	ModelReset   bool `json:"model_reset,omitempty"`

	KeyInteractions   int     `json:"key_interactions"`
	TotalInteractions int     `json:"total_interactions"`
	Alpha             float64 `json:"alpha"`
	BanditWeight      float64 `json:"bandit_weight"`

	User usercontext.Stats `json:"user"`
}

// EvaluationStats track reward over the process lifetime.
type EvaluationStats struct {
	Feedback         int     `json:"feedback_events"`
	Positive         int     `json:"positive_events"`
	Ignored          int     `json:"ignored_events"`
	CumulativeReward float64 `json:"cumulative_reward"`
	AverageReward    float64 `json:"average_reward"`
	SuccessRate      float64 `json:"success_rate"`
}

// Stats is an engine-wide statistics report.
type Stats struct {
	Bandit           bandit.Statistics `json:"bandit"`
	Users            int               `json:"users"`
	Evaluation       EvaluationStats   `json:"evaluation"`
	Requests         int64             `json:"requests"`
	Errors           int64             `json:"errors"`
	NormalizerFitted bool              `json:"normalizer_fitted"`
	Source           string            `json:"candidate_source,omitempty"`
	SnapshotStore    string            `json:"snapshot_store,omitempty"`
}

// Query asks a candidate source for videos.
type Query struct {
	Emotion  wellness.Emotion
	Category wellness.Category
	Keywords []string
	Limit    int
}

// CandidateSource produces candidate videos for a query.
type CandidateSource interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]Candidate, error)
}

// SnapshotStore persists engine state. Load must return an error wrapping
// fs.ErrNotExist when no snapshot has been saved yet.
type SnapshotStore interface {
	Name() string
	Save(ctx context.Context, v any) error
	Load(ctx context.Context, v any) error
}

// State is the persisted engine state.
type State struct {
	Version int
	SavedAt time.Time
	Bandit  bandit.Snapshot
	Users   []usercontext.UserStats
}

// StateVersion is the current State layout version.
const StateVersion = 1
