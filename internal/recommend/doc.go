// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

// Package recommend implements the hybrid wellness video recommender.
//
// # Scoring
//
// Every candidate video is reduced to five engineered features, standardized
// with a batch-fitted normalizer and concatenated with the detected emotion,
// the wellness category and the user's running statistics into a
// 19-dimensional context vector. Two scores are then blended:
//
//   - Heuristic: a fixed linear quality/popularity prior over the normalized
//     features. It carries cold-start users.
//   - Bandit: a LinUCB upper confidence bound from the model keyed by
//     (emotion, category). See package bandit.
//
// The bandit weight ramps linearly with the number of feedback events the
// user has given, capped so the heuristic never disappears entirely.
// Non-negative boosts (a manual per-candidate boost and configurable CEL
// rules) are added on top. The blended score is mapped through a logistic
// curve into a display "match percent".
//
// # Learning
//
// Feedback is converted to a reward (binary thumbs, or a shaped reward when
// watch time is known), folded into the user's running statistics and then
// applied to the bandit model for the same key, using the context vector
// that was returned with the recommendation.
//
// # Usage
//
//	engine, err := recommend.NewEngine(recommend.DefaultConfig(), logger,
//	    recommend.WithCandidateSource(source),
//	    recommend.WithSnapshotStore(store),
//	)
//
//	resp, err := engine.Recommend(ctx, &recommend.Request{
//	    UserID:  "u1",
//	    Emotion: "stressed",
//	})
//
//	_, err = engine.Feedback(ctx, &recommend.FeedbackRequest{
//	    UserID:        "u1",
//	    Emotion:       resp.Emotion,
//	    Category:      resp.Category,
//	    ContextVector: resp.Items[0].ContextVector,
//	    Outcome:       recommend.Outcome{Signal: recommend.SignalThumbsUp},
//	})
//
// # Thread Safety
//
// The engine is safe for concurrent use. Bandit models and user statistics
// are locked per key, so requests for different users and keys proceed in
// parallel.
package recommend
