// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package recommend

import (
	"fmt"

	"github.com/tomtom215/sanctuary/internal/recommend/usercontext"
	"github.com/tomtom215/sanctuary/internal/wellness"
)

// Context vector layout.
const (
	contextEmotionOffset  = 0
	contextCategoryOffset = contextEmotionOffset + wellness.NumEmotions
	contextFeatureOffset  = contextCategoryOffset + wellness.NumCategories
	contextUserOffset     = contextFeatureOffset + NumFeatures
	contextUserFeatures   = 3

	// ContextDim is the length of a context vector.
	ContextDim = contextUserOffset + contextUserFeatures
)

// BuildContext assembles the context vector:
//
//	[emotion one-hot (7) | category one-hot (4) | normalized features (5) |
//	 avg feedback, min(interactions/100, 1), success rate]
//
// Unknown emotions use the calm slot and unknown categories the yoga slot.
func BuildContext(emotion wellness.Emotion, category wellness.Category, features []float64, user usercontext.Stats) ([]float64, error) {
	if len(features) != NumFeatures {
		return nil, fmt.Errorf("%w: got %d features, want %d", ErrFeatureDimension, len(features), NumFeatures)
	}

	x := make([]float64, ContextDim)
	x[contextEmotionOffset+wellness.ParseEmotion(string(emotion)).Index()] = 1
	x[contextCategoryOffset+wellness.ParseCategory(string(category)).Index()] = 1
	copy(x[contextFeatureOffset:contextUserOffset], features)

	uf := user.Features()
	copy(x[contextUserOffset:], uf[:])
	return x, nil
}
