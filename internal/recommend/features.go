// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package recommend

import (
	"errors"
	"fmt"
	"math"
)

// NumFeatures is the number of engineered features per candidate.
const NumFeatures = 5

// Feature slots.
const (
	FeatureLogViews = iota
	FeatureEngagement
	FeatureLogSubscribers
	FeatureDuration
	FeatureRecency
)

// Neutral defaults for missing metadata.
const (
	defaultDurationMinutes  = 15.0
	defaultPublishedDaysAgo = 180.0

	// durationSaturation is the length in minutes at which the duration
	// feature saturates at 1.
	durationSaturation = 30.0
)

// ErrInvalidCandidate is returned for candidates with unusable metadata.
var ErrInvalidCandidate = errors.New("invalid candidate metadata")

// ExtractFeatures computes the raw feature vector for a candidate:
//
//	[log1p(views), likes/max(views,1), log1p(subscribers),
//	 min(duration_minutes/30, 1), 1/(days_ago+1)]
//
// Missing counts default to 0, a missing duration to 15 minutes and a missing
// age to 180 days.
func ExtractFeatures(c *Candidate) ([NumFeatures]float64, error) {
	var out [NumFeatures]float64

	views, err := metadataValue("views", c.Views, 0)
	if err != nil {
		return out, err
	}
	likes, err := metadataValue("likes", c.Likes, 0)
	if err != nil {
		return out, err
	}
	subscribers, err := metadataValue("channel_subscribers", c.ChannelSubscribers, 0)
	if err != nil {
		return out, err
	}
	duration, err := metadataValue("duration_minutes", c.DurationMinutes, defaultDurationMinutes)
	if err != nil {
		return out, err
	}
	daysAgo, err := metadataValue("published_days_ago", c.PublishedDaysAgo, defaultPublishedDaysAgo)
	if err != nil {
		return out, err
	}

	out[FeatureLogViews] = math.Log1p(views)
	out[FeatureEngagement] = likes / math.Max(views, 1)
	out[FeatureLogSubscribers] = math.Log1p(subscribers)
	out[FeatureDuration] = math.Min(duration/durationSaturation, 1)
	out[FeatureRecency] = 1 / (daysAgo + 1)
	return out, nil
}

func metadataValue(name string, v *float64, def float64) (float64, error) {
	if v == nil {
		return def, nil
	}
	x := *v
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("%w: %s is not finite", ErrInvalidCandidate, name)
	}
	if x < 0 {
		return 0, fmt.Errorf("%w: %s is negative (%v)", ErrInvalidCandidate, name, x)
	}
	return x, nil
}
