// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package recommend

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// Normalizer errors.
var (
	ErrEmptyBatch       = errors.New("normalizer: empty batch")
	ErrFeatureDimension = errors.New("normalizer: feature dimension mismatch")
)

// Normalizer standardizes feature vectors to zero mean and unit variance
// using parameters fitted on a batch.
//
// A dimension with zero variance keeps a scale of 1 so it is only centered.
// Before the first Fit, Transform returns its input unchanged.
type Normalizer struct {
	mu     sync.RWMutex
	mean   [NumFeatures]float64
	scale  [NumFeatures]float64
	fitted bool
}

// NewNormalizer returns an unfitted normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Fit computes per-feature mean and population standard deviation.
func (n *Normalizer) Fit(batch [][]float64) error {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}

	var mean, scale [NumFeatures]float64
	for i, row := range batch {
		if len(row) != NumFeatures {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrFeatureDimension, i, len(row), NumFeatures)
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	count := float64(len(batch))
	for j := range mean {
		mean[j] /= count
	}

	for _, row := range batch {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / count)
		if scale[j] == 0 || math.IsNaN(scale[j]) {
			scale[j] = 1
		}
	}

	n.mu.Lock()
	n.mean = mean
	n.scale = scale
	n.fitted = true
	n.mu.Unlock()
	return nil
}

// Transform returns the standardized copy of x. Vectors of the wrong length
// and calls before Fit return an unmodified copy.
func (n *Normalizer) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)

	n.mu.RLock()
	defer n.mu.RUnlock()
	if !n.fitted || len(x) != NumFeatures {
		return out
	}
	for j := range out {
		out[j] = (out[j] - n.mean[j]) / n.scale[j]
	}
	return out
}

// IsFitted reports whether Fit has succeeded at least once.
func (n *Normalizer) IsFitted() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.fitted
}

// Params returns the fitted mean and scale.
func (n *Normalizer) Params() (mean, scale [NumFeatures]float64, fitted bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.mean, n.scale, n.fitted
}
