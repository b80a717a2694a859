// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package bandit

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// pinvRcond is the relative singular value cutoff for the pseudo-inverse.
const pinvRcond = 1e-15

// identity returns an n×n identity matrix.
func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// pseudoInverse computes the Moore-Penrose pseudo-inverse of a through a thin
// SVD. Singular values below pinvRcond times the largest are treated as zero.
// It reports false when the factorization fails or yields non-finite values.
func pseudoInverse(a mat.Matrix) (*mat.Dense, bool) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, false
	}

	values := svd.Values(nil)
	if len(values) == 0 {
		return nil, false
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	cutoff := pinvRcond * values[0]
	inv := make([]float64, len(values))
	for i, s := range values {
		if s > cutoff {
			inv[i] = 1 / s
		}
	}

	// pinv = V * diag(1/s) * Uᵀ
	var vs mat.Dense
	vs.Apply(func(_, j int, x float64) float64 { return x * inv[j] }, &v)

	var p mat.Dense
	p.Mul(&vs, u.T())

	if !finiteMatrix(&p) {
		return nil, false
	}
	return &p, true
}

// solve returns theta with a·theta = b, or false when a is singular or the
// result is not finite.
func solve(a mat.Matrix, b mat.Vector) (*mat.VecDense, bool) {
	var theta mat.VecDense
	if err := theta.SolveVec(a, b); err != nil {
		return nil, false
	}
	if !finiteVector(&theta) {
		return nil, false
	}
	return &theta, true
}

func finiteMatrix(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if !finite(m.At(i, j)) {
				return false
			}
		}
	}
	return true
}

func finiteVector(v mat.Vector) bool {
	for i := 0; i < v.Len(); i++ {
		if !finite(v.AtVec(i)) {
			return false
		}
	}
	return true
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func finiteSlice(xs []float64) bool {
	for _, x := range xs {
		if !finite(x) {
			return false
		}
	}
	return true
}
