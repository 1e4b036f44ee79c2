// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package similarity

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoSamples rejects fitting a standardizer over an empty set.
	ErrNoSamples = errors.New("no samples to fit")

	// ErrSchemaMismatch indicates a vector built under a different
	// schema than the one this standardizer was fitted with. This is a
	// programmer error and fails the build or query outright.
	ErrSchemaMismatch = errors.New("feature schema mismatch")
)

// Standardizer centers and scales feature vectors to zero mean and
// unit variance per attribute, fitted over the catalog at index build
// time. Without it the tempo attribute (range ~0-250) would dominate
// the unit-range audio attributes in cosine space.
type Standardizer struct {
	mean []float64
	std  []float64
}

// FitStandardizer computes per-dimension mean and population standard
// deviation over the given vectors. All vectors must share the same
// dimensionality.
func FitStandardizer(vectors [][]float64) (*Standardizer, error) {
	if len(vectors) == 0 {
		return nil, ErrNoSamples
	}

	dim := len(vectors[0])
	mean := make([]float64, dim)
	std := make([]float64, dim)

	for _, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("vector dimension %d, want %d: %w", len(vec), dim, ErrSchemaMismatch)
		}
		for i, v := range vec {
			mean[i] += v
		}
	}
	n := float64(len(vectors))
	for i := range mean {
		mean[i] /= n
	}

	for _, vec := range vectors {
		for i, v := range vec {
			d := v - mean[i]
			std[i] += d * d
		}
	}
	for i := range std {
		std[i] = math.Sqrt(std[i] / n)
		// A constant attribute carries no signal; scale by 1 so it
		// standardizes to zero instead of dividing by zero.
		if std[i] == 0 {
			std[i] = 1
		}
	}

	return &Standardizer{mean: mean, std: std}, nil
}

// Transform returns the standardized copy of vec.
func (z *Standardizer) Transform(vec []float64) ([]float64, error) {
	if len(vec) != len(z.mean) {
		return nil, fmt.Errorf("vector dimension %d, want %d: %w", len(vec), len(z.mean), ErrSchemaMismatch)
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = (v - z.mean[i]) / z.std[i]
	}
	return out, nil
}

// Dim returns the fitted dimensionality.
func (z *Standardizer) Dim() int {
	return len(z.mean)
}
