// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

// Package mood scores songs against a requested mood.
//
// Two scorers exist: a weighted-feature heuristic that needs no
// trained artifact, and a linear softmax classifier loaded from a
// fitted JSON artifact. The classifier degrades to the heuristic
// when its artifact is missing or malformed, so the service always
// has a working scorer.
package mood

import (
	"errors"
	"math"
	"math/rand"

	"github.com/moodtape/moodtape/internal/models"
)

var (
	// ErrInvalidFeatures marks a song whose features are missing or
	// not finite for the requested scoring. Callers drop the song
	// from the candidate pool.
	ErrInvalidFeatures = errors.New("invalid song features")

	// ErrUnknownMood rejects scoring against an unsupported label.
	ErrUnknownMood = errors.New("unknown mood")
)

// Scorer assigns a song a score in [0, 1] for a mood; higher means a
// better fit. Implementations must be safe for concurrent use. The
// rng carries per-request randomness so jittered scores stay
// deterministic under a fixed seed.
type Scorer interface {
	Score(rng *rand.Rand, song *models.Song, mood models.Mood) (float64, error)
	Name() string
}

// finiteFeature fetches a feature and rejects non-finite values.
func finiteFeature(song *models.Song, name string) (float64, error) {
	v, ok := song.Features[name]
	if !ok {
		return 0, ErrInvalidFeatures
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidFeatures
	}
	return v, nil
}

// clamp01 bounds a score to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
