// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package mood

import (
	"fmt"
	"math/rand"

	"github.com/moodtape/moodtape/internal/models"
)

// HeuristicScorer scores songs with fixed feature weights. It is the
// default scorer and the fallback when no classifier artifact is
// available.
//
// Weights:
//
//	happy   0.4*valence + 0.4*energy + 0.2*danceability
//	sad     0.5*(1-valence) + 0.3*(1-energy) + 0.2*acousticness
//	neutral 0.5 plus bounded jitter
//
// Neutral has no feature signal; the jitter exists only to vary tie
// order between otherwise identical candidates and must stay within
// epsilon so it can never outweigh a real score difference.
type HeuristicScorer struct {
	epsilon float64
}

// NewHeuristicScorer creates a heuristic scorer with the given
// neutral jitter bound.
func NewHeuristicScorer(jitterEpsilon float64) *HeuristicScorer {
	return &HeuristicScorer{epsilon: jitterEpsilon}
}

// Name identifies the scorer in logs and health output.
func (h *HeuristicScorer) Name() string {
	return "heuristic"
}

// Score implements Scorer.
func (h *HeuristicScorer) Score(rng *rand.Rand, song *models.Song, mood models.Mood) (float64, error) {
	switch mood {
	case models.MoodHappy:
		valence, err := finiteFeature(song, "valence")
		if err != nil {
			return 0, fmt.Errorf("song %s: %w", song.ID, err)
		}
		energy, err := finiteFeature(song, "energy")
		if err != nil {
			return 0, fmt.Errorf("song %s: %w", song.ID, err)
		}
		dance, err := finiteFeature(song, "danceability")
		if err != nil {
			return 0, fmt.Errorf("song %s: %w", song.ID, err)
		}
		return clamp01(0.4*valence + 0.4*energy + 0.2*dance), nil

	case models.MoodSad:
		valence, err := finiteFeature(song, "valence")
		if err != nil {
			return 0, fmt.Errorf("song %s: %w", song.ID, err)
		}
		energy, err := finiteFeature(song, "energy")
		if err != nil {
			return 0, fmt.Errorf("song %s: %w", song.ID, err)
		}
		acoustic, err := finiteFeature(song, "acousticness")
		if err != nil {
			return 0, fmt.Errorf("song %s: %w", song.ID, err)
		}
		return clamp01(0.5*(1-valence) + 0.3*(1-energy) + 0.2*acoustic), nil

	case models.MoodNeutral:
		jitter := 0.0
		if h.epsilon > 0 && rng != nil {
			jitter = (rng.Float64()*2 - 1) * h.epsilon
		}
		return clamp01(0.5 + jitter), nil

	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMood, mood)
	}
}
