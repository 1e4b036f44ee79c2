// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package mood

import (
	"github.com/moodtape/moodtape/internal/config"
	"github.com/moodtape/moodtape/internal/logging"
	"github.com/moodtape/moodtape/internal/metrics"
)

// NewScorer builds the configured scorer. A classifier whose
// artifact cannot be loaded falls back to the heuristic; scoring must
// never be a startup failure.
func NewScorer(cfg *config.MoodConfig) Scorer {
	logger := logging.With().Str("component", "mood").Logger()

	if cfg.Strategy == "classifier" {
		scorer, err := NewClassifierScorer(cfg.ModelPath)
		if err == nil {
			logger.Info().Str("model_path", cfg.ModelPath).Msg("Loaded classifier scorer")
			return scorer
		}
		logger.Warn().Err(err).Msg("Classifier artifact unusable, falling back to heuristic scorer")
		metrics.ScorerFallbackTotal.Inc()
	}

	return NewHeuristicScorer(cfg.JitterEpsilon)
}
