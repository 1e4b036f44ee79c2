// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/moodtape/moodtape/internal/logging"
)

// Rebuilder is satisfied by the recommendation engine.
type Rebuilder interface {
	RebuildIndex(ctx context.Context) error
}

// RebuildService rebuilds the similarity index on a fixed cadence so
// catalog changes in the feature store become visible without a
// restart. A failed rebuild keeps the previous index serving.
type RebuildService struct {
	rebuilder Rebuilder
	interval  time.Duration
	logger    zerolog.Logger
}

// NewRebuildService creates the scheduled rebuilder. A zero interval
// disables scheduling; the service then idles until shutdown, and
// rebuilds happen only through the manual endpoint.
func NewRebuildService(rebuilder Rebuilder, interval time.Duration) *RebuildService {
	return &RebuildService{
		rebuilder: rebuilder,
		interval:  interval,
		logger:    logging.With().Str("component", "rebuilder").Logger(),
	}
}

// Serve implements suture.Service.
func (s *RebuildService) Serve(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info().Msg("Scheduled index rebuilds disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.rebuilder.RebuildIndex(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled index rebuild failed, keeping previous index")
			}
		}
	}
}

// String implements fmt.Stringer for suture's log messages.
func (s *RebuildService) String() string {
	return "index-rebuilder"
}
