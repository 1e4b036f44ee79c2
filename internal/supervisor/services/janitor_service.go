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

// Sweeper is satisfied by the session tracker.
type Sweeper interface {
	Sweep() int
}

// JanitorService periodically removes idle sessions. Sessions are
// soft state, so a missed sweep only delays memory reclamation.
type JanitorService struct {
	sweeper  Sweeper
	interval time.Duration
	logger   zerolog.Logger
}

// NewJanitorService creates the janitor.
func NewJanitorService(sweeper Sweeper, interval time.Duration) *JanitorService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &JanitorService{
		sweeper:  sweeper,
		interval: interval,
		logger:   logging.With().Str("component", "janitor").Logger(),
	}
}

// Serve implements suture.Service.
func (j *JanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if removed := j.sweeper.Sweep(); removed > 0 {
				j.logger.Debug().Int("removed", removed).Msg("Swept idle sessions")
			}
		}
	}
}

// String implements fmt.Stringer for suture's log messages.
func (j *JanitorService) String() string {
	return "session-janitor"
}
