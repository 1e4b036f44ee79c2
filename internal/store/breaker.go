// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package store

import (
	"context"
	"errors"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/moodtape/moodtape/internal/config"
	"github.com/moodtape/moodtape/internal/logging"
	"github.com/moodtape/moodtape/internal/metrics"
	"github.com/moodtape/moodtape/internal/models"
)

// BreakerStore wraps a Store with a circuit breaker so a flapping
// backend fails fast instead of stacking up slow calls. Rejected
// calls surface as ErrUnavailable, the same error a direct backend
// failure produces, so callers need no breaker awareness.
//
// ErrNotFound is a successful call from the breaker's point of view;
// only backend unavailability counts as failure.
type BreakerStore struct {
	inner Store
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerStore wraps the given store with a circuit breaker.
func NewBreakerStore(inner Store, cfg *config.BreakerConfig) *BreakerStore {
	maxFailures := uint32(cfg.MaxFailures) //nolint:gosec // validated positive

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "song-store",
		MaxRequests: 1, // one probe in half-open state
		Timeout:     cfg.OpenTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},

		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Store circuit breaker state change")
			metrics.StoreBreakerState.Set(stateToFloat(to))
		},
	})

	metrics.StoreBreakerState.Set(stateToFloat(gobreaker.StateClosed))

	return &BreakerStore{inner: inner, cb: cb}
}

// execute runs fn through the breaker, mapping breaker rejections to
// ErrUnavailable.
func (b *BreakerStore) execute(operation string, fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: breaker open: %w", operation, ErrUnavailable)
		}
		return nil, err
	}
	return result, nil
}

// GetAll returns every song, breaker-protected.
func (b *BreakerStore) GetAll(ctx context.Context) ([]models.Song, error) {
	result, err := b.execute("get_all", func() (any, error) {
		return b.inner.GetAll(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Song), nil
}

// GetByID returns one song, breaker-protected.
func (b *BreakerStore) GetByID(ctx context.Context, id string) (*models.Song, error) {
	result, err := b.execute("get_by_id", func() (any, error) {
		return b.inner.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Song), nil
}

// FindByMood returns the songs for a mood, breaker-protected.
func (b *BreakerStore) FindByMood(ctx context.Context, mood models.Mood) ([]models.Song, error) {
	result, err := b.execute("find_by_mood", func() (any, error) {
		return b.inner.FindByMood(ctx, mood)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Song), nil
}

// CountsByMood returns per-mood counts, breaker-protected.
func (b *BreakerStore) CountsByMood(ctx context.Context) (map[models.Mood]int, error) {
	result, err := b.execute("counts_by_mood", func() (any, error) {
		return b.inner.CountsByMood(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[models.Mood]int), nil
}

// Ping probes the backend, breaker-protected.
func (b *BreakerStore) Ping(ctx context.Context) error {
	_, err := b.execute("ping", func() (any, error) {
		return nil, b.inner.Ping(ctx)
	})
	return err
}

// Close closes the wrapped store directly; a breaker must not block
// shutdown.
func (b *BreakerStore) Close(ctx context.Context) error {
	return b.inner.Close(ctx)
}

// State exposes the breaker state for health reporting.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

// stateToFloat maps breaker states to the gauge encoding.
func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
