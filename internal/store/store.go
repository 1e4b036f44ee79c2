// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

// Package store provides access to the song feature store.
//
// Two drivers exist: a MongoDB-backed store for production and an
// in-memory store seeded from a JSON catalog for development and
// tests. Both are wrapped by a circuit breaker in production wiring
// so a flapping backend degrades recommendations instead of taking
// the service down.
package store

import (
	"context"
	"errors"

	"github.com/moodtape/moodtape/internal/models"
)

var (
	// ErrNotFound indicates the requested song does not exist.
	ErrNotFound = errors.New("song not found")

	// ErrUnavailable indicates the store cannot be reached. Callers
	// route this to the degraded response path.
	ErrUnavailable = errors.New("store unavailable")
)

// Store is the read interface over the song catalog.
type Store interface {
	// GetAll returns every song with its feature vector.
	GetAll(ctx context.Context) ([]models.Song, error)

	// GetByID returns one song, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Song, error)

	// FindByMood returns the songs labeled with the given mood.
	FindByMood(ctx context.Context, mood models.Mood) ([]models.Song, error)

	// CountsByMood returns the catalog size per mood label.
	CountsByMood(ctx context.Context) (map[models.Mood]int, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}
