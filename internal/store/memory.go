// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/moodtape/moodtape/internal/models"
)

// MemoryStore serves the song catalog from memory. It backs the
// "memory" driver, seeded from a JSON catalog file, and doubles as
// the test store.
type MemoryStore struct {
	mu    sync.RWMutex
	songs []models.Song
	byID  map[string]int
}

// NewMemoryStore creates a store over the given songs.
func NewMemoryStore(songs []models.Song) *MemoryStore {
	s := &MemoryStore{}
	s.replace(songs)
	return s
}

// NewMemoryStoreFromCatalog loads songs from a JSON catalog file. An
// empty path yields an empty store.
func NewMemoryStoreFromCatalog(path string) (*MemoryStore, error) {
	if path == "" {
		return NewMemoryStore(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var songs []models.Song
	if err := json.Unmarshal(data, &songs); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	return NewMemoryStore(songs), nil
}

// Replace swaps the full catalog. Used by tests and catalog reloads.
func (s *MemoryStore) Replace(songs []models.Song) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(songs)
}

// replace must be called with mu held (or before the store is shared).
func (s *MemoryStore) replace(songs []models.Song) {
	s.songs = make([]models.Song, len(songs))
	copy(s.songs, songs)
	s.byID = make(map[string]int, len(songs))
	for i, song := range s.songs {
		s.byID[song.ID] = i
	}
}

// GetAll returns a copy of every song.
func (s *MemoryStore) GetAll(ctx context.Context) ([]models.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Song, len(s.songs))
	copy(out, s.songs)
	return out, nil
}

// GetByID returns one song, or ErrNotFound.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*models.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	song := s.songs[i]
	return &song, nil
}

// FindByMood returns the songs labeled with the given mood.
func (s *MemoryStore) FindByMood(ctx context.Context, mood models.Mood) ([]models.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Song
	for _, song := range s.songs {
		if song.Mood == mood {
			out = append(out, song)
		}
	}
	return out, nil
}

// CountsByMood returns the catalog size per mood label.
func (s *MemoryStore) CountsByMood(ctx context.Context) (map[models.Mood]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrUnavailable
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.Mood]int)
	for _, song := range s.songs {
		counts[song.Mood]++
	}
	return counts, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}
