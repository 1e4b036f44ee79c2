// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/moodtape/moodtape/internal/config"
	"github.com/moodtape/moodtape/internal/models"
)

// flakyStore fails every call until healed.
type flakyStore struct {
	*MemoryStore
	failing bool
}

func (f *flakyStore) GetAll(ctx context.Context) ([]models.Song, error) {
	if f.failing {
		return nil, ErrUnavailable
	}
	return f.MemoryStore.GetAll(ctx)
}

func (f *flakyStore) GetByID(ctx context.Context, id string) (*models.Song, error) {
	if f.failing {
		return nil, ErrUnavailable
	}
	return f.MemoryStore.GetByID(ctx, id)
}

func breakerConfig() *config.BreakerConfig {
	return &config.BreakerConfig{
		Enabled:     true,
		MaxFailures: 3,
		OpenTimeout: 50 * time.Millisecond,
	}
}

func TestBreakerPassesThroughHealthyStore(t *testing.T) {
	t.Parallel()

	b := NewBreakerStore(NewMemoryStore(testSongs()), breakerConfig())

	songs, err := b.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll error: %v", err)
	}
	if len(songs) != 4 {
		t.Errorf("len(songs) = %d, want 4", len(songs))
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("State = %v, want closed", b.State())
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	inner := &flakyStore{MemoryStore: NewMemoryStore(testSongs()), failing: true}
	b := NewBreakerStore(inner, breakerConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := b.GetAll(ctx); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("call %d error = %v, want ErrUnavailable", i, err)
		}
	}

	if b.State() != gobreaker.StateOpen {
		t.Fatalf("State = %v, want open after 3 consecutive failures", b.State())
	}

	// Open breaker rejects without touching the backend, still as
	// ErrUnavailable.
	inner.failing = false
	if _, err := b.GetAll(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("rejected call error = %v, want ErrUnavailable", err)
	}
}

func TestBreakerRecoversAfterTimeout(t *testing.T) {
	t.Parallel()

	inner := &flakyStore{MemoryStore: NewMemoryStore(testSongs()), failing: true}
	b := NewBreakerStore(inner, breakerConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = b.GetAll(ctx)
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("State = %v, want open", b.State())
	}

	inner.failing = false
	time.Sleep(80 * time.Millisecond)

	songs, err := b.GetAll(ctx)
	if err != nil {
		t.Fatalf("probe after timeout error: %v", err)
	}
	if len(songs) != 4 {
		t.Errorf("len(songs) = %d, want 4", len(songs))
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("State = %v, want closed after successful probe", b.State())
	}
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	t.Parallel()

	b := NewBreakerStore(NewMemoryStore(testSongs()), breakerConfig())
	ctx := context.Background()

	// Many misses must not trip the breaker.
	for i := 0; i < 10; i++ {
		if _, err := b.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("GetByID error = %v, want ErrNotFound", err)
		}
	}

	if b.State() != gobreaker.StateClosed {
		t.Errorf("State = %v, want closed; not-found must not count as failure", b.State())
	}
}
