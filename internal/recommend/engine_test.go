// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/moodtape/moodtape/internal/config"
	"github.com/moodtape/moodtape/internal/models"
	"github.com/moodtape/moodtape/internal/mood"
	"github.com/moodtape/moodtape/internal/session"
	"github.com/moodtape/moodtape/internal/similarity"
	"github.com/moodtape/moodtape/internal/store"
)

// downStore fails every read with ErrUnavailable.
type downStore struct{}

func (downStore) GetAll(context.Context) ([]models.Song, error) {
	return nil, store.ErrUnavailable
}
func (downStore) GetByID(context.Context, string) (*models.Song, error) {
	return nil, store.ErrUnavailable
}
func (downStore) FindByMood(context.Context, models.Mood) ([]models.Song, error) {
	return nil, store.ErrUnavailable
}
func (downStore) CountsByMood(context.Context) (map[models.Mood]int, error) {
	return nil, store.ErrUnavailable
}
func (downStore) Ping(context.Context) error { return store.ErrUnavailable }
func (downStore) Close(context.Context) error { return nil }

func catalogSong(id, title string, m models.Mood, valence, energy float64) models.Song {
	return models.Song{
		ID:       id,
		Title:    title,
		Filename: id + ".mp3",
		Mood:     m,
		Features: map[string]float64{
			"tempo":            100 + 50*valence,
			"energy":           energy,
			"danceability":     0.5,
			"acousticness":     1 - energy,
			"instrumentalness": 0.1,
			"liveness":         0.2,
			"valence":          valence,
		},
	}
}

// sixSongCatalog is the canonical fixture: six songs, three happy.
func sixSongCatalog() []models.Song {
	return []models.Song{
		catalogSong("h1", "Golden Hour", models.MoodHappy, 0.95, 0.90),
		catalogSong("h2", "Street Parade", models.MoodHappy, 0.90, 0.85),
		catalogSong("h3", "Summer Wheels", models.MoodHappy, 0.85, 0.80),
		catalogSong("s1", "Empty Rooms", models.MoodSad, 0.10, 0.15),
		catalogSong("s2", "Last Train", models.MoodSad, 0.15, 0.20),
		catalogSong("n1", "Sidewalk", models.MoodNeutral, 0.50, 0.50),
	}
}

func engineConfig() *config.EngineConfig {
	return &config.EngineConfig{
		DefaultCount:    5,
		MaxCount:        50,
		AnchorNeighbors: 50,
	}
}

func sessionConfig() *config.SessionConfig {
	return &config.SessionConfig{
		MaxHistory:    20,
		IdleTTL:       time.Minute,
		Shards:        4,
		SweepInterval: time.Second,
	}
}

func newTestEngine(t *testing.T, songs []models.Song) *Engine {
	t.Helper()

	schema, err := similarity.NewSchema([]string{
		"tempo", "energy", "danceability", "acousticness",
		"instrumentalness", "liveness", "valence",
	})
	if err != nil {
		t.Fatalf("NewSchema error: %v", err)
	}

	st := store.NewMemoryStore(songs)
	handle := similarity.NewHandle()
	if len(songs) > 0 {
		ix, err := similarity.Build(schema, songs, handle.NextVersion())
		if err != nil {
			t.Fatalf("Build error: %v", err)
		}
		handle.Swap(ix)
	}

	return NewEngine(
		engineConfig(),
		st,
		mood.NewHeuristicScorer(0.02),
		handle,
		schema,
		session.NewTracker(sessionConfig()),
		zerolog.Nop(),
	)
}

func ids(songs []ScoredSong) []string {
	out := make([]string, len(songs))
	for i, s := range songs {
		out[i] = s.ID
	}
	return out
}

func idSet(songs []ScoredSong) map[string]struct{} {
	out := make(map[string]struct{}, len(songs))
	for _, s := range songs {
		out[s.ID] = struct{}{}
	}
	return out
}

func TestRecommendHappyScenario(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, sixSongCatalog())
	ctx := context.Background()

	first, err := e.Recommend(ctx, Request{
		SessionID: "scenario",
		Mood:      models.MoodHappy,
		Count:     5,
		Seed:      1,
	})
	if err != nil {
		t.Fatalf("Recommend error: %v", err)
	}
	if !first.Success {
		t.Fatal("Success = false, want true")
	}
	if len(first.Songs) != 5 {
		t.Fatalf("first call returned %d songs, want 5", len(first.Songs))
	}

	// All three happy songs present, ranked above the two backfilled
	// others by true score.
	got := idSet(first.Songs)
	for _, id := range []string{"h1", "h2", "h3"} {
		if _, ok := got[id]; !ok {
			t.Errorf("first call missing happy song %s", id)
		}
	}
	var minHappy, maxOther float64 = 2, -1
	for _, s := range first.Songs {
		switch s.ID {
		case "h1", "h2", "h3":
			if s.Score < minHappy {
				minHappy = s.Score
			}
		default:
			if s.Score > maxOther {
				maxOther = s.Score
			}
		}
	}
	if minHappy <= maxOther {
		t.Errorf("happy songs must outscore backfill: min happy %f <= max other %f", minHappy, maxOther)
	}

	// Second call: only one unseen song remains; the rest backfills
	// from seen without error or duplicates within the response.
	second, err := e.Recommend(ctx, Request{
		SessionID: "scenario",
		Mood:      models.MoodHappy,
		Count:     5,
		Seed:      2,
	})
	if err != nil {
		t.Fatalf("second Recommend error: %v", err)
	}
	if len(second.Songs) != 5 {
		t.Fatalf("second call returned %d songs, want 5", len(second.Songs))
	}
	if !second.Metadata.NoveltyExhausted {
		t.Error("second call should report novelty exhaustion (only 1 novel song left)")
	}
	seen := make(map[string]struct{})
	for _, s := range second.Songs {
		if _, dup := seen[s.ID]; dup {
			t.Errorf("duplicate song %s within one response", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
}

func TestRecommendNoRepeatsUntilNoveltyExhausted(t *testing.T) {
	t.Parallel()

	// 20 songs, N=5: four calls must not repeat any ID.
	var songs []models.Song
	for i := 0; i < 20; i++ {
		songs = append(songs, catalogSong(
			fmt.Sprintf("g%02d", i), fmt.Sprintf("Track %d", i),
			models.MoodHappy, float64(i)/20.0, 0.5,
		))
	}
	e := newTestEngine(t, songs)
	ctx := context.Background()

	served := make(map[string]struct{})
	for call := 0; call < 4; call++ {
		resp, err := e.Recommend(ctx, Request{
			SessionID: "marathon",
			Mood:      models.MoodHappy,
			Count:     5,
			Seed:      int64(call + 1),
		})
		if err != nil {
			t.Fatalf("call %d error: %v", call, err)
		}
		if len(resp.Songs) != 5 {
			t.Fatalf("call %d returned %d songs, want 5", call, len(resp.Songs))
		}
		for _, s := range resp.Songs {
			if _, dup := served[s.ID]; dup {
				t.Fatalf("call %d repeated song %s before novelty exhausted", call, s.ID)
			}
			served[s.ID] = struct{}{}
		}
	}
}

func TestRecommendCountLargerThanCatalog(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, sixSongCatalog())

	resp, err := e.Recommend(context.Background(), Request{
		SessionID: "big",
		Mood:      models.MoodHappy,
		Count:     40,
		Seed:      1,
	})
	if err != nil {
		t.Fatalf("Recommend error: %v", err)
	}
	if len(resp.Songs) != 6 {
		t.Errorf("returned %d songs, want full catalog of 6", len(resp.Songs))
	}
}

func TestRecommendDefaultsAndClamp(t *testing.T) {
	t.Parallel()

	var songs []models.Song
	for i := 0; i < 60; i++ {
		songs = append(songs, catalogSong(
			fmt.Sprintf("c%02d", i), "T", models.MoodHappy, 0.5, 0.5,
		))
	}
	e := newTestEngine(t, songs)
	ctx := context.Background()

	resp, err := e.Recommend(ctx, Request{SessionID: "d1", Mood: models.MoodHappy, Seed: 1})
	if err != nil {
		t.Fatalf("Recommend error: %v", err)
	}
	if len(resp.Songs) != 5 {
		t.Errorf("default count returned %d, want 5", len(resp.Songs))
	}

	resp, err = e.Recommend(ctx, Request{SessionID: "d2", Mood: models.MoodHappy, Count: 500, Seed: 1})
	if err != nil {
		t.Fatalf("Recommend error: %v", err)
	}
	if len(resp.Songs) != 50 {
		t.Errorf("clamped count returned %d, want 50", len(resp.Songs))
	}
}

func TestRecommendRandomMoodDeterministicUnderSeed(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, sixSongCatalog())
	ctx := context.Background()

	a, err := e.Recommend(ctx, Request{SessionID: "r1", Seed: 123})
	if err != nil {
		t.Fatalf("Recommend error: %v", err)
	}
	b, err := e.Recommend(ctx, Request{SessionID: "r2", Seed: 123})
	if err != nil {
		t.Fatalf("Recommend error: %v", err)
	}
	if a.Mood != b.Mood {
		t.Errorf("same seed picked moods %s and %s", a.Mood, b.Mood)
	}
	if !a.Mood.Valid() {
		t.Errorf("random mood %q is not a valid label", a.Mood)
	}
}

func TestRecommendDegradedOnStoreFailure(t *testing.T) {
	t.Parallel()

	schema, _ := similarity.NewSchema([]string{"valence"})
	e := NewEngine(
		engineConfig(),
		downStore{},
		mood.NewHeuristicScorer(0.02),
		similarity.NewHandle(),
		schema,
		session.NewTracker(sessionConfig()),
		zerolog.Nop(),
	)

	resp, err := e.Recommend(context.Background(), Request{
		SessionID: "down",
		Mood:      models.MoodSad,
		Seed:      1,
	})
	if err != nil {
		t.Fatalf("degraded path must not surface an error, got: %v", err)
	}
	if resp.Success {
		t.Error("Success = true, want false for degraded response")
	}
	if resp.Mood != models.MoodSad {
		t.Errorf("Mood = %s, want sad echoed", resp.Mood)
	}
	if len(resp.Songs) != 0 {
		t.Errorf("degraded response carried %d songs, want 0", len(resp.Songs))
	}
	if resp.Metadata.Strategy != StrategyDegraded {
		t.Errorf("Strategy = %s, want degraded", resp.Metadata.Strategy)
	}
}

func TestRecommendAnchorMode(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, sixSongCatalog())

	resp, err := e.Recommend(context.Background(), Request{
		SessionID: "anchor",
		AnchorID:  "h1",
		Count:     3,
		Seed:      1,
	})
	if err != nil {
		t.Fatalf("Recommend error: %v", err)
	}
	if resp.Metadata.Strategy != StrategyAnchor {
		t.Errorf("Strategy = %s, want anchor", resp.Metadata.Strategy)
	}
	for _, s := range resp.Songs {
		if s.ID == "h1" {
			t.Error("anchor song must not recommend itself")
		}
	}
	// Similar happy songs should beat the sad ones on similarity.
	got := idSet(resp.Songs)
	if _, ok := got["h2"]; !ok {
		t.Errorf("expected h2 among neighbors of h1, got %v", ids(resp.Songs))
	}
}

func TestRecommendAnchorNotFound(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, sixSongCatalog())

	_, err := e.Recommend(context.Background(), Request{
		SessionID: "missing-anchor",
		AnchorID:  "ghost",
		Seed:      1,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	// Failed anchor lookup must not create or mutate session state.
	if err := e.ResetSession("missing-anchor"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("session state mutated on failed anchor lookup: reset error = %v", err)
	}
}

func TestResetSessionThenRecommendCanRepeat(t *testing.T) {
	t.Parallel()

	// Catalog of exactly 5 happy songs; first call serves all of
	// them, so after a reset the next call must be able to serve a
	// previously served song again.
	var songs []models.Song
	for i := 0; i < 5; i++ {
		songs = append(songs, catalogSong(
			fmt.Sprintf("x%d", i), "T", models.MoodHappy, float64(i)/5.0, 0.5,
		))
	}
	e := newTestEngine(t, songs)
	ctx := context.Background()

	first, err := e.Recommend(ctx, Request{SessionID: "rs", Mood: models.MoodHappy, Count: 5, Seed: 1})
	if err != nil {
		t.Fatalf("Recommend error: %v", err)
	}
	if err := e.ResetSession("rs"); err != nil {
		t.Fatalf("ResetSession error: %v", err)
	}

	second, err := e.Recommend(ctx, Request{SessionID: "rs", Mood: models.MoodHappy, Count: 5, Seed: 2})
	if err != nil {
		t.Fatalf("Recommend error: %v", err)
	}
	if second.Metadata.NoveltyExhausted {
		t.Error("after reset every song should be novel again")
	}
	if len(second.Songs) != len(first.Songs) {
		t.Errorf("second call returned %d songs, want %d", len(second.Songs), len(first.Songs))
	}
}

func TestRecommendScoresAreTrueAfterShuffle(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, sixSongCatalog())
	scorer := mood.NewHeuristicScorer(0)

	resp, err := e.Recommend(context.Background(), Request{
		SessionID: "truth",
		Mood:      models.MoodHappy,
		Count:     5,
		Seed:      7,
	})
	if err != nil {
		t.Fatalf("Recommend error: %v", err)
	}

	catalog := sixSongCatalog()
	byID := make(map[string]*models.Song)
	for i := range catalog {
		byID[catalog[i].ID] = &catalog[i]
	}
	for _, s := range resp.Songs {
		want, err := scorer.Score(nil, byID[s.ID], models.MoodHappy)
		if err != nil {
			t.Fatalf("Score error: %v", err)
		}
		if s.Score != want {
			t.Errorf("song %s score = %f, want true score %f", s.ID, s.Score, want)
		}
	}
}

func TestRecommendSameSessionConcurrency(t *testing.T) {
	t.Parallel()

	var songs []models.Song
	for i := 0; i < 100; i++ {
		songs = append(songs, catalogSong(
			fmt.Sprintf("p%03d", i), "T", models.MoodHappy, float64(i)/100.0, 0.5,
		))
	}
	cfg := sessionConfig()
	cfg.MaxHistory = 1000

	schema, err := similarity.NewSchema([]string{"valence", "energy"})
	if err != nil {
		t.Fatalf("NewSchema error: %v", err)
	}
	e := NewEngine(
		engineConfig(),
		store.NewMemoryStore(songs),
		mood.NewHeuristicScorer(0.02),
		similarity.NewHandle(),
		schema,
		session.NewTracker(cfg),
		zerolog.Nop(),
	)

	// 10 concurrent calls for one session, 5 songs each: the 50
	// served songs must be distinct while novelty lasts.
	var wg sync.WaitGroup
	var mu sync.Mutex
	var all []string
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			resp, err := e.Recommend(context.Background(), Request{
				SessionID: "racer",
				Mood:      models.MoodHappy,
				Count:     5,
				Seed:      int64(w + 1),
			})
			if err != nil {
				t.Errorf("worker %d error: %v", w, err)
				return
			}
			mu.Lock()
			all = append(all, ids(resp.Songs)...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()

	unique := make(map[string]struct{}, len(all))
	for _, id := range all {
		if _, dup := unique[id]; dup {
			t.Fatalf("song %s double-served to one session under concurrency", id)
		}
		unique[id] = struct{}{}
	}
	if len(all) != 50 {
		t.Errorf("served %d songs total, want 50", len(all))
	}
}

func TestRecommendMissingSessionID(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, sixSongCatalog())
	if _, err := e.Recommend(context.Background(), Request{Mood: models.MoodHappy}); !errors.Is(err, ErrMissingSession) {
		t.Errorf("error = %v, want ErrMissingSession", err)
	}
}

func TestRebuildIndex(t *testing.T) {
	t.Parallel()

	songs := sixSongCatalog()
	schema, err := similarity.NewSchema([]string{"valence", "energy"})
	if err != nil {
		t.Fatalf("NewSchema error: %v", err)
	}
	st := store.NewMemoryStore(songs)
	handle := similarity.NewHandle()
	e := NewEngine(
		engineConfig(), st, mood.NewHeuristicScorer(0.02),
		handle, schema, session.NewTracker(sessionConfig()), zerolog.Nop(),
	)

	if err := e.RebuildIndex(context.Background()); err != nil {
		t.Fatalf("RebuildIndex error: %v", err)
	}
	ix, err := handle.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if ix.Size() != 6 {
		t.Errorf("index size = %d, want 6", ix.Size())
	}
	if ix.Version() != 1 {
		t.Errorf("index version = %d, want 1", ix.Version())
	}

	// A rebuild over a changed catalog swaps in the new snapshot.
	st.Replace(songs[:3])
	if err := e.RebuildIndex(context.Background()); err != nil {
		t.Fatalf("second RebuildIndex error: %v", err)
	}
	ix, _ = handle.Load()
	if ix.Size() != 3 || ix.Version() != 2 {
		t.Errorf("after rebuild size=%d version=%d, want 3 and 2", ix.Size(), ix.Version())
	}
}
