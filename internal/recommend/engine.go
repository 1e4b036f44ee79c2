// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

// Package recommend orchestrates the feature store, mood scorer,
// similarity index, and session tracker into final recommendations.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/moodtape/moodtape/internal/config"
	"github.com/moodtape/moodtape/internal/metrics"
	"github.com/moodtape/moodtape/internal/models"
	"github.com/moodtape/moodtape/internal/mood"
	"github.com/moodtape/moodtape/internal/session"
	"github.com/moodtape/moodtape/internal/similarity"
	"github.com/moodtape/moodtape/internal/store"
)

// ErrMissingSession rejects requests without a session ID.
var ErrMissingSession = errors.New("session id is required")

// Engine is the recommendation selector. It is safe for concurrent
// use: the store, scorer, and index are read-only from its point of
// view, and the tracker serializes per-session state internally.
type Engine struct {
	config  *config.EngineConfig
	store   store.Store
	scorer  mood.Scorer
	index   *similarity.Handle
	schema  *similarity.Schema
	tracker *session.Tracker
	logger  zerolog.Logger

	requestCount  atomic.Int64
	errorCount    atomic.Int64
	degradedCount atomic.Int64
}

// NewEngine creates a recommendation engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(
	cfg *config.EngineConfig,
	st store.Store,
	scorer mood.Scorer,
	index *similarity.Handle,
	schema *similarity.Schema,
	tracker *session.Tracker,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		config:  cfg,
		store:   st,
		scorer:  scorer,
		index:   index,
		schema:  schema,
		tracker: tracker,
		logger:  logger.With().Str("component", "recommend").Logger(),
	}
}

// scored pairs a song with its computed score for internal ranking.
type scored struct {
	song  *models.Song
	score float64
	// tieBreak orders equal primary scores in anchor mode before the
	// per-request shuffle.
	tieBreak float64
}

// Recommend runs the selection algorithm.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	e.requestCount.Add(1)

	if req.SessionID == "" {
		e.errorCount.Add(1)
		return nil, ErrMissingSession
	}
	req = e.prepareRequest(req)

	rng := rand.New(rand.NewSource(req.Seed)) //nolint:gosec // selection shuffling, not crypto

	if req.AnchorID != "" {
		return e.recommendByAnchor(ctx, req, rng, start)
	}

	if req.Mood == "" {
		req.Mood = models.Moods[rng.Intn(len(models.Moods))]
	}
	return e.recommendByMood(ctx, req, rng, start)
}

// prepareRequest applies defaults and clamps.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(req Request) Request {
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	if req.Count <= 0 {
		req.Count = e.config.DefaultCount
	}
	if req.Count > e.config.MaxCount {
		req.Count = e.config.MaxCount
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}
	return req
}

// recommendByMood resolves a mood-scored candidate pool and selects
// from it.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) recommendByMood(ctx context.Context, req Request, rng *rand.Rand, start time.Time) (*Response, error) {
	logger := e.requestLogger(req)

	pool, widened, err := e.resolvePool(ctx, req.Mood, req.Count)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			logger.Warn().Err(err).Msg("Store unavailable, serving degraded response")
			return e.degradedResponse(req, start), nil
		}
		e.errorCount.Add(1)
		return nil, fmt.Errorf("resolve candidate pool: %w", err)
	}
	if widened {
		metrics.PoolWidenedTotal.WithLabelValues(string(req.Mood)).Inc()
	}

	scoredPool := e.scorePool(rng, pool, req.Mood, logger)
	e.rankMood(rng, scoredPool)

	resp := e.selectAndRecord(req, rng, scoredPool, StrategyMood, start)
	resp.Metadata.Widened = widened

	e.logOutcome(logger, resp)
	metrics.RecordRecommendation(string(resp.Mood), StrategyMood, len(resp.Songs), time.Since(start))
	return resp, nil
}

// recommendByAnchor ranks the anchor's index neighbors by similarity,
// mood score as tie-break.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) recommendByAnchor(ctx context.Context, req Request, rng *rand.Rand, start time.Time) (*Response, error) {
	logger := e.requestLogger(req)

	anchor, err := e.store.GetByID(ctx, req.AnchorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Clean failure: session state untouched.
			e.errorCount.Add(1)
			return nil, fmt.Errorf("anchor song %s: %w", req.AnchorID, err)
		}
		if errors.Is(err, store.ErrUnavailable) {
			logger.Warn().Err(err).Msg("Store unavailable, serving degraded response")
			return e.degradedResponse(req, start), nil
		}
		e.errorCount.Add(1)
		return nil, fmt.Errorf("fetch anchor song: %w", err)
	}

	if req.Mood == "" {
		req.Mood = anchor.Mood
	}

	ix, err := e.index.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("Similarity index not ready, serving degraded response")
		return e.degradedResponse(req, start), nil
	}

	neighbors, err := ix.Query(req.AnchorID, e.config.AnchorNeighbors)
	if err != nil {
		if errors.Is(err, similarity.ErrUnknownSong) {
			// In the store but not indexable: treat as missing for
			// similarity purposes, with no session mutation.
			e.errorCount.Add(1)
			return nil, fmt.Errorf("anchor song %s: %w", req.AnchorID, store.ErrNotFound)
		}
		e.errorCount.Add(1)
		return nil, fmt.Errorf("similarity query: %w", err)
	}

	songs, err := e.store.GetAll(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Store unavailable, serving degraded response")
		return e.degradedResponse(req, start), nil
	}
	byID := make(map[string]*models.Song, len(songs))
	for i := range songs {
		byID[songs[i].ID] = &songs[i]
	}

	scoredPool := make([]scored, 0, len(neighbors))
	for _, n := range neighbors {
		song, ok := byID[n.ID]
		if !ok {
			continue // index ahead of the catalog; skip
		}
		tieBreak := 0.0
		if req.Mood.Valid() {
			if ms, err := e.scorer.Score(rng, song, req.Mood); err == nil {
				tieBreak = ms
			}
		}
		scoredPool = append(scoredPool, scored{song: song, score: n.Similarity, tieBreak: tieBreak})
	}

	sort.Slice(scoredPool, func(a, b int) bool {
		if scoredPool[a].score != scoredPool[b].score {
			return scoredPool[a].score > scoredPool[b].score
		}
		if scoredPool[a].tieBreak != scoredPool[b].tieBreak {
			return scoredPool[a].tieBreak > scoredPool[b].tieBreak
		}
		return scoredPool[a].song.ID < scoredPool[b].song.ID
	})

	resp := e.selectAndRecord(req, rng, scoredPool, StrategyAnchor, start)
	resp.Metadata.IndexVersion = ix.Version()

	e.logOutcome(logger, resp)
	metrics.RecordRecommendation(string(resp.Mood), StrategyAnchor, len(resp.Songs), time.Since(start))
	return resp, nil
}

// resolvePool prefers the exact mood bucket and widens to the full
// catalog when the bucket cannot fill the request on its own. An
// empty bucket is the degenerate case of that rule.
func (e *Engine) resolvePool(ctx context.Context, m models.Mood, count int) ([]models.Song, bool, error) {
	bucket, err := e.store.FindByMood(ctx, m)
	if err != nil {
		return nil, false, err
	}
	if len(bucket) >= count {
		return bucket, false, nil
	}

	all, err := e.store.GetAll(ctx)
	if err != nil {
		return nil, false, err
	}
	return all, true, nil
}

// scorePool scores candidates, dropping songs with unusable
// features.
func (e *Engine) scorePool(rng *rand.Rand, pool []models.Song, m models.Mood, logger zerolog.Logger) []scored {
	out := make([]scored, 0, len(pool))
	for i := range pool {
		s, err := e.scorer.Score(rng, &pool[i], m)
		if err != nil {
			if errors.Is(err, mood.ErrInvalidFeatures) {
				logger.Debug().Str("song_id", pool[i].ID).Err(err).Msg("Excluding song with invalid features")
				continue
			}
			logger.Warn().Str("song_id", pool[i].ID).Err(err).Msg("Scoring failed, excluding song")
			continue
		}
		out = append(out, scored{song: &pool[i], score: s})
	}
	return out
}

// rankMood sorts by score descending and shuffles runs of equal
// scores with the per-request rng. Randomness decides which equally
// good songs surface, never whether a worse song outranks a better
// one.
func (e *Engine) rankMood(rng *rand.Rand, pool []scored) {
	sort.Slice(pool, func(a, b int) bool {
		if pool[a].score != pool[b].score {
			return pool[a].score > pool[b].score
		}
		return pool[a].song.ID < pool[b].song.ID
	})

	i := 0
	for i < len(pool) {
		j := i + 1
		for j < len(pool) && pool[j].score == pool[i].score {
			j++
		}
		if j-i > 1 {
			run := pool[i:j]
			rng.Shuffle(len(run), func(a, b int) {
				run[a], run[b] = run[b], run[a]
			})
		}
		i = j
	}
}

// selectAndRecord applies the novelty-first selection policy inside
// the tracker's per-session critical section, then shuffles the
// presentation order.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) selectAndRecord(req Request, rng *rand.Rand, pool []scored, strategy string, start time.Time) *Response {
	n := req.Count
	if n > len(pool) {
		n = len(pool)
	}

	var selected []scored
	var novelCount int
	var exhausted bool

	e.tracker.Update(req.SessionID, func(h *session.History) {
		novel := make([]scored, 0, len(pool))
		seen := make([]scored, 0)
		for _, c := range pool {
			if h.Seen(c.song.ID) {
				seen = append(seen, c)
			} else {
				novel = append(novel, c)
			}
		}
		novelCount = len(novel)

		switch {
		case len(novel) >= n:
			selected = novel[:n]
		case len(novel) > 0:
			selected = novel
			backfill := n - len(novel)
			if backfill > len(seen) {
				backfill = len(seen)
			}
			selected = append(selected, seen[:backfill]...)
			exhausted = backfill > 0
		default:
			selected = pool[:n]
			exhausted = n > 0
		}

		ids := make([]string, len(selected))
		for i, c := range selected {
			ids[i] = c.song.ID
		}
		h.Record(ids...)
	})

	if exhausted {
		metrics.NoveltyExhaustedTotal.Inc()
	}

	// Presentation order only; scores stay true.
	shuffled := make([]scored, len(selected))
	copy(shuffled, selected)
	rng.Shuffle(len(shuffled), func(a, b int) {
		shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
	})

	songs := make([]ScoredSong, len(shuffled))
	for i, c := range shuffled {
		songs[i] = ScoredSong{
			ID:       c.song.ID,
			Title:    c.song.Title,
			Filename: c.song.Filename,
			Score:    c.score,
			Meta:     c.song.Meta,
		}
	}

	return &Response{
		Success:   true,
		Mood:      req.Mood,
		Songs:     songs,
		SessionID: req.SessionID,
		Metadata: Metadata{
			RequestID:        req.RequestID,
			Strategy:         strategy,
			PoolSize:         len(pool),
			NovelCount:       novelCount,
			NoveltyExhausted: exhausted,
			LatencyMS:        time.Since(start).Milliseconds(),
		},
	}
}

// degradedResponse is the success-shaped answer for an unreachable
// store: mood echoed, no items, success false. Session state is not
// touched.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) degradedResponse(req Request, start time.Time) *Response {
	e.degradedCount.Add(1)
	metrics.RecordRecommendation(string(req.Mood), StrategyDegraded, 0, time.Since(start))
	return &Response{
		Success:   false,
		Mood:      req.Mood,
		Songs:     []ScoredSong{},
		SessionID: req.SessionID,
		Metadata: Metadata{
			RequestID: req.RequestID,
			Strategy:  StrategyDegraded,
			LatencyMS: time.Since(start).Milliseconds(),
		},
	}
}

// requestLogger derives a logger with request context.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) requestLogger(req Request) zerolog.Logger {
	return e.logger.With().
		Str("request_id", req.RequestID).
		Str("session_id", req.SessionID).
		Str("mood", string(req.Mood)).
		Str("anchor_id", req.AnchorID).
		Int("count", req.Count).
		Logger()
}

// logOutcome logs one completed selection.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (e *Engine) logOutcome(logger zerolog.Logger, resp *Response) {
	logger.Debug().
		Str("strategy", resp.Metadata.Strategy).
		Int("pool", resp.Metadata.PoolSize).
		Int("novel", resp.Metadata.NovelCount).
		Int("returned", len(resp.Songs)).
		Bool("widened", resp.Metadata.Widened).
		Bool("novelty_exhausted", resp.Metadata.NoveltyExhausted).
		Int64("latency_ms", resp.Metadata.LatencyMS).
		Msg("Recommendation complete")
}

// ResetSession clears a session's history.
func (e *Engine) ResetSession(sessionID string) error {
	if sessionID == "" {
		return ErrMissingSession
	}
	return e.tracker.Reset(sessionID)
}

// RebuildIndex builds a fresh similarity index from the catalog and
// swaps it in atomically. In-flight queries keep the snapshot they
// started with.
func (e *Engine) RebuildIndex(ctx context.Context) error {
	start := time.Now()

	songs, err := e.store.GetAll(ctx)
	if err != nil {
		metrics.RecordIndexRebuild(0, 0, time.Since(start), err)
		return fmt.Errorf("load catalog for index rebuild: %w", err)
	}

	version := e.index.NextVersion()
	ix, err := similarity.Build(e.schema, songs, version)
	if err != nil {
		metrics.RecordIndexRebuild(0, version, time.Since(start), err)
		return fmt.Errorf("build similarity index: %w", err)
	}

	e.index.Swap(ix)
	metrics.RecordIndexRebuild(ix.Size(), version, time.Since(start), nil)
	e.logger.Info().
		Int("songs", ix.Size()).
		Int("skipped", ix.Skipped()).
		Int64("version", version).
		Msg("Similarity index rebuilt")
	return nil
}

// Stats reports engine counters for health output.
func (e *Engine) Stats() (requests, errs, degraded int64) {
	return e.requestCount.Load(), e.errorCount.Load(), e.degradedCount.Load()
}
