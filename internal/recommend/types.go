// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package recommend

import (
	"github.com/moodtape/moodtape/internal/models"
)

// Strategy labels how a response was produced, for logs and metrics.
const (
	StrategyMood     = "mood"
	StrategyAnchor   = "anchor"
	StrategyDegraded = "degraded"
)

// Request is one recommendation request.
type Request struct {
	// SessionID scopes the anti-repeat window. Required.
	SessionID string

	// Mood is the requested mood. Empty with an empty AnchorID means
	// the engine picks a mood at random.
	Mood models.Mood

	// AnchorID switches to similarity mode: recommend songs close to
	// this song instead of scoring by mood.
	AnchorID string

	// Count is the number of songs wanted. Zero means the configured
	// default; values above the configured maximum clamp.
	Count int

	// Seed fixes the per-request randomness. Zero means a fresh seed.
	// Tests use this for determinism.
	Seed int64

	// RequestID correlates logs. Generated when empty.
	RequestID string
}

// ScoredSong is one recommended song with its true computed score.
// Presentation order is shuffled; Score is not.
type ScoredSong struct {
	ID       string
	Title    string
	Filename string
	Score    float64
	Meta     map[string]string
}

// Metadata carries per-response diagnostics.
type Metadata struct {
	RequestID string
	Strategy  string

	// PoolSize is the scored candidate pool size.
	PoolSize int

	// NovelCount is how many of the pool were novel for the session.
	NovelCount int

	// Widened is set when the mood bucket could not fill the request
	// and the pool grew to the full catalog.
	Widened bool

	// NoveltyExhausted is set when seen songs had to be served again.
	NoveltyExhausted bool

	// IndexVersion is the similarity index version used (anchor mode).
	IndexVersion int64

	LatencyMS int64
}

// Response is the engine's answer.
type Response struct {
	// Success is false only for the degraded path (store unreachable).
	Success bool

	Mood      models.Mood
	Songs     []ScoredSong
	SessionID string
	Metadata  Metadata
}
