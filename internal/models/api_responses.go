// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package models

import (
	"time"
)

// APIResponse is the standardized response wrapper used by all HTTP
// endpoints. It provides a consistent structure for both successful and
// error responses, with metadata for observability.
//
// Status field values:
//   - "success": request completed, see Data
//   - "error": request failed, see Error
//
// Note that a degraded recommendation (store unreachable) is still a
// "success" envelope; the degradation is signaled inside the payload so
// clients never need transport-level special cases for "no data right
// now".
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError carries structured error details.
//
// Common codes: VALIDATION_ERROR, NOT_FOUND, RECOMMENDATION_ERROR,
// METHOD_NOT_ALLOWED, INVALID_JSON.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RecommendedSong is a single entry of a recommendation result as
// exposed on the wire. Score is the true computed score; presentation
// order is shuffled independently of it.
type RecommendedSong struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Score    float64 `json:"score"`
	Filename string  `json:"filename"`
}

// RecommendationPayload is the data section of a recommend response.
// Success is false only for degraded results (empty items with the
// requested mood echoed back).
type RecommendationPayload struct {
	Success   bool              `json:"success"`
	Mood      Mood              `json:"mood"`
	Items     []RecommendedSong `json:"items"`
	SessionID string            `json:"session_id"`
}

// SongListPayload is the data section of the songs-by-mood listing.
type SongListPayload struct {
	Mood   Mood     `json:"mood"`
	Count  int      `json:"count"`
	Titles []string `json:"titles"`
}

// HealthPayload is the data section of the health endpoint.
type HealthPayload struct {
	Status         string       `json:"status"`
	StoreConnected bool         `json:"store_connected"`
	ActiveSessions int          `json:"active_sessions"`
	CountsByMood   map[Mood]int `json:"counts_by_mood"`
	IndexVersion   int64        `json:"index_version"`
	IndexSize      int          `json:"index_size"`
}
