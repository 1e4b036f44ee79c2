// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/moodtape/moodtape/internal/logging"
	"github.com/moodtape/moodtape/internal/models"
	"github.com/moodtape/moodtape/internal/recommend"
	"github.com/moodtape/moodtape/internal/session"
	"github.com/moodtape/moodtape/internal/similarity"
	"github.com/moodtape/moodtape/internal/store"
)

// Handler carries the dependencies of the HTTP endpoints.
type Handler struct {
	engine  *recommend.Engine
	store   store.Store
	tracker *session.Tracker
	index   *similarity.Handle
}

// NewHandler creates the endpoint handler set.
func NewHandler(engine *recommend.Engine, st store.Store, tracker *session.Tracker, index *similarity.Handle) *Handler {
	return &Handler{
		engine:  engine,
		store:   st,
		tracker: tracker,
		index:   index,
	}
}

// recommendRequest is the POST /api/v1/recommend body.
type recommendRequest struct {
	SessionID    string `json:"session_id"    validate:"required,max=128"`
	Mood         string `json:"mood"          validate:"omitempty,mood"`
	AnchorSongID string `json:"anchor_song_id" validate:"omitempty,max=128"`
	Count        int    `json:"count"         validate:"min=0,max=50"`
}

// Recommend handles POST /api/v1/recommend.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req recommendRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	// "random" at the boundary means "engine picks"; the engine also
	// picks when mood is simply absent.
	moodLabel := strings.ToLower(req.Mood)
	if moodLabel == "random" {
		moodLabel = ""
	}

	resp, err := h.engine.Recommend(r.Context(), recommend.Request{
		SessionID: req.SessionID,
		Mood:      models.Mood(moodLabel),
		AnchorID:  req.AnchorSongID,
		Count:     req.Count,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Anchor song not found", err)
		case errors.Is(err, recommend.ErrMissingSession):
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "session_id is required", nil)
		default:
			respondError(w, http.StatusInternalServerError, "RECOMMENDATION_ERROR", "Failed to generate recommendations", err)
		}
		return
	}

	items := make([]models.RecommendedSong, len(resp.Songs))
	for i, s := range resp.Songs {
		items[i] = models.RecommendedSong{
			ID:       s.ID,
			Title:    s.Title,
			Score:    s.Score,
			Filename: s.Filename,
		}
	}

	respondSuccess(w, http.StatusOK, &models.RecommendationPayload{
		Success:   resp.Success,
		Mood:      resp.Mood,
		Items:     items,
		SessionID: resp.SessionID,
	}, start)
}

// resetRequest is the POST /api/v1/session/reset body.
type resetRequest struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
}

// ResetSession handles POST /api/v1/session/reset. Resetting a
// session that never existed reports success false with a NOT_FOUND
// detail but stays a 200; the caller's intent (empty history) holds
// either way.
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req resetRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	err := h.engine.ResetSession(req.SessionID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		respondError(w, http.StatusInternalServerError, "SESSION_ERROR", "Failed to reset session", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"success":        err == nil,
		"already_absent": errors.Is(err, session.ErrNotFound),
	}, start)
}

// SongsByMood handles GET /api/v1/songs?mood=happy.
func (h *Handler) SongsByMood(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	moodParam := strings.ToLower(r.URL.Query().Get("mood"))
	m, err := models.ParseMood(moodParam)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "mood must be one of: happy, sad, neutral", nil)
		return
	}

	songs, err := h.store.FindByMood(r.Context(), m)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Song store is unreachable", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to list songs", err)
		return
	}

	titles := make([]string, len(songs))
	for i := range songs {
		titles[i] = songs[i].Title
	}

	respondSuccess(w, http.StatusOK, &models.SongListPayload{
		Mood:   m,
		Count:  len(titles),
		Titles: titles,
	}, start)
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	payload := &models.HealthPayload{
		Status:         "ok",
		StoreConnected: true,
		ActiveSessions: h.tracker.ActiveCount(),
	}

	if err := h.store.Ping(ctx); err != nil {
		payload.Status = "degraded"
		payload.StoreConnected = false
		logger := logging.FromContext(r.Context())
		logger.Warn().Err(err).Msg("Health check: store unreachable")
	} else if counts, err := h.store.CountsByMood(ctx); err == nil {
		payload.CountsByMood = counts
	}

	if ix, err := h.index.Load(); err == nil {
		payload.IndexVersion = ix.Version()
		payload.IndexSize = ix.Size()
	} else {
		payload.Status = "degraded"
	}

	// Always 200: degraded is an operating mode, not an outage.
	respondSuccess(w, http.StatusOK, payload, start)
}

// RebuildIndex handles POST /api/v1/index/rebuild, the manual
// counterpart of the scheduled rebuild.
func (h *Handler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := h.engine.RebuildIndex(r.Context()); err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Song store is unreachable", err)
			return
		}
		if errors.Is(err, similarity.ErrEmptyIndex) {
			respondError(w, http.StatusConflict, "EMPTY_CATALOG", "No indexable songs in the catalog", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "REBUILD_ERROR", "Failed to rebuild similarity index", err)
		return
	}

	ix, err := h.index.Load()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "REBUILD_ERROR", "Index missing after rebuild", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"version": ix.Version(),
		"size":    ix.Size(),
		"skipped": ix.Skipped(),
	}, start)
}
