// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

// Package session tracks recently served songs per session so
// consecutive recommendations avoid repeats.
//
// The tracker is a sharded mutex map. Update runs its closure under
// the owning shard's lock, so a filter-then-record sequence for one
// session is atomic even under concurrent requests for the same
// session ID.
package session

import (
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/moodtape/moodtape/internal/config"
	"github.com/moodtape/moodtape/internal/metrics"
)

// ErrNotFound indicates the session does not exist.
var ErrNotFound = errors.New("session not found")

// History is the bounded anti-repeat window of one session. Oldest
// entries fall out first; an evicted song becomes recommendable
// again.
type History struct {
	max    int
	recent []string
	seen   map[string]struct{}
}

func newHistory(max int) *History {
	return &History{
		max:  max,
		seen: make(map[string]struct{}, max),
	}
}

// Seen reports whether the song is inside the current window.
func (h *History) Seen(id string) bool {
	_, ok := h.seen[id]
	return ok
}

// Record appends served songs, evicting the oldest beyond the window
// size. Recording a song already in the window refreshes nothing;
// the original position keeps aging out on schedule.
func (h *History) Record(ids ...string) {
	for _, id := range ids {
		if h.Seen(id) {
			continue
		}
		h.recent = append(h.recent, id)
		h.seen[id] = struct{}{}
	}
	for len(h.recent) > h.max {
		oldest := h.recent[0]
		h.recent = h.recent[1:]
		delete(h.seen, oldest)
	}
}

// Len returns the number of songs in the window.
func (h *History) Len() int {
	return len(h.recent)
}

// Recent returns the window contents, oldest first.
func (h *History) Recent() []string {
	out := make([]string, len(h.recent))
	copy(out, h.recent)
	return out
}

// session pairs a history with its idle clock.
type session struct {
	history    *History
	lastActive time.Time
}

// shard is one lock domain of the tracker.
type shard struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// Tracker is the sharded session map.
type Tracker struct {
	shards     []*shard
	mask       uint32
	maxHistory int
	idleTTL    time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// NewTracker creates a tracker. cfg.Shards must be a power of two
// (enforced by config validation).
func NewTracker(cfg *config.SessionConfig) *Tracker {
	shards := make([]*shard, cfg.Shards)
	for i := range shards {
		shards[i] = &shard{sessions: make(map[string]*session)}
	}
	return &Tracker{
		shards:     shards,
		mask:       uint32(cfg.Shards - 1), //nolint:gosec // validated power of two
		maxHistory: cfg.MaxHistory,
		idleTTL:    cfg.IdleTTL,
		now:        time.Now,
	}
}

// shardFor selects the shard owning a session ID.
func (t *Tracker) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return t.shards[h.Sum32()&t.mask]
}

// Update runs fn against the session's history under the shard lock,
// creating the session on first use. fn must not block.
func (t *Tracker) Update(sessionID string, fn func(h *History)) {
	sh := t.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s, ok := sh.sessions[sessionID]
	if !ok {
		s = &session{history: newHistory(t.maxHistory)}
		sh.sessions[sessionID] = s
		metrics.ActiveSessions.Inc()
	}
	s.lastActive = t.now()
	fn(s.history)
}

// Recent returns the session's window, oldest first, or nil for an
// unknown session. Unlike Update it never creates the session.
func (t *Tracker) Recent(sessionID string) []string {
	sh := t.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s, ok := sh.sessions[sessionID]
	if !ok {
		return nil
	}
	return s.history.Recent()
}

// Reset forgets the session. Returns ErrNotFound when it was never
// created or already swept.
func (t *Tracker) Reset(sessionID string) error {
	sh := t.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(sh.sessions, sessionID)
	metrics.ActiveSessions.Dec()
	return nil
}

// ActiveCount returns the number of tracked sessions.
func (t *Tracker) ActiveCount() int {
	count := 0
	for _, sh := range t.shards {
		sh.mu.Lock()
		count += len(sh.sessions)
		sh.mu.Unlock()
	}
	return count
}

// Sweep removes sessions idle past the TTL and returns how many were
// removed. Called periodically by the janitor service.
func (t *Tracker) Sweep() int {
	cutoff := t.now().Add(-t.idleTTL)
	removed := 0
	for _, sh := range t.shards {
		sh.mu.Lock()
		for id, s := range sh.sessions {
			if s.lastActive.Before(cutoff) {
				delete(sh.sessions, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	if removed > 0 {
		metrics.ActiveSessions.Sub(float64(removed))
		metrics.SessionsSweptTotal.Add(float64(removed))
	}
	return removed
}
