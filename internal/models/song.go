// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package models

import (
	"fmt"
)

// Mood is a coarse categorical label describing the desired
// recommendation affect.
type Mood string

const (
	// MoodHappy selects upbeat, high-valence content.
	MoodHappy Mood = "happy"
	// MoodSad selects low-valence, low-energy content.
	MoodSad Mood = "sad"
	// MoodNeutral selects content with no strong affect signal.
	MoodNeutral Mood = "neutral"
)

// Moods lists every supported mood in a stable order.
// The order matters for deterministic random mood selection.
var Moods = []Mood{MoodHappy, MoodSad, MoodNeutral}

// Valid reports whether m is a supported mood label.
func (m Mood) Valid() bool {
	switch m {
	case MoodHappy, MoodSad, MoodNeutral:
		return true
	default:
		return false
	}
}

// ParseMood converts a string to a Mood, rejecting unknown labels.
func ParseMood(s string) (Mood, error) {
	m := Mood(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown mood %q", s)
	}
	return m, nil
}

// Song is an immutable catalog record owned by the feature store.
// The selector never mutates songs; they are shared freely across
// concurrent requests.
//
// Features holds the named numeric audio attributes (tempo, energy,
// danceability, valence, ...) keyed by attribute name. Vector
// construction order is governed by the feature schema, not by this
// map, so iteration order here is irrelevant.
type Song struct {
	// ID is the opaque catalog identifier (Mongo ObjectID hex in
	// production, fabricated strings in tests).
	ID string `json:"id" bson:"_id"`

	// Title is the display title.
	Title string `json:"title" bson:"title"`

	// Filename is the playable asset name served by the audio backend.
	Filename string `json:"filename" bson:"filename"`

	// Features maps attribute name to value. Required attributes are
	// validated at ingestion, not at scoring time.
	Features map[string]float64 `json:"features" bson:"features"`

	// Mood is the optional curator-assigned mood label. Empty when the
	// song has not been tagged.
	Mood Mood `json:"mood,omitempty" bson:"song_emotion,omitempty"`

	// Meta carries passthrough metadata (language, artist, ...) that
	// the engine never interprets.
	Meta map[string]string `json:"meta,omitempty" bson:"meta,omitempty"`
}

// Feature returns the named attribute, or fallback when absent.
func (s *Song) Feature(name string, fallback float64) float64 {
	if v, ok := s.Features[name]; ok {
		return v
	}
	return fallback
}
