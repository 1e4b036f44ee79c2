// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

// Package models defines the shared data model: catalog songs, mood
// labels, and the API response envelope used by every HTTP endpoint.
package models
