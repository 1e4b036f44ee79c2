// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

// Package similarity builds and queries the cosine-similarity index
// over standardized song feature vectors.
//
// The index is immutable once built. Rebuilds construct a fresh index
// from the current catalog and atomically swap it into the Handle, so
// queries never observe a partially built index.
package similarity

import (
	"errors"
	"fmt"
	"math"

	"github.com/moodtape/moodtape/internal/models"
)

var (
	// ErrIncompleteFeatures marks a song whose features cannot form a
	// full, finite vector under the schema. Such songs are skipped at
	// build time rather than failing the build.
	ErrIncompleteFeatures = errors.New("incomplete feature vector")

	// ErrEmptySchema rejects schema construction with no attributes.
	ErrEmptySchema = errors.New("schema has no attributes")
)

// Schema fixes the ordered list of feature attributes shared by the
// standardizer, the index, and the scorers. Attribute order is part
// of the model; two vectors are only comparable under the same
// schema.
type Schema struct {
	attrs []string
	pos   map[string]int
}

// NewSchema creates a schema from an ordered attribute list.
func NewSchema(attrs []string) (*Schema, error) {
	if len(attrs) == 0 {
		return nil, ErrEmptySchema
	}

	pos := make(map[string]int, len(attrs))
	for i, attr := range attrs {
		if _, dup := pos[attr]; dup {
			return nil, fmt.Errorf("duplicate schema attribute %q", attr)
		}
		pos[attr] = i
	}

	out := make([]string, len(attrs))
	copy(out, attrs)
	return &Schema{attrs: out, pos: pos}, nil
}

// Attrs returns the ordered attribute names.
func (s *Schema) Attrs() []string {
	out := make([]string, len(s.attrs))
	copy(out, s.attrs)
	return out
}

// Len returns the vector dimensionality.
func (s *Schema) Len() int {
	return len(s.attrs)
}

// Vector builds the feature vector for a song in schema order.
// Returns ErrIncompleteFeatures when an attribute is missing or not
// finite.
func (s *Schema) Vector(song *models.Song) ([]float64, error) {
	vec := make([]float64, len(s.attrs))
	for i, attr := range s.attrs {
		v, ok := song.Features[attr]
		if !ok {
			return nil, fmt.Errorf("song %s attribute %s: %w", song.ID, attr, ErrIncompleteFeatures)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("song %s attribute %s is not finite: %w", song.ID, attr, ErrIncompleteFeatures)
		}
		vec[i] = v
	}
	return vec, nil
}
