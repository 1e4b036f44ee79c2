// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package mood

import (
	"fmt"
	"math"
	"math/rand"
	"os"

	json "github.com/goccy/go-json"

	"github.com/moodtape/moodtape/internal/models"
)

// artifact is the fitted classifier serialized to JSON: a linear
// softmax over standardized features, exported by the offline
// training job.
type artifact struct {
	Attrs   []string             `json:"attrs"`
	Mean    []float64            `json:"mean"`
	Std     []float64            `json:"std"`
	Weights map[string][]float64 `json:"weights"` // per mood label, len(Attrs) each
	Bias    map[string]float64   `json:"bias"`
}

// ClassifierScorer scores a song as the softmax probability of the
// requested mood under a fitted linear model.
type ClassifierScorer struct {
	attrs   []string
	mean    []float64
	std     []float64
	weights map[models.Mood][]float64
	bias    map[models.Mood]float64
}

// NewClassifierScorer loads a fitted artifact. Callers fall back to
// the heuristic scorer on error.
func NewClassifierScorer(path string) (*ClassifierScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact %s: %w", path, err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse model artifact %s: %w", path, err)
	}

	return newClassifierScorer(&a)
}

func newClassifierScorer(a *artifact) (*ClassifierScorer, error) {
	dim := len(a.Attrs)
	if dim == 0 {
		return nil, fmt.Errorf("model artifact has no attributes")
	}
	if len(a.Mean) != dim || len(a.Std) != dim {
		return nil, fmt.Errorf("model artifact scaler dimension mismatch: attrs=%d mean=%d std=%d",
			dim, len(a.Mean), len(a.Std))
	}

	weights := make(map[models.Mood][]float64, len(models.Moods))
	bias := make(map[models.Mood]float64, len(models.Moods))
	for _, mood := range models.Moods {
		w, ok := a.Weights[string(mood)]
		if !ok {
			return nil, fmt.Errorf("model artifact missing weights for mood %q", mood)
		}
		if len(w) != dim {
			return nil, fmt.Errorf("model artifact weights for mood %q have dimension %d, want %d",
				mood, len(w), dim)
		}
		weights[mood] = w
		bias[mood] = a.Bias[string(mood)]
	}

	for i, s := range a.Std {
		if s == 0 {
			return nil, fmt.Errorf("model artifact has zero std for attribute %q", a.Attrs[i])
		}
	}

	return &ClassifierScorer{
		attrs:   a.Attrs,
		mean:    a.Mean,
		std:     a.Std,
		weights: weights,
		bias:    bias,
	}, nil
}

// Name identifies the scorer in logs and health output.
func (c *ClassifierScorer) Name() string {
	return "classifier"
}

// Score implements Scorer. The returned score is the softmax
// probability of the requested mood, so it is already in [0, 1].
func (c *ClassifierScorer) Score(_ *rand.Rand, song *models.Song, mood models.Mood) (float64, error) {
	if _, ok := c.weights[mood]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMood, mood)
	}

	vec := make([]float64, len(c.attrs))
	for i, attr := range c.attrs {
		v, err := finiteFeature(song, attr)
		if err != nil {
			return 0, fmt.Errorf("song %s attribute %s: %w", song.ID, attr, err)
		}
		vec[i] = (v - c.mean[i]) / c.std[i]
	}

	// Softmax with max-logit shift for numeric stability.
	logits := make(map[models.Mood]float64, len(c.weights))
	maxLogit := math.Inf(-1)
	for m, w := range c.weights {
		z := c.bias[m]
		for i, x := range vec {
			z += w[i] * x
		}
		logits[m] = z
		if z > maxLogit {
			maxLogit = z
		}
	}

	var denom float64
	for _, z := range logits {
		denom += math.Exp(z - maxLogit)
	}
	return math.Exp(logits[mood]-maxLogit) / denom, nil
}
