// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package similarity

import (
	"errors"
	"math"
	"testing"

	"github.com/moodtape/moodtape/internal/models"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema([]string{"tempo", "energy", "valence"})
	if err != nil {
		t.Fatalf("NewSchema error: %v", err)
	}
	return s
}

func song(id string, tempo, energy, valence float64) models.Song {
	return models.Song{
		ID: id,
		Features: map[string]float64{
			"tempo":   tempo,
			"energy":  energy,
			"valence": valence,
		},
	}
}

func TestSchemaVector(t *testing.T) {
	t.Parallel()

	schema := testSchema(t)

	s := song("a", 120, 0.8, 0.6)
	vec, err := schema.Vector(&s)
	if err != nil {
		t.Fatalf("Vector error: %v", err)
	}
	want := []float64{120, 0.8, 0.6}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("vec[%d] = %f, want %f", i, vec[i], want[i])
		}
	}
}

func TestSchemaVectorRejectsMissingAndNonFinite(t *testing.T) {
	t.Parallel()

	schema := testSchema(t)

	missing := models.Song{ID: "m", Features: map[string]float64{"tempo": 120}}
	if _, err := schema.Vector(&missing); !errors.Is(err, ErrIncompleteFeatures) {
		t.Errorf("missing attr error = %v, want ErrIncompleteFeatures", err)
	}

	nan := song("n", 120, math.NaN(), 0.5)
	if _, err := schema.Vector(&nan); !errors.Is(err, ErrIncompleteFeatures) {
		t.Errorf("NaN attr error = %v, want ErrIncompleteFeatures", err)
	}

	inf := song("i", math.Inf(1), 0.5, 0.5)
	if _, err := schema.Vector(&inf); !errors.Is(err, ErrIncompleteFeatures) {
		t.Errorf("Inf attr error = %v, want ErrIncompleteFeatures", err)
	}
}

func TestStandardizer(t *testing.T) {
	t.Parallel()

	vectors := [][]float64{
		{100, 0.2},
		{120, 0.4},
		{140, 0.6},
	}
	z, err := FitStandardizer(vectors)
	if err != nil {
		t.Fatalf("FitStandardizer error: %v", err)
	}

	// The mean vector standardizes to zero.
	got, err := z.Transform([]float64{120, 0.4})
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	for i, v := range got {
		if math.Abs(v) > 1e-12 {
			t.Errorf("standardized mean[%d] = %f, want 0", i, v)
		}
	}
}

func TestStandardizerConstantAttribute(t *testing.T) {
	t.Parallel()

	z, err := FitStandardizer([][]float64{{5, 1}, {5, 2}, {5, 3}})
	if err != nil {
		t.Fatalf("FitStandardizer error: %v", err)
	}

	got, err := z.Transform([]float64{5, 2})
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	if got[0] != 0 {
		t.Errorf("constant attribute standardized to %f, want 0", got[0])
	}
}

func TestStandardizerRejectsWrongDimension(t *testing.T) {
	t.Parallel()

	z, err := FitStandardizer([][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("FitStandardizer error: %v", err)
	}
	if _, err := z.Transform([]float64{1}); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("Transform with wrong dimension error = %v, want ErrSchemaMismatch", err)
	}
}

func TestIndexQueryOrdering(t *testing.T) {
	t.Parallel()

	schema := testSchema(t)
	songs := []models.Song{
		song("anchor", 120, 0.8, 0.8),
		song("near", 118, 0.78, 0.79),
		song("mid", 100, 0.5, 0.5),
		song("far", 60, 0.1, 0.1),
	}

	ix, err := Build(schema, songs, 1)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	neighbors, err := ix.Query("anchor", 10)
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if len(neighbors) != 3 {
		t.Fatalf("len(neighbors) = %d, want 3 (anchor excluded, k clamped)", len(neighbors))
	}
	for _, n := range neighbors {
		if n.ID == "anchor" {
			t.Error("anchor must be excluded from its own neighbors")
		}
	}
	for i := 1; i < len(neighbors); i++ {
		if neighbors[i].Similarity > neighbors[i-1].Similarity {
			t.Errorf("neighbors not descending at %d: %f > %f",
				i, neighbors[i].Similarity, neighbors[i-1].Similarity)
		}
	}
	if neighbors[0].ID != "near" {
		t.Errorf("nearest = %s, want near", neighbors[0].ID)
	}
}

func TestIndexQueryTiesBreakByID(t *testing.T) {
	t.Parallel()

	schema := testSchema(t)
	// twinB and twinA are identical, so equally similar to the anchor.
	songs := []models.Song{
		song("anchor", 120, 0.8, 0.8),
		song("twinB", 110, 0.7, 0.7),
		song("twinA", 110, 0.7, 0.7),
	}

	ix, err := Build(schema, songs, 1)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	neighbors, err := ix.Query("anchor", 2)
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if neighbors[0].ID != "twinA" || neighbors[1].ID != "twinB" {
		t.Errorf("tie order = [%s %s], want [twinA twinB]", neighbors[0].ID, neighbors[1].ID)
	}
}

func TestIndexQueryKClamp(t *testing.T) {
	t.Parallel()

	schema := testSchema(t)
	songs := []models.Song{
		song("a", 120, 0.8, 0.8),
		song("b", 110, 0.7, 0.7),
	}

	ix, err := Build(schema, songs, 1)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	neighbors, err := ix.Query("a", 100)
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if len(neighbors) != 1 {
		t.Errorf("len = %d, want 1", len(neighbors))
	}

	if got, _ := ix.Query("a", 0); got != nil {
		t.Errorf("k=0 should return nil, got %v", got)
	}
}

func TestIndexQueryUnknownAnchor(t *testing.T) {
	t.Parallel()

	schema := testSchema(t)
	ix, err := Build(schema, []models.Song{song("a", 1, 2, 3), song("b", 2, 3, 4)}, 1)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	if _, err := ix.Query("ghost", 5); !errors.Is(err, ErrUnknownSong) {
		t.Errorf("Query(ghost) error = %v, want ErrUnknownSong", err)
	}
}

func TestBuildSkipsIncompleteSongs(t *testing.T) {
	t.Parallel()

	schema := testSchema(t)
	songs := []models.Song{
		song("ok1", 120, 0.8, 0.8),
		{ID: "broken", Features: map[string]float64{"tempo": 100}},
		song("ok2", 110, 0.7, 0.7),
	}

	ix, err := Build(schema, songs, 1)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if ix.Size() != 2 {
		t.Errorf("Size = %d, want 2", ix.Size())
	}
	if ix.Skipped() != 1 {
		t.Errorf("Skipped = %d, want 1", ix.Skipped())
	}
	if ix.Contains("broken") {
		t.Error("broken song must not be indexed")
	}
}

func TestBuildEmptyCatalog(t *testing.T) {
	t.Parallel()

	schema := testSchema(t)
	if _, err := Build(schema, nil, 1); !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("Build(nil) error = %v, want ErrEmptyIndex", err)
	}
}

func TestHandleSwap(t *testing.T) {
	t.Parallel()

	h := NewHandle()
	if _, err := h.Load(); !errors.Is(err, ErrEmptyIndex) {
		t.Fatalf("Load before Swap error = %v, want ErrEmptyIndex", err)
	}

	schema := testSchema(t)
	first, err := Build(schema, []models.Song{song("a", 1, 2, 3), song("b", 2, 3, 4)}, h.NextVersion())
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if prev := h.Swap(first); prev != nil {
		t.Errorf("first Swap returned %v, want nil", prev)
	}

	got, err := h.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got.Version() != 1 {
		t.Errorf("Version = %d, want 1", got.Version())
	}

	second, err := Build(schema, []models.Song{song("c", 3, 4, 5), song("d", 4, 5, 6)}, h.NextVersion())
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if prev := h.Swap(second); prev != first {
		t.Error("Swap should return the previous index")
	}
	got, _ = h.Load()
	if got.Version() != 2 {
		t.Errorf("Version after swap = %d, want 2", got.Version())
	}
}
