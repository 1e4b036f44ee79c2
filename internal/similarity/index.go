// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

package similarity

import (
	"errors"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/moodtape/moodtape/internal/logging"
	"github.com/moodtape/moodtape/internal/models"
)

var (
	// ErrEmptyIndex indicates a build over a catalog with no usable
	// songs, or a query before the first build completed.
	ErrEmptyIndex = errors.New("similarity index is empty")

	// ErrUnknownSong indicates the anchor song is not in the index.
	ErrUnknownSong = errors.New("song not in index")
)

// Neighbor is one query result.
type Neighbor struct {
	ID         string
	Similarity float64
}

// entry is one indexed song with its standardized vector and
// precomputed norm.
type entry struct {
	id   string
	vec  []float64
	norm float64
}

// Index is an immutable brute-force cosine-similarity index over
// standardized song vectors. For catalogs in the thousands a linear
// scan beats approximate structures on both latency and simplicity.
type Index struct {
	schema  *Schema
	scaler  *Standardizer
	entries []entry
	byID    map[string]int
	version int64
	builtAt time.Time
	skipped int
}

// Build constructs an index over the given songs. Songs whose
// features cannot form a full finite vector are skipped, not fatal:
// a partially tagged catalog still serves.
func Build(schema *Schema, songs []models.Song, version int64) (*Index, error) {
	logger := logging.With().Str("component", "similarity").Logger()

	raw := make([][]float64, 0, len(songs))
	ids := make([]string, 0, len(songs))
	skipped := 0
	for i := range songs {
		vec, err := schema.Vector(&songs[i])
		if err != nil {
			logger.Debug().Str("song_id", songs[i].ID).Err(err).Msg("Skipping song at index build")
			skipped++
			continue
		}
		raw = append(raw, vec)
		ids = append(ids, songs[i].ID)
	}

	if len(raw) == 0 {
		return nil, ErrEmptyIndex
	}

	scaler, err := FitStandardizer(raw)
	if err != nil {
		return nil, err
	}

	entries := make([]entry, len(raw))
	byID := make(map[string]int, len(raw))
	for i, vec := range raw {
		std, err := scaler.Transform(vec)
		if err != nil {
			return nil, err
		}
		entries[i] = entry{id: ids[i], vec: std, norm: norm(std)}
		byID[ids[i]] = i
	}

	logger.Info().
		Int("songs", len(entries)).
		Int("skipped", skipped).
		Int64("version", version).
		Msg("Similarity index built")

	return &Index{
		schema:  schema,
		scaler:  scaler,
		entries: entries,
		byID:    byID,
		version: version,
		builtAt: time.Now(),
		skipped: skipped,
	}, nil
}

// Query returns up to k nearest neighbors of the anchor song by
// cosine similarity, descending, ties broken by ascending ID. The
// anchor itself is excluded. k larger than the index clamps to the
// remaining songs.
func (ix *Index) Query(anchorID string, k int) ([]Neighbor, error) {
	i, ok := ix.byID[anchorID]
	if !ok {
		return nil, ErrUnknownSong
	}
	return ix.nearest(ix.entries[i].vec, ix.entries[i].norm, anchorID, k), nil
}

// QueryVector returns up to k nearest neighbors of a raw feature
// vector (schema order, unstandardized). No song is excluded.
func (ix *Index) QueryVector(vec []float64, k int) ([]Neighbor, error) {
	std, err := ix.scaler.Transform(vec)
	if err != nil {
		return nil, err
	}
	return ix.nearest(std, norm(std), "", k), nil
}

// nearest is the shared scan. excludeID is skipped when non-empty.
func (ix *Index) nearest(vec []float64, vecNorm float64, excludeID string, k int) []Neighbor {
	if k <= 0 {
		return nil
	}

	neighbors := make([]Neighbor, 0, len(ix.entries))
	for _, e := range ix.entries {
		if e.id == excludeID {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			ID:         e.id,
			Similarity: cosine(vec, vecNorm, e.vec, e.norm),
		})
	}

	sort.Slice(neighbors, func(a, b int) bool {
		if neighbors[a].Similarity != neighbors[b].Similarity {
			return neighbors[a].Similarity > neighbors[b].Similarity
		}
		return neighbors[a].ID < neighbors[b].ID
	})

	if k < len(neighbors) {
		neighbors = neighbors[:k]
	}
	return neighbors
}

// Contains reports whether the song is in the index.
func (ix *Index) Contains(id string) bool {
	_, ok := ix.byID[id]
	return ok
}

// Size returns the number of indexed songs.
func (ix *Index) Size() int {
	return len(ix.entries)
}

// Skipped returns the number of songs excluded at build time.
func (ix *Index) Skipped() int {
	return ix.skipped
}

// Version returns the monotonic build version.
func (ix *Index) Version() int64 {
	return ix.version
}

// BuiltAt returns when the index was built.
func (ix *Index) BuiltAt() time.Time {
	return ix.builtAt
}

// Schema returns the schema the index was built under.
func (ix *Index) Schema() *Schema {
	return ix.schema
}

// cosine computes cosine similarity with precomputed norms. Zero
// vectors have no direction and score 0 against everything.
func cosine(a []float64, na float64, b []float64, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (na * nb)
}

// norm computes the Euclidean norm.
func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Handle publishes the active index to concurrent readers. Swap
// installs a freshly built index atomically; Load never blocks.
type Handle struct {
	ptr     atomic.Pointer[Index]
	counter atomic.Int64
}

// NewHandle creates an empty handle. Load returns ErrEmptyIndex
// until the first Swap.
func NewHandle() *Handle {
	return &Handle{}
}

// Load returns the active index.
func (h *Handle) Load() (*Index, error) {
	ix := h.ptr.Load()
	if ix == nil {
		return nil, ErrEmptyIndex
	}
	return ix, nil
}

// Swap installs a new index and returns the previous one (nil on
// first install).
func (h *Handle) Swap(ix *Index) *Index {
	return h.ptr.Swap(ix)
}

// NextVersion returns a monotonically increasing build version.
func (h *Handle) NextVersion() int64 {
	return h.counter.Add(1)
}
