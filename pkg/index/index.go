package index

import (
	"context"
	"sort"
)

// Entry is one indexed node: its graph ID, display name and the embedding
// of its display text.
type Entry struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Vector []float32 `json:"vector"`
}

// Hit is one similarity match. Score is cosine similarity in [-1, 1],
// higher is closer.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Index answers top-k nearest-node queries over embedding vectors.
// Implementations must be safe for concurrent use.
type Index interface {
	// Upsert adds or replaces entries keyed by node ID. Entries with a
	// zero-norm vector are rejected.
	Upsert(ctx context.Context, entries []Entry) error

	// Query returns up to k hits ordered by descending score. Ties are
	// broken by ascending node ID so results are deterministic.
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)

	// Count returns the number of indexed entries.
	Count(ctx context.Context) (int, error)

	Close() error
}

// sortHits puts hits in the order the Query contract promises: descending
// score, ties broken by ascending node ID.
func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
}
