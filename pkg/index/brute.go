package index

import (
	"context"
	"fmt"
	"sync"
)

// BruteIndex is an in-memory exact-search index. Vectors are normalized at
// insert time so a query is one dot product per entry.
type BruteIndex struct {
	mu      sync.RWMutex
	ids     []string // insertion order, minus replacements
	vectors map[string][]float32
}

// NewBruteIndex returns an empty in-memory index.
func NewBruteIndex() *BruteIndex {
	return &BruteIndex{
		vectors: make(map[string][]float32),
	}
}

// Upsert adds or replaces entries. The vectors are L2-normalized before
// storage; zero-norm vectors are rejected.
func (b *BruteIndex) Upsert(ctx context.Context, entries []Entry) error {
	normalized := make(map[string][]float32, len(entries))
	for _, entry := range entries {
		if entry.ID == "" {
			return fmt.Errorf("index entry has empty id")
		}
		vec, err := Normalize(entry.Vector)
		if err != nil {
			return fmt.Errorf("entry %q: %w", entry.ID, err)
		}
		normalized[entry.ID] = vec
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, entry := range entries {
		if _, exists := b.vectors[entry.ID]; !exists {
			b.ids = append(b.ids, entry.ID)
		}
		b.vectors[entry.ID] = normalized[entry.ID]
	}
	return nil
}

// Query scores every entry against the query vector and returns the top k
// by descending cosine similarity, ties broken by ascending ID.
func (b *BruteIndex) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	query, err := Normalize(vector)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	hits := make([]Hit, 0, len(b.ids))
	for _, id := range b.ids {
		stored := b.vectors[id]
		score, err := Dot(query, stored)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", id, err)
		}
		hits = append(hits, Hit{ID: id, Score: score})
	}

	sortHits(hits)

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of indexed entries.
func (b *BruteIndex) Count(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ids), nil
}

// Close is a no-op for the in-memory index.
func (b *BruteIndex) Close() error { return nil }
