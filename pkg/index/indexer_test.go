package index

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/soundprediction/percorso/pkg/graph"
	"github.com/soundprediction/percorso/pkg/nlp"
	"github.com/soundprediction/percorso/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns canned vectors keyed by input text. Batches are
// embedded concurrently, so the call counter is atomic.
type stubEmbedder struct {
	vectors map[string][]float32
	calls   atomic.Int32
	err     error
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := s.vectors[text]
		if !ok {
			vec = []float32{1, 0, 0}
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }

func (s *stubEmbedder) GetCapabilities() []nlp.TaskCapability {
	return []nlp.TaskCapability{nlp.TaskEmbedding}
}

func (s *stubEmbedder) Close() error { return nil }

func seedStore(t *testing.T) *graph.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := graph.NewMemoryStore()
	require.NoError(t, store.PutNode(ctx, types.Node{ID: "q1", Name: "Rome"}))
	require.NoError(t, store.PutNode(ctx, types.Node{ID: "q2", Name: "Paris"}))
	require.NoError(t, store.PutNode(ctx, types.Node{ID: "q3", Name: "Tiber"}))
	return store
}

func TestIndexStore(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	embed := &stubEmbedder{vectors: map[string][]float32{
		"Rome":  {1, 0, 0},
		"Paris": {0, 1, 0},
		"Tiber": {0.9, 0.1, 0},
	}}
	idx := NewBruteIndex()

	indexed, err := IndexStore(ctx, store, embed, idx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, indexed)
	assert.Equal(t, int32(2), embed.calls.Load(), "three nodes at batch size two is two batches")

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Display text, not node ID, is what gets embedded.
	hits, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "q1", hits[0].ID)
	assert.Equal(t, "q3", hits[1].ID)
}

func TestIndexStoreEmbedderFailure(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	embed := &stubEmbedder{err: errors.New("embedding service down")}
	idx := NewBruteIndex()

	_, err := IndexStore(ctx, store, embed, idx, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed batch")
}

func TestIndexStoreEmptyGraph(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	embed := &stubEmbedder{}
	idx := NewBruteIndex()

	indexed, err := IndexStore(ctx, store, embed, idx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, indexed)
	assert.Equal(t, int32(0), embed.calls.Load())
}

func TestIndexStoreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := seedStore(t)
	embed := &stubEmbedder{}
	idx := NewBruteIndex()

	_, err := IndexStore(ctx, store, embed, idx, 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
