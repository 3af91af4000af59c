package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBruteIndexQueryOrdering(t *testing.T) {
	ctx := context.Background()
	idx := NewBruteIndex()

	require.NoError(t, idx.Upsert(ctx, []Entry{
		{ID: "east", Vector: []float32{1, 0}},
		{ID: "north", Vector: []float32{0, 1}},
		{ID: "northeast", Vector: []float32{1, 1}},
	}))

	hits, err := idx.Query(ctx, []float32{1, 0.1}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "east", hits[0].ID)
	assert.Equal(t, "northeast", hits[1].ID)
	assert.Equal(t, "north", hits[2].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.Greater(t, hits[1].Score, hits[2].Score)
}

func TestBruteIndexTiesBrokenByID(t *testing.T) {
	ctx := context.Background()
	idx := NewBruteIndex()

	// Insert in an order that differs from the expected tie-break order.
	require.NoError(t, idx.Upsert(ctx, []Entry{
		{ID: "zeta", Vector: []float32{1, 0}},
		{ID: "alpha", Vector: []float32{1, 0}},
		{ID: "mid", Vector: []float32{0, 1}},
	}))

	hits, err := idx.Query(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "alpha", hits[0].ID)
	assert.Equal(t, "zeta", hits[1].ID)
	assert.Equal(t, "mid", hits[2].ID)
}

func TestBruteIndexKLargerThanSize(t *testing.T) {
	ctx := context.Background()
	idx := NewBruteIndex()

	require.NoError(t, idx.Upsert(ctx, []Entry{{ID: "only", Vector: []float32{1}}}))

	hits, err := idx.Query(ctx, []float32{1}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestBruteIndexNonPositiveK(t *testing.T) {
	ctx := context.Background()
	idx := NewBruteIndex()
	require.NoError(t, idx.Upsert(ctx, []Entry{{ID: "a", Vector: []float32{1}}}))

	hits, err := idx.Query(ctx, []float32{1}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBruteIndexUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	idx := NewBruteIndex()

	require.NoError(t, idx.Upsert(ctx, []Entry{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
	}))
	require.NoError(t, idx.Upsert(ctx, []Entry{
		{ID: "a", Vector: []float32{0, 1}},
	}))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	hits, err := idx.Query(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID, "replaced vector wins the tie on ID")
}

func TestBruteIndexRejectsZeroVector(t *testing.T) {
	ctx := context.Background()
	idx := NewBruteIndex()

	err := idx.Upsert(ctx, []Entry{{ID: "bad", Vector: []float32{0, 0}}})
	assert.ErrorIs(t, err, ErrZeroVector)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "failed upsert must not partially apply")
}

func TestBruteIndexZeroQueryVector(t *testing.T) {
	ctx := context.Background()
	idx := NewBruteIndex()
	require.NoError(t, idx.Upsert(ctx, []Entry{{ID: "a", Vector: []float32{1}}}))

	_, err := idx.Query(ctx, []float32{0}, 1)
	assert.ErrorIs(t, err, ErrZeroVector)
}
