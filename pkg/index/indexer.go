package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/soundprediction/percorso/pkg/embedder"
	"github.com/soundprediction/percorso/pkg/graph"
	"github.com/soundprediction/percorso/pkg/utils"
)

const defaultIndexBatchSize = 64

// IndexStore embeds the display text of every node in store and writes the
// vectors to idx. Batches run concurrently, bounded by workers; a
// non-positive bound falls back to utils.DefaultConcurrency. It returns the
// number of nodes indexed.
func IndexStore(ctx context.Context, store graph.Store, embed embedder.Client, idx Index, batchSize, workers int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultIndexBatchSize
	}

	ids, err := store.NodeIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list nodes: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var indexed atomic.Int64

	batches := utils.Batch(ids, batchSize)
	jobs := make([]func() error, len(batches))
	for i, batch := range batches {
		batch := batch
		jobs[i] = func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := indexBatch(ctx, store, embed, idx, batch)
			if err != nil {
				return err
			}
			indexed.Add(int64(n))
			return nil
		}
	}

	executor := utils.NewConcurrentExecutor(workers)
	if err := errors.Join(executor.Execute(ctx, jobs...)...); err != nil {
		return int(indexed.Load()), err
	}
	return int(indexed.Load()), nil
}

func indexBatch(ctx context.Context, store graph.Store, embed embedder.Client, idx Index, batch []string) (int, error) {
	texts := make([]string, len(batch))
	for j, id := range batch {
		node, err := store.Node(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("failed to load node %q: %w", id, err)
		}
		texts[j] = node.DisplayText()
	}

	vectors, err := embed.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed batch: %w", err)
	}
	if len(vectors) != len(batch) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
	}

	entries := make([]Entry, len(batch))
	for j, id := range batch {
		entries[j] = Entry{ID: id, Name: texts[j], Vector: vectors[j]}
	}
	if err := idx.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("failed to index batch: %w", err)
	}

	slog.Debug("indexed batch", "count", len(entries))
	return len(entries), nil
}
