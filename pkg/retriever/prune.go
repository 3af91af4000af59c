package retriever

import (
	"context"
	"fmt"
	"sort"

	"github.com/soundprediction/percorso/pkg/index"
	"github.com/soundprediction/percorso/pkg/types"
)

// prune keeps the topN candidates most similar to the query, scored by
// cosine similarity between the query embedding and each path's rendered
// text embedding. It returns its input unchanged when the candidate set
// already fits the beam.
func (r *Retriever) prune(ctx context.Context, query string, paths []types.Path, topN int, res *resolver) ([]types.Path, error) {
	if len(paths) <= topN {
		return paths, nil
	}

	if err := res.resolve(ctx, paths); err != nil {
		return nil, err
	}

	// One batched embedder call covers the query and every candidate.
	texts := make([]string, 0, len(paths)+1)
	texts = append(texts, query)
	for _, p := range paths {
		texts = append(texts, p.Render(res.display))
	}

	callCtx, cancel := r.phaseCtx(ctx, "prune")
	defer cancel()
	vectors, err := r.embedder.Embed(callCtx, texts)
	if err != nil {
		return nil, unavailable("embedder", err)
	}
	if len(vectors) != len(texts) {
		return nil, unavailable("embedder", fmt.Errorf("got %d vectors for %d texts", len(vectors), len(texts)))
	}

	queryVector, err := index.Normalize(vectors[0])
	if err != nil {
		return nil, &NumericError{Op: "normalizing query embedding", Err: err}
	}

	scores := make([]float64, len(paths))
	for i := range paths {
		pathVector, err := index.Normalize(vectors[i+1])
		if err != nil {
			return nil, &NumericError{Op: fmt.Sprintf("normalizing embedding of path %d", i), Err: err}
		}
		score, err := index.Dot(queryVector, pathVector)
		if err != nil {
			return nil, &NumericError{Op: fmt.Sprintf("scoring path %d", i), Err: err}
		}
		scores[i] = score
	}

	// Stable sort keeps the original order among equal scores, so the
	// beam is deterministic for a deterministic embedder.
	order := make([]int, len(paths))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	kept := make([]types.Path, 0, topN)
	for _, i := range order[:topN] {
		kept = append(kept, paths[i])
	}
	return kept, nil
}
