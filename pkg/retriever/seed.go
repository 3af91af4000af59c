package retriever

import (
	"context"

	"github.com/soundprediction/percorso/pkg/index"
)

// extractEntities never fails the call: any extraction problem falls back
// to seeding from the whole query string.
func (r *Retriever) extractEntities(ctx context.Context, query string) []string {
	if r.extractor == nil {
		return nil
	}

	callCtx, cancel := r.phaseCtx(ctx, "seed")
	defer cancel()

	entities, err := r.extractor.Extract(callCtx, query)
	if err != nil {
		r.logger.Warn("entity extraction failed, seeding from the whole query", "error", err)
		return nil
	}
	return entities
}

// seedNodes resolves entity mentions to the starting node set: exact
// identifier and display-name matches first, then nearest neighbors from
// the similarity index, deduplicated first-seen and capped at twice the
// beam width.
func (r *Retriever) seedNodes(ctx context.Context, query string, entities []string, topN int) ([]string, error) {
	if len(entities) == 0 {
		entities = []string{query}
	}

	limit := 2 * topN
	seeds := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		seeds = append(seeds, id)
	}

	// Exact pass. A mention equal to a node identifier, or to a node's
	// display name after case folding, resolves without the index.
	for _, entity := range entities {
		ok, err := r.store.HasNode(ctx, entity)
		if err != nil {
			return nil, unavailable("store", err)
		}
		if ok {
			add(entity)
		}

		matches, err := r.store.FindNodes(ctx, entity)
		if err != nil {
			return nil, unavailable("store", err)
		}
		for _, node := range matches {
			add(node.ID)
		}
	}

	// Similarity pass. Each entity contributes its nearest nodes; the
	// per-entity budget shrinks as the entity count grows, with one extra
	// hit to absorb overlap with the exact pass.
	perEntity := topN / len(entities)
	if perEntity < 1 {
		perEntity = 1
	}
	k := perEntity + 1

	for _, entity := range entities {
		hits, err := r.nearestNodes(ctx, entity, k)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			add(hit.ID)
		}
	}

	if len(seeds) > limit {
		seeds = seeds[:limit]
	}
	return seeds, nil
}

// nearestNodes embeds the text and queries the similarity index for its k
// nearest node identifiers.
func (r *Retriever) nearestNodes(ctx context.Context, text string, k int) ([]index.Hit, error) {
	callCtx, cancel := r.phaseCtx(ctx, "seed")
	defer cancel()

	vector, err := r.embedder.EmbedSingle(callCtx, text)
	if err != nil {
		return nil, unavailable("embedder", err)
	}

	hits, err := r.index.Query(callCtx, vector, k)
	if err != nil {
		return nil, unavailable("index", err)
	}
	return hits, nil
}
