package retriever

import (
	"context"
	"errors"

	"github.com/soundprediction/percorso/pkg/graph"
	"github.com/soundprediction/percorso/pkg/types"
)

// expand grows every path by one hop along its tail's unvisited outgoing
// edges. A path whose tail has no unvisited neighbor survives unchanged,
// preserving dead-end evidence. Stores return neighbors in a stable order,
// so the output is deterministic for a fixed graph snapshot.
func (r *Retriever) expand(ctx context.Context, paths []types.Path) ([]types.Path, error) {
	out := make([]types.Path, 0, len(paths))
	for _, path := range paths {
		neighbors, err := r.store.Neighbors(ctx, path.Tail())
		if err != nil {
			if errors.Is(err, graph.ErrNodeNotFound) {
				// A seed from a stale index entry has no place to go;
				// keep it as a dead end rather than failing the call.
				out = append(out, path)
				continue
			}
			return nil, unavailable("store", err)
		}

		grown := false
		for _, n := range neighbors {
			if path.ContainsNode(n.TargetID) {
				continue
			}
			out = append(out, path.Extend(n.Relation, n.TargetID))
			grown = true
		}
		if !grown {
			out = append(out, path)
		}
	}
	return out, nil
}
