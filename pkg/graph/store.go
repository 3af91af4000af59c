package graph

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/soundprediction/percorso/pkg/types"
)

// ErrNodeNotFound is returned when a node ID does not exist in the store.
var ErrNodeNotFound = errors.New("node not found")

// Store defines read access to a knowledge graph. All retrieval-time access
// goes through this interface; implementations must be safe for concurrent
// readers.
type Store interface {
	// Node returns the node with the given ID, or ErrNodeNotFound.
	Node(ctx context.Context, id string) (*types.Node, error)

	// Neighbors returns the outgoing edges of the node with the given ID,
	// sorted by (relation, target ID) so the same snapshot walks the same
	// way on every backend. A node with no outgoing edges yields an empty
	// slice; an unknown ID yields ErrNodeNotFound.
	Neighbors(ctx context.Context, id string) ([]types.Neighbor, error)

	// HasNode reports whether the node exists.
	HasNode(ctx context.Context, id string) (bool, error)

	// FindNodes returns the nodes whose display text equals name after
	// folding case and surrounding whitespace, ordered by node ID. No match
	// yields an empty slice, not an error.
	FindNodes(ctx context.Context, name string) ([]types.Node, error)

	// NodeIDs returns all node IDs in lexicographic order.
	NodeIDs(ctx context.Context) ([]string, error)

	// Stats returns graph-level counts.
	Stats(ctx context.Context) (*Stats, error)
}

// Writer defines the construction-time write surface of a graph store. The
// retrieval engine never writes; only loaders and ingestion tooling do.
type Writer interface {
	// PutNode inserts or replaces a node.
	PutNode(ctx context.Context, node types.Node) error

	// PutEdge inserts or replaces the outgoing edge (relation, target) of
	// the source node. Both endpoints must already exist.
	PutEdge(ctx context.Context, sourceID string, neighbor types.Neighbor) error
}

// StoreWriter combines read and write access, implemented by every store in
// this package.
type StoreWriter interface {
	Store
	Writer
}

// sortNeighbors puts edges in the (relation, target ID) order the Neighbors
// contract promises.
func sortNeighbors(edges []types.Neighbor) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Relation != edges[j].Relation {
			return edges[i].Relation < edges[j].Relation
		}
		return edges[i].TargetID < edges[j].TargetID
	})
}

// Stats holds statistics about the graph.
type Stats struct {
	NodeCount   int64     `json:"node_count"`
	EdgeCount   int64     `json:"edge_count"`
	LastUpdated time.Time `json:"last_updated"`
}
