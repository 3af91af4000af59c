package percorso

import (
	"context"

	"github.com/soundprediction/percorso/pkg/graph"
	"github.com/soundprediction/percorso/pkg/types"
)

// This file defines focused interfaces that follow the Interface Segregation
// Principle. The main Percorso interface is composed from these smaller
// interfaces; consumers should depend on the smallest one that meets their
// needs.

// QuestionAnswerer provides read-only question answering over an already
// loaded and indexed knowledge graph. The HTTP handlers and the batch runner
// depend on this interface.
type QuestionAnswerer interface {
	// Retrieve runs the full search/prune/reason loop for one question.
	Retrieve(ctx context.Context, question string, opts *RetrieveOptions) (*types.RetrievalResult, error)

	// Ask runs Retrieve with the configured defaults and returns only the
	// answer text.
	Ask(ctx context.Context, question string) (string, error)

	// SeedEntities returns the entity surface forms retrieval would anchor
	// on for the question.
	SeedEntities(ctx context.Context, question string) ([]string, error)
}

// GraphLoader provides the construction-time operations that populate the
// graph store and the similarity index. Use this interface for ingestion
// tooling that never answers questions.
type GraphLoader interface {
	// LoadGraphCSV reads head,relation,tail triples from a CSV file.
	LoadGraphCSV(ctx context.Context, path string) (*graph.LoadResult, error)

	// LoadGraphJSON reads a {nodes, edges} document from a JSON file.
	LoadGraphJSON(ctx context.Context, path string) (*graph.LoadResult, error)

	// LoadGraphYAML reads a {nodes, edges} document from a YAML file.
	LoadGraphYAML(ctx context.Context, path string) (*graph.LoadResult, error)

	// LoadGraphNeo4j streams every relationship of a Neo4j database.
	LoadGraphNeo4j(ctx context.Context, source graph.Neo4jSource) (*graph.LoadResult, error)

	// IndexNodes embeds every node display text and fills the similarity
	// index.
	IndexNodes(ctx context.Context) (int, error)
}

// GraphAdmin provides inspection and lifecycle operations.
type GraphAdmin interface {
	// Stats returns node and edge counts for the graph store.
	Stats(ctx context.Context) (*graph.Stats, error)

	// Close closes all underlying clients and stores.
	Close(ctx context.Context) error
}

// Ensure the Percorso interface composes all focused interfaces, and that
// Client satisfies it.
var _ interface {
	QuestionAnswerer
	GraphLoader
	GraphAdmin
} = (Percorso)(nil)

var _ Percorso = (*Client)(nil)
