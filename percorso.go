package percorso

import (
	"context"
	"errors"
	"log/slog"

	"github.com/soundprediction/percorso/pkg/embedder"
	"github.com/soundprediction/percorso/pkg/extract"
	"github.com/soundprediction/percorso/pkg/graph"
	"github.com/soundprediction/percorso/pkg/index"
	"github.com/soundprediction/percorso/pkg/nlp"
	"github.com/soundprediction/percorso/pkg/retriever"
	"github.com/soundprediction/percorso/pkg/types"
)

// Percorso is the main interface for answering questions over a knowledge
// graph. It bundles the bounded search loop with the loading and indexing
// operations needed to stand a graph up in the first place.
type Percorso interface {
	// Retrieve runs the full search/prune/reason loop for one question and
	// returns the answer together with its provenance, the surviving
	// reasoning paths, and the round count. Options may be nil.
	Retrieve(ctx context.Context, question string, opts *RetrieveOptions) (*types.RetrievalResult, error)

	// Ask runs Retrieve with the configured defaults and returns only the
	// answer text.
	Ask(ctx context.Context, question string) (string, error)

	// SeedEntities returns the entity surface forms retrieval would anchor
	// on for the question, including the whole-question fallback when
	// extraction finds nothing.
	SeedEntities(ctx context.Context, question string) ([]string, error)

	// LoadGraphCSV reads head,relation,tail triples from a CSV file into
	// the graph store.
	LoadGraphCSV(ctx context.Context, path string) (*graph.LoadResult, error)

	// LoadGraphJSON reads a {nodes, edges} document from a JSON file into
	// the graph store.
	LoadGraphJSON(ctx context.Context, path string) (*graph.LoadResult, error)

	// LoadGraphYAML reads a {nodes, edges} document from a YAML file into
	// the graph store.
	LoadGraphYAML(ctx context.Context, path string) (*graph.LoadResult, error)

	// LoadGraphNeo4j streams every relationship of a Neo4j database into
	// the graph store.
	LoadGraphNeo4j(ctx context.Context, source graph.Neo4jSource) (*graph.LoadResult, error)

	// IndexNodes embeds the display text of every node in the store and
	// upserts the vectors into the similarity index. It returns the number
	// of nodes indexed.
	IndexNodes(ctx context.Context) (int, error)

	// Stats returns node and edge counts for the graph store.
	Stats(ctx context.Context) (*graph.Stats, error)

	// Close closes all underlying clients and stores.
	Close(ctx context.Context) error
}

// Client is the main implementation of the Percorso interface.
type Client struct {
	store     graph.Store
	index     index.Index
	embedder  embedder.Client
	nlp       nlp.Client
	extractor extract.Extractor
	retriever *retriever.Retriever
	config    *Config
	logger    *slog.Logger
}

// Config holds configuration for the Percorso client.
type Config struct {
	// Retrieval bounds every Retrieve call unless overridden per call.
	Retrieval retriever.Config
	// IndexBatchSize is the embedding batch size used by IndexNodes.
	// Zero selects the package default.
	IndexBatchSize int
	// IndexWorkers bounds the concurrent embedding batches during
	// IndexNodes. Zero selects the package default.
	IndexWorkers int
}

// RetrieveOptions overrides the configured retrieval bounds for a single
// call. Nil fields keep the configured value.
type RetrieveOptions struct {
	// MaxDepth overrides the hop budget. Zero is a valid override and
	// limits the search to the seed round.
	MaxDepth *int
	// TopN overrides the beam width.
	TopN *int
	// Synthesize overrides whether the answer is composed by the reasoning
	// client or assembled from the raw triples.
	Synthesize *bool
}

// NewClient creates a new Percorso client from its components. The store,
// index, embedder, and reasoning client are required. A nil extractor
// defaults to LLM-based entity extraction over the reasoning client; a nil
// config takes every retrieval default; a nil logger falls back to
// slog.Default.
func NewClient(store graph.Store, idx index.Index, embed embedder.Client, nlpClient nlp.Client, extractor extract.Extractor, config *Config, logger *slog.Logger) (*Client, error) {
	if config == nil {
		config = &Config{Retrieval: retriever.DefaultConfig()}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil && nlpClient != nil {
		extractor = extract.NewLLMExtractor(nlpClient, nil)
	}

	retr, err := retriever.New(store, idx, embed, nlpClient, extractor, config.Retrieval)
	if err != nil {
		return nil, err
	}
	retr.SetLogger(logger)

	return &Client{
		store:     store,
		index:     idx,
		embedder:  embed,
		nlp:       nlpClient,
		extractor: extractor,
		retriever: retr,
		config:    config,
		logger:    logger,
	}, nil
}

// GetStore returns the underlying graph store.
func (c *Client) GetStore() graph.Store {
	return c.store
}

// GetIndex returns the similarity index.
func (c *Client) GetIndex() index.Index {
	return c.index
}

// GetNLP returns the reasoning client.
func (c *Client) GetNLP() nlp.Client {
	return c.nlp
}

// GetEmbedder returns the embedder client.
func (c *Client) GetEmbedder() embedder.Client {
	return c.embedder
}

// GetExtractor returns the entity extractor.
func (c *Client) GetExtractor() extract.Extractor {
	return c.extractor
}

var (
	// ErrNodeNotFound is returned when a node is not found.
	ErrNodeNotFound = graph.ErrNodeNotFound
	// ErrEmptyQuery is returned when a question is blank.
	ErrEmptyQuery = types.ErrEmptyQuery
	// ErrStoreNotWritable is returned when a load operation targets a
	// store without a write surface.
	ErrStoreNotWritable = errors.New("graph store is not writable")
)
