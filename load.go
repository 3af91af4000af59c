package percorso

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/soundprediction/percorso/pkg/graph"
	"github.com/soundprediction/percorso/pkg/index"
)

// writer returns the store's write surface, or ErrStoreNotWritable when the
// configured store is read-only.
func (c *Client) writer() (graph.Writer, error) {
	w, ok := c.store.(graph.Writer)
	if !ok {
		return nil, ErrStoreNotWritable
	}
	return w, nil
}

// loadFile opens path and runs the given loader against the store's write
// surface.
func (c *Client) loadFile(ctx context.Context, path string, load func(context.Context, io.Reader, graph.Writer) (*graph.LoadResult, error)) (*graph.LoadResult, error) {
	w, err := c.writer()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening graph file: %w", err)
	}
	defer f.Close()

	result, err := load(ctx, f, w)
	if err != nil {
		return nil, err
	}

	c.logger.Info("graph loaded",
		"path", path,
		"nodes", result.Nodes,
		"edges", result.Edges,
	)
	return result, nil
}

// LoadGraphCSV reads head,relation,tail triple rows from a CSV file into the
// graph store.
func (c *Client) LoadGraphCSV(ctx context.Context, path string) (*graph.LoadResult, error) {
	return c.loadFile(ctx, path, graph.LoadTriplesCSV)
}

// LoadGraphJSON reads a {nodes, edges} document from a JSON file into the
// graph store.
func (c *Client) LoadGraphJSON(ctx context.Context, path string) (*graph.LoadResult, error) {
	return c.loadFile(ctx, path, graph.LoadJSON)
}

// LoadGraphYAML reads a {nodes, edges} document from a YAML file into the
// graph store.
func (c *Client) LoadGraphYAML(ctx context.Context, path string) (*graph.LoadResult, error) {
	return c.loadFile(ctx, path, graph.LoadYAML)
}

// LoadGraphNeo4j streams every relationship of a Neo4j database into the
// graph store.
func (c *Client) LoadGraphNeo4j(ctx context.Context, source graph.Neo4jSource) (*graph.LoadResult, error) {
	w, err := c.writer()
	if err != nil {
		return nil, err
	}

	result, err := graph.LoadNeo4j(ctx, source, w)
	if err != nil {
		return nil, err
	}

	c.logger.Info("graph loaded",
		"uri", source.URI,
		"nodes", result.Nodes,
		"edges", result.Edges,
	)
	return result, nil
}

// IndexNodes embeds the display text of every node in the store and upserts
// the vectors into the similarity index. It returns the number of nodes
// indexed.
func (c *Client) IndexNodes(ctx context.Context) (int, error) {
	indexed, err := index.IndexStore(ctx, c.store, c.embedder, c.index, c.config.IndexBatchSize, c.config.IndexWorkers)
	if err != nil {
		return indexed, err
	}

	c.logger.Info("nodes indexed", "count", indexed)
	return indexed, nil
}

// Stats returns node and edge counts for the graph store.
func (c *Client) Stats(ctx context.Context) (*graph.Stats, error) {
	return c.store.Stats(ctx)
}

// Close closes all underlying clients and stores. Every component is closed
// even when an earlier one fails; the errors are joined.
func (c *Client) Close(ctx context.Context) error {
	var errs []error

	if c.extractor != nil {
		if err := c.extractor.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing extractor: %w", err))
		}
	}
	if c.nlp != nil {
		if err := c.nlp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing reasoning client: %w", err))
		}
	}
	if c.embedder != nil {
		if err := c.embedder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing embedder: %w", err))
		}
	}
	if c.index != nil {
		if err := c.index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing index: %w", err))
		}
	}
	if closer, ok := c.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store: %w", err))
		}
	}

	return errors.Join(errs...)
}
