package percorso

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundprediction/percorso/pkg/retriever"
	"github.com/soundprediction/percorso/pkg/types"
)

// Retrieve runs the bounded search loop for one question. When opts is nil
// the client's configured bounds apply; otherwise a retriever with the
// overridden bounds is assembled for this call only.
func (c *Client) Retrieve(ctx context.Context, question string, opts *RetrieveOptions) (*types.RetrievalResult, error) {
	retr := c.retriever
	if opts != nil {
		override, err := c.retrieverFor(opts)
		if err != nil {
			return nil, err
		}
		retr = override
	}
	return retr.Retrieve(ctx, question)
}

// Ask answers a question with the configured defaults and returns only the
// answer text.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	result, err := c.Retrieve(ctx, question, nil)
	if err != nil {
		return "", err
	}
	return result.Answer, nil
}

// SeedEntities reports the entity surface forms a Retrieve call would anchor
// its seeding on. It applies the same fallbacks the search loop applies: an
// extraction failure or an empty extraction yields the whole question.
func (c *Client) SeedEntities(ctx context.Context, question string) ([]string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuery
	}

	if c.extractor == nil {
		return []string{question}, nil
	}

	entities, err := c.extractor.Extract(ctx, question)
	if err != nil {
		c.logger.Warn("entity extraction failed, seeding from the whole question",
			"error", err,
		)
		return []string{question}, nil
	}
	if len(entities) == 0 {
		return []string{question}, nil
	}
	return entities, nil
}

// retrieverFor assembles a retriever whose bounds are the client's defaults
// with the given overrides applied.
func (c *Client) retrieverFor(opts *RetrieveOptions) (*retriever.Retriever, error) {
	cfg := c.config.Retrieval
	if opts.MaxDepth != nil {
		cfg.MaxDepth = *opts.MaxDepth
	}
	if opts.TopN != nil {
		cfg.TopN = *opts.TopN
	}
	if opts.Synthesize != nil {
		cfg.Synthesize = *opts.Synthesize
	}

	retr, err := retriever.New(c.store, c.index, c.embedder, c.nlp, c.extractor, cfg)
	if err != nil {
		return nil, fmt.Errorf("applying retrieve options: %w", err)
	}
	retr.SetLogger(c.logger)
	return retr, nil
}
