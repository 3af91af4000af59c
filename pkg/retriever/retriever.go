package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundprediction/percorso/pkg/embedder"
	"github.com/soundprediction/percorso/pkg/extract"
	"github.com/soundprediction/percorso/pkg/graph"
	"github.com/soundprediction/percorso/pkg/index"
	"github.com/soundprediction/percorso/pkg/nlp"
	"github.com/soundprediction/percorso/pkg/prompts"
	"github.com/soundprediction/percorso/pkg/types"
)

// Retriever drives the search/prune/reason loop over an injected store,
// similarity index, embedder, and reasoning client. It holds no per-query
// state, so a single Retriever may serve concurrent calls.
type Retriever struct {
	store     graph.Store
	index     index.Index
	embedder  embedder.Client
	client    nlp.Client
	extractor extract.Extractor
	config    Config
	logger    *slog.Logger

	sufficiency prompts.SufficiencyPrompt
	answers     prompts.AnswerPrompt
}

// New wires a Retriever. The extractor may be nil, in which case seeding
// always starts from the whole query string.
func New(store graph.Store, idx index.Index, embed embedder.Client, client nlp.Client, extractor extract.Extractor, cfg Config) (*Retriever, error) {
	if store == nil {
		return nil, fmt.Errorf("retriever requires a graph store")
	}
	if idx == nil {
		return nil, fmt.Errorf("retriever requires a similarity index")
	}
	if embed == nil {
		return nil, fmt.Errorf("retriever requires an embedding client")
	}
	if client == nil {
		return nil, fmt.Errorf("retriever requires a reasoning client")
	}

	return &Retriever{
		store:       store,
		index:       idx,
		embedder:    embed,
		client:      client,
		extractor:   extractor,
		config:      cfg.sanitized(),
		logger:      slog.Default(),
		sufficiency: prompts.NewSufficiencyVersions(),
		answers:     prompts.NewAnswerVersions(),
	}, nil
}

// SetLogger replaces the logger used for search progress and prompt
// debugging. Call it before the first Retrieve.
func (r *Retriever) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Config returns the bounds this retriever applies to every call.
func (r *Retriever) Config() Config {
	return r.config
}

// Retrieve answers one question. Dependency failures surface as a
// RetrievalUnavailableError; extraction and synthesis problems degrade
// locally instead of failing the call.
func (r *Retriever) Retrieve(ctx context.Context, query string) (*types.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.ErrEmptyQuery
	}
	cfg := r.config

	entities := r.extractEntities(ctx, query)
	seeds, err := r.seedNodes(ctx, query, entities, cfg.TopN)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("seeded search",
		"query", query,
		"entities", entities,
		"seeds", seeds,
	)

	paths := make([]types.Path, 0, len(seeds))
	for _, id := range seeds {
		paths = append(paths, types.NewPath(id))
	}

	res := newResolver(r.store)
	result := &types.RetrievalResult{Query: query}

	for depth := 0; depth <= cfg.MaxDepth; depth++ {
		if ctx.Err() != nil {
			return r.bestEffort(ctx, paths, res, result)
		}
		result.Rounds++

		expanded, err := r.expand(ctx, paths)
		if err != nil {
			return nil, err
		}
		paths = expanded

		pruned, err := r.prune(ctx, query, paths, cfg.TopN, res)
		if err != nil {
			var numErr *NumericError
			if errors.As(err, &numErr) {
				return nil, unavailable("embedder", err)
			}
			return nil, err
		}
		paths = pruned

		if ctx.Err() != nil {
			return r.bestEffort(ctx, paths, res, result)
		}
		if err := res.resolve(ctx, paths); err != nil {
			return nil, err
		}

		sufficient, err := r.judgeSufficiency(ctx, query, paths, res)
		if err != nil {
			if cfg.OracleFailure == OracleFailureAbort {
				return nil, unavailable("oracle", err)
			}
			r.logger.Warn("sufficiency check failed, treating round as insufficient",
				"depth", depth,
				"error", err,
			)
			continue
		}
		if sufficient {
			result.Sufficient = true
			break
		}
		r.logger.Debug("evidence insufficient, descending", "depth", depth, "paths", len(paths))
	}

	answer, provenance := r.generate(ctx, query, paths, cfg.Synthesize, res)
	result.Answer = answer
	result.Provenance = provenance
	result.Paths = paths
	return result, nil
}

// bestEffort finishes a cancelled call from whatever evidence the loop has
// gathered. With no triples there is nothing to answer from, so the
// cancellation surfaces instead.
func (r *Retriever) bestEffort(ctx context.Context, paths []types.Path, res *resolver, result *types.RetrievalResult) (*types.RetrievalResult, error) {
	triples := flattenTriples(paths, res.display)
	if len(triples) == 0 {
		return nil, ctx.Err()
	}

	r.logger.Warn("retrieval cancelled, answering from gathered evidence",
		"rounds", result.Rounds,
		"triples", len(triples),
	)
	result.Answer, result.Provenance = fallbackAnswer(triples)
	result.Paths = paths
	return result, nil
}

// phaseCtx tags downstream calls with the retrieval phase that issued them
// and applies the per-call timeout.
func (r *Retriever) phaseCtx(ctx context.Context, op string) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, types.ContextKeyOperation, op)
	if r.config.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.config.CallTimeout)
}

// resolver caches node display texts for one retrieval call so repeated
// renders across rounds hit the store once per node.
type resolver struct {
	store graph.Store
	texts map[string]string
}

func newResolver(store graph.Store) *resolver {
	return &resolver{store: store, texts: make(map[string]string)}
}

// resolve loads display texts for every node on the given paths. A node
// missing from the snapshot keeps its identifier as its text.
func (r *resolver) resolve(ctx context.Context, paths []types.Path) error {
	for _, p := range paths {
		for _, id := range p.Nodes() {
			if _, ok := r.texts[id]; ok {
				continue
			}
			node, err := r.store.Node(ctx, id)
			if err != nil {
				if errors.Is(err, graph.ErrNodeNotFound) {
					r.texts[id] = id
					continue
				}
				return unavailable("store", err)
			}
			r.texts[id] = node.DisplayText()
		}
	}
	return nil
}

// display maps a node identifier to its cached display text, falling back
// to the identifier itself.
func (r *resolver) display(id string) string {
	if text, ok := r.texts[id]; ok {
		return text
	}
	return id
}

// flattenTriples collects the hop windows of every path, paths in their
// current order. The same windows feed the oracle, the synthesizer, and
// the provenance list.
func flattenTriples(paths []types.Path, display func(string) string) []types.Triple {
	var triples []types.Triple
	for _, p := range paths {
		triples = append(triples, p.Triples(display)...)
	}
	return triples
}
