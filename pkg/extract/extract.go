package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundprediction/percorso/pkg/config"
	"github.com/soundprediction/percorso/pkg/nlp"
)

// Extractor identifies the topic entities of a question. Implementations
// return entity surface forms ordered most central first, without
// duplicates. An empty slice means the question names no entities and is
// not an error.
type Extractor interface {
	Extract(ctx context.Context, question string) ([]string, error)

	// Close releases any models or connections held by the extractor.
	Close() error
}

// New builds an Extractor from configuration. The llm provider requires a
// chat client; gliner and rustbert load local models and ignore it.
func New(cfg config.ExtractorConfig, client nlp.Client) (Extractor, error) {
	switch cfg.Provider {
	case "", "llm":
		if client == nil {
			return nil, fmt.Errorf("llm extractor requires a chat client")
		}
		return NewLLMExtractor(client, cfg.Labels), nil
	case "gliner":
		return NewGlinerExtractor(cfg.Model, cfg.Labels)
	case "rustbert":
		return NewRustBertExtractor(cfg.Model)
	case "remote":
		return NewRemoteExtractor(cfg.Endpoint, cfg.APIKey, cfg.Labels, cfg.Threshold)
	default:
		return nil, fmt.Errorf("unknown extractor provider %q", cfg.Provider)
	}
}

// dedupeEntities drops blank strings and duplicates while preserving order.
// Duplicates are detected after folding case and surrounding whitespace;
// the first surface form wins.
func dedupeEntities(entities []string) []string {
	seen := make(map[string]struct{}, len(entities))
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		key := strings.ToLower(strings.TrimSpace(e))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(e))
	}
	return out
}
