package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/percorso/pkg/nlp"
	"github.com/soundprediction/percorso/pkg/prompts"
)

// LLMExtractor prompts a chat model for the topic entities of a question.
type LLMExtractor struct {
	client   nlp.Client
	versions prompts.EntityExtractionPrompt
	labels   []string
	logger   *slog.Logger
}

// NewLLMExtractor creates an extractor backed by a chat model. labels may
// be nil; when present they appear in the prompt as a hint.
func NewLLMExtractor(client nlp.Client, labels []string) *LLMExtractor {
	return &LLMExtractor{
		client:   client,
		versions: prompts.NewEntityExtractionVersions(),
		labels:   labels,
		logger:   slog.Default(),
	}
}

// SetLogger replaces the logger used for prompt debugging.
func (e *LLMExtractor) SetLogger(l *slog.Logger) {
	e.logger = l
}

// Extract asks the model for the entities of the question and decodes its
// JSON reply leniently. A reply that defeats even the lenient decoder
// yields an empty entity set, not an error; only prompt construction and
// transport problems fail the call.
func (e *LLMExtractor) Extract(ctx context.Context, question string) ([]string, error) {
	messages, err := e.versions.Extract().Call(map[string]interface{}{
		"question": question,
		"labels":   e.labels,
		"logger":   e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building extraction prompt: %w", err)
	}

	resp, err := e.client.ChatWithStructuredOutput(ctx, messages, prompts.ExtractedEntities{})
	if err != nil {
		return nil, fmt.Errorf("entity extraction call failed: %w", err)
	}

	var extracted prompts.ExtractedEntities
	if err := nlp.UnmarshalLenient(resp.Content, &extracted); err != nil {
		e.logger.Warn("extraction response not decodable, returning no entities",
			"error", err,
		)
		return []string{}, nil
	}

	return dedupeEntities(extracted.Entities), nil
}

// Close is a no-op; the chat client is owned by the caller.
func (e *LLMExtractor) Close() error { return nil }
