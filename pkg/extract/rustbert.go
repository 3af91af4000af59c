package extract

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/soundprediction/go-rust-bert/pkg/rustbert"
)

// RustBertExtractor finds entity mentions with a BERT-based named entity
// recognizer. The model loads lazily on the first Extract call.
type RustBertExtractor struct {
	modelID string
	model   *rustbert.NERModel
	mu      sync.Mutex
}

// NewRustBertExtractor creates a NER-backed extractor. An empty modelID
// selects the default CoNLL03 BERT model; otherwise artifacts for the given
// HuggingFace model ID are downloaded on first use.
func NewRustBertExtractor(modelID string) (*RustBertExtractor, error) {
	return &RustBertExtractor{modelID: modelID}, nil
}

func (e *RustBertExtractor) load() error {
	if e.model != nil {
		return nil
	}

	if e.modelID != "" {
		modelPath, configPath, vocabPath, mergesPath, err := rustbert.DownloadArtifacts(e.modelID, "")
		if err != nil {
			return fmt.Errorf("failed to download artifacts for %s: %w", e.modelID, err)
		}
		m, err := rustbert.NewNERModelFromFiles(modelPath, configPath, vocabPath, mergesPath, rustbert.ModelTypeBert)
		if err != nil {
			return fmt.Errorf("failed to create NER model: %w", err)
		}
		e.model = m
		return nil
	}

	m, err := rustbert.NewNERModel()
	if err != nil {
		return fmt.Errorf("failed to create NER model: %w", err)
	}
	e.model = m
	return nil
}

// Extract runs NER over the question. Token labels carry IOB prefixes, so
// an I- continuation extends the preceding mention instead of starting a
// new one.
func (e *RustBertExtractor) Extract(ctx context.Context, question string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.load(); err != nil {
		return nil, err
	}

	results, err := e.model.Predict(question)
	if err != nil {
		return nil, fmt.Errorf("NER prediction failed: %w", err)
	}

	var entities []string
	for _, r := range results {
		if r.Label == "O" || r.Label == "" {
			continue
		}
		if strings.HasPrefix(r.Label, "I-") && len(entities) > 0 {
			entities[len(entities)-1] += " " + r.Word
			continue
		}
		entities = append(entities, r.Word)
	}
	return dedupeEntities(entities), nil
}

// Close releases the NER model.
func (e *RustBertExtractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model != nil {
		e.model.Close()
		e.model = nil
	}
	return nil
}
