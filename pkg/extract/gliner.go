package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/soundprediction/go-gline-rs/pkg/gline"
)

// defaultSpanLabels are the entity types used when the configuration names
// none. Span models need at least one label to predict against.
var defaultSpanLabels = []string{"person", "organization", "location", "event", "concept"}

// GlinerExtractor finds entity mentions with a local GLiNER span model.
type GlinerExtractor struct {
	model  *gline.Model
	labels []string
	mu     sync.Mutex
}

// NewGlinerExtractor loads a GLiNER span model. modelID may be a local
// directory holding model.onnx and tokenizer.json, or a HuggingFace model
// ID to download.
func NewGlinerExtractor(modelID string, labels []string) (*GlinerExtractor, error) {
	if err := gline.Init(); err != nil {
		return nil, fmt.Errorf("failed to init gline: %w", err)
	}

	if len(labels) == 0 {
		labels = defaultSpanLabels
	}

	if _, err := os.Stat(modelID); err == nil {
		modelPath := filepath.Join(modelID, "model.onnx")
		tokPath := filepath.Join(modelID, "tokenizer.json")
		m, err := gline.NewSpanModel(modelPath, tokPath)
		if err != nil {
			return nil, err
		}
		return &GlinerExtractor{model: m, labels: labels}, nil
	}

	m, err := gline.NewSpanModelFromHF(modelID)
	if err != nil {
		return nil, err
	}
	return &GlinerExtractor{model: m, labels: labels}, nil
}

// Extract runs span prediction over the question and returns the mention
// texts ordered by model confidence.
func (e *GlinerExtractor) Extract(ctx context.Context, question string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return nil, fmt.Errorf("span model not loaded")
	}

	results, err := e.model.Predict([]string{question}, e.labels)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []string{}, nil
	}

	spans := results[0]
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Probability > spans[j].Probability
	})

	entities := make([]string, 0, len(spans))
	for _, s := range spans {
		entities = append(entities, s.Text)
	}
	return dedupeEntities(entities), nil
}

// Close releases the ONNX model.
func (e *GlinerExtractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model != nil {
		e.model.Close()
		e.model = nil
	}
	return nil
}
