package embedder

import (
	"context"

	"github.com/soundprediction/percorso/pkg/nlp"
)

// Client defines the interface for text embedding operations.
type Client interface {
	// Embed generates embeddings for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the number of dimensions in the embeddings.
	Dimensions() int

	// GetCapabilities returns the list of capabilities supported by this client.
	GetCapabilities() []nlp.TaskCapability

	// Close cleans up any resources.
	Close() error
}

// Config holds configuration for embedding clients.
type Config struct {
	// Model is the embedding model to use.
	Model string `json:"model,omitempty"`

	// BaseURL is a custom base URL for OpenAI-compatible embedding services.
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions overrides the embedding dimensionality. When zero, the
	// model's known default is used.
	Dimensions int `json:"dimensions,omitempty"`

	// BatchSize is the maximum number of texts per request (default: 100).
	BatchSize int `json:"batch_size,omitempty"`
}

// modelDimensions maps known embedding models to their output dimensionality.
var modelDimensions = map[string]int{
	"text-embedding-ada-002": 1536,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"all-MiniLM-L6-v2":       384,
}

// dimensionsForModel resolves the embedding dimensionality for a model,
// preferring an explicit override.
func dimensionsForModel(model string, override int) int {
	if override > 0 {
		return override
	}
	if dims, ok := modelDimensions[model]; ok {
		return dims
	}
	return 1536
}
