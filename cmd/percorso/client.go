package percorso

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/soundprediction/percorso"
	"github.com/soundprediction/percorso/pkg/alert"
	"github.com/soundprediction/percorso/pkg/config"
	"github.com/soundprediction/percorso/pkg/embedder"
	"github.com/soundprediction/percorso/pkg/extract"
	"github.com/soundprediction/percorso/pkg/graph"
	"github.com/soundprediction/percorso/pkg/index"
	percorsoLogger "github.com/soundprediction/percorso/pkg/logger"
	"github.com/soundprediction/percorso/pkg/nlp"
	"github.com/soundprediction/percorso/pkg/retriever"
	"github.com/soundprediction/percorso/pkg/telemetry"
)

// parseLevel maps a config log level string to a slog level.
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the process logger: a color handler on stderr, wrapped
// with the Parquet telemetry mirror when a telemetry path is configured.
func newLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler = percorsoLogger.NewColorHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.Log.Level),
	})

	if cfg.Telemetry.ParquetPath != "" {
		if err := os.MkdirAll(cfg.Telemetry.ParquetPath, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot create telemetry directory: %v\n", err)
		} else if parquetHandler, err := telemetry.NewParquetHandler(handler, cfg.Telemetry.ParquetPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error tracking disabled: %v\n", err)
		} else {
			handler = parquetHandler
		}
	}

	return slog.New(handler)
}

// buildStore opens the configured graph store.
func buildStore(cfg *config.Config) (graph.Store, error) {
	switch cfg.Graph.Driver {
	case "memory", "":
		return graph.NewMemoryStore(), nil
	case "badger":
		store, err := graph.NewBadgerStore(cfg.Graph.URI)
		if err != nil {
			return nil, fmt.Errorf("opening badger store: %w", err)
		}
		return store, nil
	case "ladybug":
		store, err := graph.NewLadybugStore(cfg.Graph.URI)
		if err != nil {
			return nil, fmt.Errorf("opening ladybug store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported graph driver: %s (neo4j is a load source, use \"percorso load --from neo4j\")", cfg.Graph.Driver)
	}
}

// buildIndex constructs the configured similarity index.
func buildIndex(cfg *config.Config) (index.Index, error) {
	switch cfg.Index.Provider {
	case "memory", "":
		return index.NewBruteIndex(), nil
	case "weaviate":
		idx, err := index.NewWeaviateIndex(cfg.Index.Host, cfg.Index.Scheme, cfg.Index.Class)
		if err != nil {
			return nil, fmt.Errorf("connecting to weaviate: %w", err)
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported index provider: %s", cfg.Index.Provider)
	}
}

// buildEmbedder constructs the configured embedding client.
func buildEmbedder(cfg *config.Config) (embedder.Client, error) {
	embedderConfig := embedder.Config{
		Model:      cfg.Embedding.Model,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
	}

	switch cfg.Embedding.Provider {
	case "openai":
		if cfg.Embedding.APIKey == "" {
			return nil, fmt.Errorf("embedding provider %q requires an API key", cfg.Embedding.Provider)
		}
		return embedder.NewOpenAIEmbedder(cfg.Embedding.APIKey, embedderConfig), nil
	case "embedeverything", "":
		client, err := embedder.NewEmbedEverythingClient(embedderConfig)
		if err != nil {
			return nil, fmt.Errorf("loading local embedding model: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

// buildNLP constructs the reasoning client with its decorator chain: retry,
// then the circuit breaker when enabled, then token tracking when telemetry
// is configured.
func buildNLP(cfg *config.Config, logger *slog.Logger) (nlp.Client, error) {
	defaultModel := cfg.NLP.Models["default"]
	if defaultModel.Provider != "openai" && defaultModel.Provider != "" {
		return nil, fmt.Errorf("unsupported NLP provider: %s", defaultModel.Provider)
	}

	// Some OpenAI-compatible services require a non-empty key.
	apiKey := defaultModel.APIKey
	if apiKey == "" && defaultModel.BaseURL != "" {
		apiKey = "dummy"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("NLP model %q requires an API key or base URL", defaultModel.Model)
	}

	nlpConfig := nlp.Config{
		Model:       defaultModel.Model,
		Temperature: &defaultModel.Temperature,
		BaseURL:     defaultModel.BaseURL,
	}
	if defaultModel.MaxTokens > 0 {
		nlpConfig.MaxTokens = &defaultModel.MaxTokens
	}

	base, err := nlp.NewOpenAIClient(apiKey, nlpConfig)
	if err != nil {
		return nil, fmt.Errorf("creating NLP client: %w", err)
	}

	var client nlp.Client = nlp.NewRetryClient(base, nlp.DefaultRetryConfig())

	if cfg.CircuitBreaker.Enabled {
		client = nlp.NewCircuitBreakerClient(client, cfg.CircuitBreaker, alert.New(cfg.Alert), "nlp")
	}

	if cfg.Telemetry.ParquetPath != "" {
		tracker, err := nlp.NewTokenTracker(cfg.Telemetry.ParquetPath)
		if err != nil {
			logger.Warn("token tracking disabled", "error", err)
		} else {
			client = nlp.NewTokenTrackingClient(client, tracker)
			logger.Info("token tracking enabled", "path", cfg.Telemetry.ParquetPath)
		}
	}

	return client, nil
}

// retrievalConfig maps the file/env retrieval section onto retriever bounds.
func retrievalConfig(cfg *config.Config) retriever.Config {
	rc := retriever.DefaultConfig()
	if cfg.Retrieval.MaxDepth >= 0 {
		rc.MaxDepth = cfg.Retrieval.MaxDepth
	}
	if cfg.Retrieval.TopN > 0 {
		rc.TopN = cfg.Retrieval.TopN
	}
	rc.CallTimeout = time.Duration(cfg.Retrieval.CallTimeout) * time.Second
	rc.Synthesize = cfg.Retrieval.Synthesize
	if cfg.Retrieval.OracleFailure != "" {
		rc.OracleFailure = retriever.OracleFailurePolicy(cfg.Retrieval.OracleFailure)
	}
	return rc
}

// initializeClient assembles the full facade from configuration: store,
// index, embedder, reasoning client and extractor.
func initializeClient(cfg *config.Config) (*percorso.Client, *slog.Logger, error) {
	logger := newLogger(cfg)

	store, err := buildStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	idx, err := buildIndex(cfg)
	if err != nil {
		return nil, nil, err
	}

	embedClient, err := buildEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}

	nlpClient, err := buildNLP(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	extractor, err := extract.New(cfg.Extractor, nlpClient)
	if err != nil {
		return nil, nil, fmt.Errorf("creating entity extractor: %w", err)
	}

	client, err := percorso.NewClient(store, idx, embedClient, nlpClient, extractor, &percorso.Config{
		Retrieval: retrievalConfig(cfg),
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating percorso client: %w", err)
	}

	logger.Info("percorso initialized",
		"graph", cfg.Graph.Driver,
		"index", cfg.Index.Provider,
		"nlp_model", cfg.NLP.Models["default"].Model,
		"embedding", cfg.Embedding.Provider,
	)
	return client, logger, nil
}
