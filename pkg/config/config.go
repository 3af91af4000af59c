package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Graph store configuration
	Graph GraphConfig `mapstructure:"graph"`

	// Similarity index configuration
	Index IndexConfig `mapstructure:"index"`

	// NLP configuration
	NLP NLPConfig `mapstructure:"nlp"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Entity extractor configuration
	Extractor ExtractorConfig `mapstructure:"extractor"`

	// Retrieval configuration
	Retrieval RetrievalConfig `mapstructure:"retrieval"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// GraphConfig holds graph store configuration
type GraphConfig struct {
	Driver   string `mapstructure:"driver"` // memory, badger, ladybug, neo4j
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// IndexConfig holds similarity index configuration
type IndexConfig struct {
	Provider string `mapstructure:"provider"` // memory, weaviate
	Host     string `mapstructure:"host"`
	Scheme   string `mapstructure:"scheme"`
	Class    string `mapstructure:"class"`
}

// NLPConfig holds NLP configuration
type NLPConfig struct {
	// Models is a map of model configurations (e.g. "default", "small")
	Models map[string]NLPModelConfig `mapstructure:"models"`
}

// NLPModelConfig holds configuration for a specific model
type NLPModelConfig struct {
	Provider    string  `mapstructure:"provider"` // openai or any OpenAI-compatible service
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // openai, embedeverything
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

// ExtractorConfig holds entity extractor configuration
type ExtractorConfig struct {
	Provider  string   `mapstructure:"provider"`  // llm, gliner, rustbert, remote
	Model     string   `mapstructure:"model"`     // HuggingFace model ID or local path
	Labels    []string `mapstructure:"labels"`    // entity labels for span-based extractors
	Endpoint  string   `mapstructure:"endpoint"`  // HTTP endpoint for the remote provider
	APIKey    string   `mapstructure:"api_key"`   // bearer token for the remote provider
	Threshold float64  `mapstructure:"threshold"` // confidence floor for span-based extractors
}

// RetrievalConfig holds retrieval configuration
type RetrievalConfig struct {
	MaxDepth      int    `mapstructure:"max_depth"`
	TopN          int    `mapstructure:"top_n"`
	CallTimeout   int    `mapstructure:"call_timeout"` // in seconds, per external call
	Synthesize    bool   `mapstructure:"synthesize"`
	OracleFailure string `mapstructure:"oracle_failure"` // continue, abort
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Graph defaults
	viper.SetDefault("graph.driver", "memory")
	viper.SetDefault("graph.uri", "")
	viper.SetDefault("graph.username", "")
	viper.SetDefault("graph.password", "")
	viper.SetDefault("graph.database", "")

	// Index defaults
	viper.SetDefault("index.provider", "memory")
	viper.SetDefault("index.host", "localhost:8080")
	viper.SetDefault("index.scheme", "http")
	viper.SetDefault("index.class", "GraphNode")

	viper.SetDefault("nlp.models.default.provider", "openai")
	viper.SetDefault("nlp.models.default.model", "gpt-4o-mini")
	viper.SetDefault("nlp.models.default.temperature", 0.0)
	viper.SetDefault("nlp.models.default.max_tokens", 1024)

	// Embedding defaults
	viper.SetDefault("embedding.provider", "embedeverything")
	viper.SetDefault("embedding.model", "all-MiniLM-L6-v2")

	// Extractor defaults
	viper.SetDefault("extractor.provider", "llm")
	viper.SetDefault("extractor.labels", []string{"person", "organization", "location", "event", "concept"})
	viper.SetDefault("extractor.threshold", 0.5)

	// Retrieval defaults
	viper.SetDefault("retrieval.max_depth", 3)
	viper.SetDefault("retrieval.top_n", 3)
	viper.SetDefault("retrieval.call_timeout", 60)
	viper.SetDefault("retrieval.synthesize", true)
	viper.SetDefault("retrieval.oracle_failure", "continue")

	// Telemetry defaults
	home, err := os.UserHomeDir()
	if err == nil {
		defaultPath := fmt.Sprintf("%s/.percorso/telemetry", home)
		viper.SetDefault("telemetry.parquet_path", defaultPath)
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	// Initialize Models map if nil
	if config.NLP.Models == nil {
		config.NLP.Models = make(map[string]NLPModelConfig)
	}

	// Helper to get or create model config
	getModel := func(name string) NLPModelConfig {
		if c, ok := config.NLP.Models[name]; ok {
			return c
		}
		return NLPModelConfig{}
	}

	// Update default model from env
	defaultModel := getModel("default")
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" && defaultModel.APIKey == "" {
		defaultModel.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" && defaultModel.BaseURL == "" {
		defaultModel.BaseURL = baseURL
	}
	config.NLP.Models["default"] = defaultModel

	// Embedding credentials
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" && config.Embedding.APIKey == "" {
		config.Embedding.APIKey = apiKey
	}

	// Graph store credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Graph.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Graph.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Graph.Password = pass
	}

	// Generic graph settings
	if driver := os.Getenv("GRAPH_DRIVER"); driver != "" {
		config.Graph.Driver = driver
	}
	if uri := os.Getenv("GRAPH_URI"); uri != "" {
		config.Graph.URI = uri
	}

	// Index settings
	if host := os.Getenv("WEAVIATE_HOST"); host != "" {
		config.Index.Host = host
		config.Index.Provider = "weaviate"
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		viper.Set("server.port", port)
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
