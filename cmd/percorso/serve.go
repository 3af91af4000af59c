package percorso

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soundprediction/percorso/pkg/config"
	"github.com/soundprediction/percorso/pkg/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the percorso HTTP server",
	Long: `Start the percorso HTTP server to answer questions over a loaded and
indexed knowledge graph.

The server provides endpoints for:
- Retrieving full reasoning results (paths, rounds, provenance)
- Answering questions (answer and supporting triples only)
- Inspecting the entities a question would seed from
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
	serveMode string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server-specific flags
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Server host")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Server port")
	serveCmd.Flags().StringVar(&serveMode, "mode", "debug", "Server mode (debug, release, test)")

	// Graph store flags
	serveCmd.Flags().String("graph-driver", "memory", "Graph store driver (memory, badger, ladybug)")
	serveCmd.Flags().String("graph-uri", "", "Graph store URI/path (badger and ladybug)")

	// Index flags
	serveCmd.Flags().String("index-provider", "memory", "Similarity index provider (memory, weaviate)")
	serveCmd.Flags().String("index-host", "", "Weaviate host")

	// NLP flags
	serveCmd.Flags().String("nlp-model", "gpt-4o-mini", "Reasoning model")
	serveCmd.Flags().String("nlp-api-key", "", "Reasoning API key")
	serveCmd.Flags().String("nlp-base-url", "", "Reasoning base URL (OpenAI-compatible services)")

	// Embedding flags
	serveCmd.Flags().String("embedding-provider", "embedeverything", "Embedding provider (openai, embedeverything)")
	serveCmd.Flags().String("embedding-model", "", "Embedding model")
	serveCmd.Flags().String("embedding-api-key", "", "Embedding API key")

	// Retrieval flags
	serveCmd.Flags().Int("max-depth", 0, "Hop budget for each question")
	serveCmd.Flags().Int("top-n", 0, "Beam width kept after each prune")

	// Telemetry flags
	serveCmd.Flags().String("telemetry-parquet-path", "", "Path to directory for telemetry (errors and token usage)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrideServeFlags(cmd, cfg)

	if err := validateServeConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	client, logger, err := initializeClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize percorso: %w", err)
	}

	srv := server.New(cfg, client)
	srv.SetLogger(logger)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		if err := client.Close(shutdownCtx); err != nil {
			logger.Warn("close failed", "error", err)
		}

		logger.Info("server stopped gracefully")
		return nil
	}
}

func overrideServeFlags(cmd *cobra.Command, cfg *config.Config) {
	// Server flags
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serveMode
	}

	// Graph store flags
	if cmd.Flags().Changed("graph-driver") {
		cfg.Graph.Driver, _ = cmd.Flags().GetString("graph-driver")
	}
	if cmd.Flags().Changed("graph-uri") {
		cfg.Graph.URI, _ = cmd.Flags().GetString("graph-uri")
	}

	// Index flags
	if cmd.Flags().Changed("index-provider") {
		cfg.Index.Provider, _ = cmd.Flags().GetString("index-provider")
	}
	if cmd.Flags().Changed("index-host") {
		cfg.Index.Host, _ = cmd.Flags().GetString("index-host")
	}

	// NLP flags
	if cmd.Flags().Changed("nlp-model") {
		m := cfg.NLP.Models["default"]
		m.Model, _ = cmd.Flags().GetString("nlp-model")
		cfg.NLP.Models["default"] = m
	}
	if cmd.Flags().Changed("nlp-api-key") {
		m := cfg.NLP.Models["default"]
		m.APIKey, _ = cmd.Flags().GetString("nlp-api-key")
		cfg.NLP.Models["default"] = m
	}
	if cmd.Flags().Changed("nlp-base-url") {
		m := cfg.NLP.Models["default"]
		m.BaseURL, _ = cmd.Flags().GetString("nlp-base-url")
		cfg.NLP.Models["default"] = m
	}

	// Embedding flags
	if cmd.Flags().Changed("embedding-provider") {
		cfg.Embedding.Provider, _ = cmd.Flags().GetString("embedding-provider")
	}
	if cmd.Flags().Changed("embedding-model") {
		cfg.Embedding.Model, _ = cmd.Flags().GetString("embedding-model")
	}
	if cmd.Flags().Changed("embedding-api-key") {
		cfg.Embedding.APIKey, _ = cmd.Flags().GetString("embedding-api-key")
	}

	// Retrieval flags
	if cmd.Flags().Changed("max-depth") {
		cfg.Retrieval.MaxDepth, _ = cmd.Flags().GetInt("max-depth")
	}
	if cmd.Flags().Changed("top-n") {
		cfg.Retrieval.TopN, _ = cmd.Flags().GetInt("top-n")
	}

	// Telemetry flags
	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
	}
}

func validateServeConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if (cfg.Graph.Driver == "badger" || cfg.Graph.Driver == "ladybug") && cfg.Graph.URI == "" {
		return fmt.Errorf("graph driver %q requires a URI/path", cfg.Graph.Driver)
	}
	return nil
}
