package percorso

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/soundprediction/percorso"
	"github.com/soundprediction/percorso/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Model Context Protocol (MCP) tool server",
	Long: `Start the Model Context Protocol (MCP) tool server so MCP clients can
query the knowledge graph.

The server exposes tools for:
- Answering a question over the graph (ask_graph)
- Retrieving the full reasoning result with paths (retrieve_paths)
- Inspecting graph size (graph_stats)

The graph must already be loaded and indexed (see "percorso load").`,
	RunE: runMCP,
}

var (
	mcpTransport string
	mcpHost      string
	mcpPort      int
)

func init() {
	rootCmd.AddCommand(mcpCmd)

	viper.BindEnv("mcp.transport", "MCP_TRANSPORT")
	viper.BindEnv("mcp.host", "MCP_HOST")
	viper.BindEnv("mcp.port", "MCP_PORT")

	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "Transport to use (stdio or sse)")
	mcpCmd.Flags().StringVar(&mcpHost, "host", "localhost", "Host to bind the MCP server to")
	mcpCmd.Flags().IntVar(&mcpPort, "port", 3000, "Port to bind the MCP server to")

	mcpCmd.Flags().String("graph-driver", "memory", "Graph store driver (memory, badger, ladybug)")
	mcpCmd.Flags().String("graph-uri", "", "Graph store URI/path (badger and ladybug)")

	viper.BindPFlag("mcp.transport", mcpCmd.Flags().Lookup("transport"))
	viper.BindPFlag("mcp.host", mcpCmd.Flags().Lookup("host"))
	viper.BindPFlag("mcp.port", mcpCmd.Flags().Lookup("port"))
}

// mcpServer wraps the percorso client for MCP tool calls.
type mcpServer struct {
	client *percorso.Client
	logger *slog.Logger
}

// AskGraphRequest are the parameters for the ask_graph tool.
type AskGraphRequest struct {
	Question string `json:"question"`
	MaxDepth *int   `json:"max_depth,omitempty"`
	TopN     *int   `json:"top_n,omitempty"`
}

// AskGraphResponse is the ask_graph tool result.
type AskGraphResponse struct {
	Answer     string   `json:"answer"`
	Provenance []string `json:"provenance"`
}

// RetrievePathsResponse is the retrieve_paths tool result.
type RetrievePathsResponse struct {
	Answer     string   `json:"answer"`
	Provenance []string `json:"provenance"`
	Paths      []string `json:"paths"`
	Rounds     int      `json:"rounds"`
	Sufficient bool     `json:"sufficient"`
}

// GraphStatsRequest are the (empty) parameters for the graph_stats tool.
type GraphStatsRequest struct{}

// GraphStatsResponse is the graph_stats tool result.
type GraphStatsResponse struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

func (r *AskGraphRequest) options() *percorso.RetrieveOptions {
	if r.MaxDepth == nil && r.TopN == nil {
		return nil
	}
	return &percorso.RetrieveOptions{MaxDepth: r.MaxDepth, TopN: r.TopN}
}

// AskGraphTool answers a question and returns the answer with its
// supporting triples.
func (s *mcpServer) AskGraphTool(ctx *ai.ToolContext, input *AskGraphRequest) (*AskGraphResponse, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, fmt.Errorf("question is required")
	}

	result, err := s.client.Retrieve(context.Background(), input.Question, input.options())
	if err != nil {
		s.logger.Error("ask_graph failed", "error", err)
		return nil, err
	}

	return &AskGraphResponse{
		Answer:     result.Answer,
		Provenance: result.Provenance,
	}, nil
}

// RetrievePathsTool answers a question and returns the full reasoning
// result, including the surviving paths and round count.
func (s *mcpServer) RetrievePathsTool(ctx *ai.ToolContext, input *AskGraphRequest) (*RetrievePathsResponse, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, fmt.Errorf("question is required")
	}

	result, err := s.client.Retrieve(context.Background(), input.Question, input.options())
	if err != nil {
		s.logger.Error("retrieve_paths failed", "error", err)
		return nil, err
	}

	paths := make([]string, len(result.Paths))
	for i, path := range result.Paths {
		paths[i] = strings.Join(path, " -> ")
	}

	return &RetrievePathsResponse{
		Answer:     result.Answer,
		Provenance: result.Provenance,
		Paths:      paths,
		Rounds:     result.Rounds,
		Sufficient: result.Sufficient,
	}, nil
}

// GraphStatsTool reports node and edge counts for the loaded graph.
func (s *mcpServer) GraphStatsTool(ctx *ai.ToolContext, input *GraphStatsRequest) (*GraphStatsResponse, error) {
	stats, err := s.client.Stats(context.Background())
	if err != nil {
		s.logger.Error("graph_stats failed", "error", err)
		return nil, err
	}
	return &GraphStatsResponse{Nodes: int(stats.NodeCount), Edges: int(stats.EdgeCount)}, nil
}

// registerTools registers all MCP tools with Genkit.
func (s *mcpServer) registerTools(g *genkit.Genkit) {
	genkit.DefineTool(g, "ask_graph",
		"Answer a natural-language question over the knowledge graph. Returns the answer and the triples that support it.",
		s.AskGraphTool)

	genkit.DefineTool(g, "retrieve_paths",
		"Answer a question and return the full reasoning result, including the surviving graph paths and round count.",
		s.RetrievePathsTool)

	genkit.DefineTool(g, "graph_stats",
		"Report node and edge counts for the loaded knowledge graph.",
		s.GraphStatsTool)

	s.logger.Info("MCP tools registered", "tools", []string{"ask_graph", "retrieve_paths", "graph_stats"})
}

// run starts the Genkit runtime and blocks until the context is cancelled.
func (s *mcpServer) run(ctx context.Context) error {
	s.logger.Info("starting MCP server", "transport", viper.GetString("mcp.transport"))

	g := genkit.Init(ctx)
	s.registerTools(g)

	s.logger.Info("MCP server is ready to accept requests")

	<-ctx.Done()
	return ctx.Err()
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("graph-driver") {
		cfg.Graph.Driver, _ = cmd.Flags().GetString("graph-driver")
	}
	if cmd.Flags().Changed("graph-uri") {
		cfg.Graph.URI, _ = cmd.Flags().GetString("graph-uri")
	}

	client, logger, err := initializeClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize percorso: %w", err)
	}

	server := &mcpServer{client: client, logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.run(ctx)
	}()

	select {
	case err := <-serverErrChan:
		if err != nil && err != context.Canceled {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
		cancel()

		select {
		case <-time.After(10 * time.Second):
			return fmt.Errorf("server shutdown timeout")
		case <-serverErrChan:
		}

		if err := client.Close(context.Background()); err != nil {
			logger.Warn("close failed", "error", err)
		}
		logger.Info("MCP server stopped gracefully")
		return nil
	}
}
