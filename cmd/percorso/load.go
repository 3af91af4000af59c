package percorso

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/soundprediction/percorso/pkg/config"
	"github.com/soundprediction/percorso/pkg/graph"
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a graph snapshot into the configured store",
	Long: `Load an already-built knowledge graph into the configured store,
from a triples CSV, a {nodes, edges} JSON or YAML document, or a live Neo4j
database.

With --index the display text of every loaded node is also embedded and
upserted into the similarity index, which retrieval requires.`,
	RunE: runLoad,
}

var (
	loadFrom  string
	loadFile  string
	loadIndex bool
)

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().StringVar(&loadFrom, "from", "csv", "Source format (csv, json, yaml, neo4j)")
	loadCmd.Flags().StringVar(&loadFile, "file", "", "Source file (csv, json, yaml)")
	loadCmd.Flags().BoolVar(&loadIndex, "index", false, "Also embed and index the loaded nodes")

	loadCmd.Flags().String("graph-driver", "memory", "Graph store driver (memory, badger, ladybug)")
	loadCmd.Flags().String("graph-uri", "", "Graph store URI/path (badger and ladybug)")

	// Neo4j source flags
	loadCmd.Flags().String("neo4j-uri", "", "Neo4j URI (or NEO4J_URI)")
	loadCmd.Flags().String("neo4j-user", "", "Neo4j username (or NEO4J_USER)")
	loadCmd.Flags().String("neo4j-password", "", "Neo4j password (or NEO4J_PASSWORD)")
	loadCmd.Flags().String("neo4j-database", "", "Neo4j database name")
}

func runLoad(cmd *cobra.Command, args []string) error {
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

	if err := validateLoadFlags(); err != nil {
		return err
	}

	client, logger, err := initializeClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize percorso: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()

	var result *graph.LoadResult
	switch loadFrom {
	case "csv":
		result, err = client.LoadGraphCSV(ctx, loadFile)
	case "json":
		result, err = client.LoadGraphJSON(ctx, loadFile)
	case "yaml":
		result, err = client.LoadGraphYAML(ctx, loadFile)
	case "neo4j":
		result, err = client.LoadGraphNeo4j(ctx, neo4jSource(cmd, cfg))
	default:
		return fmt.Errorf("unsupported source format: %s", loadFrom)
	}
	if err != nil {
		return fmt.Errorf("loading graph: %w", err)
	}

	fmt.Printf("Loaded %d nodes and %d edges\n", result.Nodes, result.Edges)

	if loadIndex {
		indexed, err := client.IndexNodes(ctx)
		if err != nil {
			return fmt.Errorf("indexing nodes: %w", err)
		}
		fmt.Printf("Indexed %d nodes\n", indexed)
	}
	return nil
}

func validateLoadFlags() error {
	switch loadFrom {
	case "csv", "json", "yaml":
		if loadFile == "" {
			return fmt.Errorf("--file is required for %s sources", loadFrom)
		}
	case "neo4j":
		// Credentials may come from the environment; checked in neo4jSource.
	default:
		return fmt.Errorf("unsupported source format: %s", loadFrom)
	}
	return nil
}

// neo4jSource builds the Neo4j connection from flags, falling back to the
// graph section of the config (which the environment already overrides).
func neo4jSource(cmd *cobra.Command, cfg *config.Config) graph.Neo4jSource {
	source := graph.Neo4jSource{
		URI:      cfg.Graph.URI,
		Username: cfg.Graph.Username,
		Password: cfg.Graph.Password,
		Database: cfg.Graph.Database,
	}
	if uri, _ := cmd.Flags().GetString("neo4j-uri"); uri != "" {
		source.URI = uri
	}
	if user, _ := cmd.Flags().GetString("neo4j-user"); user != "" {
		source.Username = user
	}
	if pass, _ := cmd.Flags().GetString("neo4j-password"); pass != "" {
		source.Password = pass
	}
	if db, _ := cmd.Flags().GetString("neo4j-database"); db != "" {
		source.Database = db
	}
	return source
}
