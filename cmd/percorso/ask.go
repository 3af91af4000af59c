package percorso

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/soundprediction/percorso"
	"github.com/soundprediction/percorso/pkg/config"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask \"question\"",
	Short: "Answer a single question over the configured graph",
	Long: `Answer one natural-language question by walking the configured
knowledge graph. Prints the answer followed by the triples that support it.

The graph must already be loaded and indexed (see "percorso load").`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

var (
	askMaxDepth  int
	askTopN      int
	askRaw       bool
	askShowPaths bool
)

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().IntVar(&askMaxDepth, "max-depth", -1, "Hop budget (overrides config)")
	askCmd.Flags().IntVar(&askTopN, "top-n", 0, "Beam width (overrides config)")
	askCmd.Flags().BoolVar(&askRaw, "raw", false, "Skip answer synthesis and print the collected triples")
	askCmd.Flags().BoolVar(&askShowPaths, "show-paths", false, "Print the surviving reasoning paths")

	// Graph store flags shared with serve semantics
	askCmd.Flags().String("graph-driver", "memory", "Graph store driver (memory, badger, ladybug)")
	askCmd.Flags().String("graph-uri", "", "Graph store URI/path (badger and ladybug)")
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	// Ctrl-C aborts the search loop; the retriever still returns a
	// best-effort answer when it has gathered any evidence.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()

	result, err := client.Retrieve(ctx, args[0], askOptions(cmd))
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)

	if len(result.Provenance) > 0 && !strings.Contains(result.Answer, result.Provenance[0]) {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Evidence:")
		for i, triple := range result.Provenance {
			fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, triple)
		}
	}

	if askShowPaths {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "Paths after %d round(s), sufficient=%v:\n", result.Rounds, result.Sufficient)
		for _, path := range result.Paths {
			fmt.Fprintf(os.Stderr, "  %s\n", strings.Join(path, " -> "))
		}
	}
	return nil
}

// askOptions converts the ask flags into per-call overrides. Unset flags
// keep the configured bounds.
func askOptions(cmd *cobra.Command) *percorso.RetrieveOptions {
	opts := &percorso.RetrieveOptions{}
	changed := false

	if cmd.Flags().Changed("max-depth") && askMaxDepth >= 0 {
		opts.MaxDepth = &askMaxDepth
		changed = true
	}
	if cmd.Flags().Changed("top-n") && askTopN > 0 {
		opts.TopN = &askTopN
		changed = true
	}
	if askRaw {
		synthesize := false
		opts.Synthesize = &synthesize
		changed = true
	}

	if !changed {
		return nil
	}
	return opts
}
