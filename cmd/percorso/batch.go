package percorso

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/soundprediction/percorso/pkg/batch"
	"github.com/soundprediction/percorso/pkg/config"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Answer a CSV file of questions",
	Long: `Answer every question in a CSV file and write the answers with their
supporting triples to an output file (CSV, or Parquet when the output path
ends in .parquet).

Progress is checkpointed, so re-running an interrupted batch resumes where it
stopped instead of re-answering completed questions.`,
	RunE: runBatch,
}

const summaryRounding = 100 * time.Millisecond

var (
	batchInput           string
	batchOutput          string
	batchColumn          string
	batchConcurrency     int
	batchRunID           string
	batchCheckpointDir   string
	batchCheckpointEvery int
)

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchInput, "input", "", "Input CSV file of questions (required)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "Output file for answers (required)")
	batchCmd.Flags().StringVar(&batchColumn, "column", batch.DefaultQuestionColumn, "CSV header of the question column")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "Questions in flight at once (0 = default)")
	batchCmd.Flags().StringVar(&batchRunID, "run-id", "", "Checkpoint run ID (default derives from the input file name)")
	batchCmd.Flags().StringVar(&batchCheckpointDir, "checkpoint-dir", "", "Directory for run checkpoints")
	batchCmd.Flags().IntVar(&batchCheckpointEvery, "checkpoint-every", 0, "Checkpoint after this many answers (0 = default)")

	batchCmd.Flags().String("graph-driver", "memory", "Graph store driver (memory, badger, ladybug)")
	batchCmd.Flags().String("graph-uri", "", "Graph store URI/path (badger and ladybug)")

	batchCmd.MarkFlagRequired("input")
	batchCmd.MarkFlagRequired("output")
}

func runBatch(cmd *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()

	runner, err := batch.NewRunner(client, batch.Config{
		RunID:           batchRunID,
		QuestionColumn:  batchColumn,
		Concurrency:     batchConcurrency,
		CheckpointDir:   batchCheckpointDir,
		CheckpointEvery: batchCheckpointEvery,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating batch runner: %w", err)
	}

	summary, err := runner.Run(ctx, batchInput, batchOutput)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s: answered %d/%d questions (%d failed) in %s\n",
		summary.RunID, summary.Answered, summary.Total, summary.Failed, summary.Duration.Round(summaryRounding))
	if summary.Resumed {
		fmt.Println("Resumed from a previous checkpoint.")
	}
	fmt.Printf("Results written to %s\n", summary.Output)
	return nil
}
