// Package batch answers a CSV file of questions through the retrieval
// facade, bounded by a worker semaphore, with file-based checkpoints so an
// interrupted run resumes without re-answering completed rows.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/soundprediction/percorso"
	"github.com/soundprediction/percorso/pkg/checkpoint"
	"github.com/soundprediction/percorso/pkg/utils"
)

// DefaultQuestionColumn is the CSV header the runner reads questions from
// when the config names none.
const DefaultQuestionColumn = "question"

const defaultCheckpointEvery = 10

// Config configures a batch run.
type Config struct {
	// RunID identifies the run for checkpointing. Empty derives an ID from
	// the input file name, so re-running the same file resumes it.
	RunID string
	// QuestionColumn is the CSV header of the question field, matched
	// case-insensitively. Empty selects DefaultQuestionColumn.
	QuestionColumn string
	// Concurrency bounds in-flight questions. Non-positive selects
	// utils.DefaultConcurrency.
	Concurrency int
	// CheckpointDir holds run state files. Empty selects the checkpoint
	// manager's default directory.
	CheckpointDir string
	// CheckpointEvery saves run state after this many newly answered
	// questions. Non-positive selects 10.
	CheckpointEvery int
	// Options are forwarded to every Retrieve call. Nil keeps the
	// facade's configured bounds.
	Options *percorso.RetrieveOptions
}

// Summary reports the outcome of a completed run.
type Summary struct {
	RunID    string
	Total    int
	Answered int
	Failed   int
	Resumed  bool
	Output   string
	Duration time.Duration
}

// Runner drives questions through a QuestionAnswerer.
type Runner struct {
	answerer percorso.QuestionAnswerer
	manager  *checkpoint.CheckpointManager
	config   Config
	logger   *slog.Logger
}

// NewRunner creates a batch runner over the given answerer.
func NewRunner(answerer percorso.QuestionAnswerer, cfg Config, logger *slog.Logger) (*Runner, error) {
	if answerer == nil {
		return nil, errors.New("batch: answerer is required")
	}

	manager, err := checkpoint.NewCheckpointManager(cfg.CheckpointDir)
	if err != nil {
		return nil, fmt.Errorf("creating checkpoint manager: %w", err)
	}

	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = defaultCheckpointEvery
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		answerer: answerer,
		manager:  manager,
		config:   cfg,
		logger:   logger,
	}, nil
}

// Run answers every question in the input CSV and writes the results to
// outputPath (CSV, or Parquet when the path ends in .parquet). Rows already
// answered by a previous attempt of the same run are carried over from the
// checkpoint instead of being re-asked.
func (r *Runner) Run(ctx context.Context, inputPath, outputPath string) (*Summary, error) {
	start := time.Now()

	questions, err := ReadQuestions(inputPath, r.config.QuestionColumn)
	if err != nil {
		return nil, err
	}

	runID := r.config.RunID
	if runID == "" {
		runID = deriveRunID(inputPath)
	}

	cp, resumed, err := r.manager.LoadOrCreate(ctx, runID, inputPath, len(questions))
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}
	if resumed {
		if cp.Total != len(questions) {
			return nil, fmt.Errorf("checkpoint %q was created for %d questions but the input has %d; delete the checkpoint or pick a new run ID", runID, cp.Total, len(questions))
		}
		cp.AttemptCount++
	}

	var mu sync.Mutex
	newlyDone := 0
	record := func(result *checkpoint.QuestionResult) {
		mu.Lock()
		defer mu.Unlock()
		cp.MarkDone(result)
		newlyDone++
		if newlyDone%r.config.CheckpointEvery == 0 {
			if err := r.manager.Save(ctx, cp); err != nil {
				r.logger.Warn("checkpoint save failed", "run_id", runID, "error", err)
			}
		}
	}

	var jobs []func() error
	for i, question := range questions {
		if cp.IsDone(i) {
			continue
		}
		i, question := i, question
		jobs = append(jobs, func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result := r.answer(ctx, i, question)
			if result.Error != "" && ctx.Err() != nil {
				// Run-level cancellation: leave the row for the next attempt.
				return ctx.Err()
			}
			record(result)
			return nil
		})
	}

	r.logger.Info("batch run starting",
		"run_id", runID,
		"input", inputPath,
		"total", len(questions),
		"pending", len(jobs),
		"resumed", resumed,
	)

	executor := utils.NewConcurrentExecutor(r.config.Concurrency)
	if err := errors.Join(executor.Execute(ctx, jobs...)...); err != nil {
		cp.LastError = err.Error()
		if saveErr := r.manager.Save(ctx, cp); saveErr != nil {
			r.logger.Warn("checkpoint save after interruption failed", "run_id", runID, "error", saveErr)
		}
		return nil, fmt.Errorf("batch run interrupted: %w", err)
	}

	cp.Status = checkpoint.StatusCompleted
	if err := r.manager.Save(ctx, cp); err != nil {
		return nil, fmt.Errorf("saving final checkpoint: %w", err)
	}

	results := make([]*checkpoint.QuestionResult, 0, len(questions))
	failed := 0
	for i := range questions {
		result, ok := cp.Result(i)
		if !ok {
			return nil, fmt.Errorf("run completed but row %d has no recorded result", i)
		}
		if result.Error != "" {
			failed++
		}
		results = append(results, result)
	}

	if err := WriteResults(outputPath, results); err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:    runID,
		Total:    len(questions),
		Answered: len(questions) - failed,
		Failed:   failed,
		Resumed:  resumed,
		Output:   outputPath,
		Duration: time.Since(start),
	}

	r.logger.Info("batch run finished",
		"run_id", runID,
		"answered", summary.Answered,
		"failed", summary.Failed,
		"output", outputPath,
		"duration", summary.Duration,
	)
	return summary, nil
}

// answer runs one question and folds any failure into the result, so the
// row is recorded and not retried endlessly on resume.
func (r *Runner) answer(ctx context.Context, index int, question string) *checkpoint.QuestionResult {
	result := &checkpoint.QuestionResult{
		Index:    index,
		Question: question,
	}

	res, err := r.answerer.Retrieve(ctx, question, r.config.Options)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Answer = res.Answer
	result.Provenance = res.Provenance
	result.Rounds = res.Rounds
	result.Sufficient = res.Sufficient
	return result
}

var runIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// deriveRunID turns an input path into a checkpoint-safe run identifier.
func deriveRunID(inputPath string) string {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	id := runIDSanitizer.ReplaceAllString(base, "-")
	if id == "" {
		return "run"
	}
	return id
}
