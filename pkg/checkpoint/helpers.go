package checkpoint

import (
	"context"
	"fmt"
	"time"
)

// NewRunCheckpoint creates a checkpoint for a fresh batch run.
func NewRunCheckpoint(runID, input string, total int) *RunCheckpoint {
	now := time.Now()
	return &RunCheckpoint{
		RunID:         runID,
		Input:         input,
		Total:         total,
		Status:        StatusRunning,
		CreatedAt:     now,
		LastUpdatedAt: now,
		Answers:       make(map[string]*QuestionResult),
	}
}

// MarkDone records a finished question. Failed questions are recorded too,
// with their error text, so a resume does not retry them.
func (c *RunCheckpoint) MarkDone(result *QuestionResult) {
	if c.Answers == nil {
		c.Answers = make(map[string]*QuestionResult)
	}
	c.Answers[indexKey(result.Index)] = result
}

// IsDone reports whether the question at the given row index has already
// been answered by a previous attempt of this run.
func (c *RunCheckpoint) IsDone(index int) bool {
	_, ok := c.Answers[indexKey(index)]
	return ok
}

// Result returns the recorded result for a row index, if any.
func (c *RunCheckpoint) Result(index int) (*QuestionResult, bool) {
	r, ok := c.Answers[indexKey(index)]
	return r, ok
}

// Done returns the number of questions already answered.
func (c *RunCheckpoint) Done() int {
	return len(c.Answers)
}

// GetProgress returns a human-readable progress description.
func (c *RunCheckpoint) GetProgress() string {
	if c.Total <= 0 {
		return fmt.Sprintf("%d answered", c.Done())
	}
	percentage := (float64(c.Done()) / float64(c.Total)) * 100
	return fmt.Sprintf("%.0f%% (%d/%d)", percentage, c.Done(), c.Total)
}

// Summary provides a human-readable summary of the checkpoint.
func (c *RunCheckpoint) Summary() string {
	summary := fmt.Sprintf("Run: %s\n", c.RunID)
	summary += fmt.Sprintf("Input: %s\n", c.Input)
	summary += fmt.Sprintf("Status: %s\n", c.Status)
	summary += fmt.Sprintf("Progress: %s\n", c.GetProgress())
	summary += fmt.Sprintf("Created: %s\n", c.CreatedAt.Format(time.RFC3339))
	summary += fmt.Sprintf("Last Updated: %s\n", c.LastUpdatedAt.Format(time.RFC3339))
	summary += fmt.Sprintf("Attempts: %d\n", c.AttemptCount)

	if c.LastError != "" {
		summary += fmt.Sprintf("Last Error: %s\n", c.LastError)
	}

	return summary
}

// SaveWithError is a helper that records a run-level error and saves in one
// operation.
func (m *CheckpointManager) SaveWithError(ctx context.Context, checkpoint *RunCheckpoint, err error) error {
	checkpoint.AttemptCount++
	checkpoint.LastError = err.Error()
	return m.Save(ctx, checkpoint)
}

// LoadOrCreate loads an existing checkpoint or creates a new one. The
// boolean reports whether the run is a resume.
func (m *CheckpointManager) LoadOrCreate(ctx context.Context, runID, input string, total int) (*RunCheckpoint, bool, error) {
	existing, err := m.Load(ctx, runID)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		if existing.Answers == nil {
			existing.Answers = make(map[string]*QuestionResult)
		}
		return existing, true, nil
	}

	checkpoint := NewRunCheckpoint(runID, input, total)
	if err := m.Save(ctx, checkpoint); err != nil {
		return nil, false, err
	}

	return checkpoint, false, nil
}

// FindStalled returns running checkpoints that haven't been updated recently.
func (m *CheckpointManager) FindStalled(ctx context.Context, stalledDuration time.Duration) ([]*RunCheckpoint, error) {
	checkpoints, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-stalledDuration)
	var stalled []*RunCheckpoint

	for _, checkpoint := range checkpoints {
		if checkpoint.Status != StatusCompleted && checkpoint.LastUpdatedAt.Before(cutoff) {
			stalled = append(stalled, checkpoint)
		}
	}

	return stalled, nil
}
