// Package checkpoint persists batch-run progress as JSON state files so an
// interrupted run can resume without re-answering completed questions.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidRunID is returned when a run ID contains invalid characters
var ErrInvalidRunID = errors.New("invalid run ID: contains path traversal or invalid characters")

// RunStatus reports where a batch run stands.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
)

// QuestionResult is one answered question inside a run checkpoint.
type QuestionResult struct {
	Index      int      `json:"index"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Provenance []string `json:"provenance,omitempty"`
	Rounds     int      `json:"rounds"`
	Sufficient bool     `json:"sufficient"`
	// Error records a per-question failure; the question still counts as
	// processed so a resume does not retry it endlessly.
	Error string `json:"error,omitempty"`
}

// RunCheckpoint represents the state of a partially completed batch run.
type RunCheckpoint struct {
	// Run identification
	RunID  string    `json:"run_id"`
	Input  string    `json:"input"`
	Total  int       `json:"total"`
	Status RunStatus `json:"status"`

	// Timestamp tracking
	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	AttemptCount  int       `json:"attempt_count"`
	LastError     string    `json:"last_error,omitempty"`

	// Answers holds finished questions keyed by their decimal row index.
	Answers map[string]*QuestionResult `json:"answers"`
}

// CheckpointManager manages run checkpoints on disk.
type CheckpointManager struct {
	checkpointDir string
}

// NewCheckpointManager creates a new checkpoint manager.
// If checkpointDir is empty, uses os.TempDir()/percorso-checkpoints
func NewCheckpointManager(checkpointDir string) (*CheckpointManager, error) {
	if checkpointDir == "" {
		checkpointDir = filepath.Join(os.TempDir(), "percorso-checkpoints")
	}

	if err := os.MkdirAll(checkpointDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	return &CheckpointManager{
		checkpointDir: checkpointDir,
	}, nil
}

// validateRunID checks that the run ID is safe for use in file paths.
// It rejects IDs containing path separators, path traversal sequences, or null bytes.
func validateRunID(runID string) error {
	if runID == "" {
		return ErrInvalidRunID
	}

	if strings.Contains(runID, "..") {
		return ErrInvalidRunID
	}

	if strings.ContainsAny(runID, `/\`) {
		return ErrInvalidRunID
	}

	// Null bytes can truncate paths on some systems.
	if strings.ContainsRune(runID, '\x00') {
		return ErrInvalidRunID
	}

	return nil
}

// isPathWithinDirectory checks that the resolved path is within the expected directory.
func isPathWithinDirectory(path, directory string) bool {
	cleanPath := filepath.Clean(path)
	cleanDir := filepath.Clean(directory)

	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}

	return strings.HasPrefix(cleanPath, cleanDir) || cleanPath == filepath.Clean(directory)
}

// GetCheckpointPath returns the file path for a run's checkpoint.
// Returns an error if the run ID contains invalid characters or path traversal sequences.
func (m *CheckpointManager) GetCheckpointPath(runID string) (string, error) {
	if err := validateRunID(runID); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("checkpoint_%s.json", runID)
	fullPath := filepath.Join(m.checkpointDir, filename)

	if !isPathWithinDirectory(fullPath, m.checkpointDir) {
		return "", ErrInvalidRunID
	}

	return fullPath, nil
}

// Save persists the checkpoint to disk.
func (m *CheckpointManager) Save(ctx context.Context, checkpoint *RunCheckpoint) error {
	checkpoint.LastUpdatedAt = time.Now()

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	checkpointPath, err := m.GetCheckpointPath(checkpoint.RunID)
	if err != nil {
		return fmt.Errorf("invalid run ID: %w", err)
	}

	// Write to a temporary file first, then rename for atomic write
	tmpPath := checkpointPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}

	if err := os.Rename(tmpPath, checkpointPath); err != nil {
		return fmt.Errorf("failed to rename checkpoint file: %w", err)
	}

	return nil
}

// Load retrieves a checkpoint from disk. A missing checkpoint is (nil, nil).
func (m *CheckpointManager) Load(ctx context.Context, runID string) (*RunCheckpoint, error) {
	checkpointPath, err := m.GetCheckpointPath(runID)
	if err != nil {
		return nil, fmt.Errorf("invalid run ID: %w", err)
	}

	data, err := os.ReadFile(checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint RunCheckpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}

	return &checkpoint, nil
}

// Delete removes a checkpoint from disk.
func (m *CheckpointManager) Delete(ctx context.Context, runID string) error {
	checkpointPath, err := m.GetCheckpointPath(runID)
	if err != nil {
		return fmt.Errorf("invalid run ID: %w", err)
	}

	if err := os.Remove(checkpointPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete checkpoint file: %w", err)
	}

	return nil
}

// Exists checks if a checkpoint exists for a run.
func (m *CheckpointManager) Exists(ctx context.Context, runID string) (bool, error) {
	checkpointPath, err := m.GetCheckpointPath(runID)
	if err != nil {
		return false, fmt.Errorf("invalid run ID: %w", err)
	}

	_, err = os.Stat(checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check checkpoint existence: %w", err)
	}

	return true, nil
}

// List returns all checkpoints in the checkpoint directory.
func (m *CheckpointManager) List(ctx context.Context) ([]*RunCheckpoint, error) {
	entries, err := os.ReadDir(m.checkpointDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var checkpoints []*RunCheckpoint
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// Only process .json files, skip .tmp files
		if filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(m.checkpointDir, entry.Name()))
		if err != nil {
			continue
		}

		var checkpoint RunCheckpoint
		if err := json.Unmarshal(data, &checkpoint); err != nil {
			continue
		}

		checkpoints = append(checkpoints, &checkpoint)
	}

	return checkpoints, nil
}

// GetCheckpointDir returns the checkpoint directory path.
func (m *CheckpointManager) GetCheckpointDir() string {
	return m.checkpointDir
}

// CleanOld removes checkpoints older than the specified duration.
func (m *CheckpointManager) CleanOld(ctx context.Context, maxAge time.Duration) (int, error) {
	checkpoints, err := m.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, checkpoint := range checkpoints {
		if checkpoint.LastUpdatedAt.Before(cutoff) {
			if err := m.Delete(ctx, checkpoint.RunID); err != nil {
				continue
			}
			removed++
		}
	}

	return removed, nil
}

func indexKey(index int) string {
	return strconv.Itoa(index)
}
