package nlp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/soundprediction/percorso/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetTokenTracker(t *testing.T) {
	tokenDir := filepath.Join(t.TempDir(), "tokens")

	tracker, err := NewTokenTracker(tokenDir)
	require.NoError(t, err)
	tracker.batchSize = 1 // Force flush on every write for testing

	ctx := context.Background()
	ctx = context.WithValue(ctx, types.ContextKeyRequestID, "req-123")
	ctx = context.WithValue(ctx, types.ContextKeyOperation, "reason")

	usage := &types.TokenUsage{
		PromptTokens:     10,
		CompletionTokens: 20,
		TotalTokens:      30,
	}

	err = tracker.AddUsage(ctx, usage, "gpt-4-test", 120*time.Millisecond)
	require.NoError(t, err)

	entries, err := os.ReadDir(tokenDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".parquet"))
	assert.True(t, strings.HasPrefix(entries[0].Name(), "token_usage_"))
}

func TestParquetTokenTracker_FlushPartialBuffer(t *testing.T) {
	tokenDir := filepath.Join(t.TempDir(), "tokens")

	tracker, err := NewTokenTracker(tokenDir)
	require.NoError(t, err)

	usage := &types.TokenUsage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2}
	require.NoError(t, tracker.AddUsage(context.Background(), usage, "test-model", time.Millisecond))

	// Below batch size, so nothing is on disk yet
	entries, err := os.ReadDir(tokenDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, tracker.Flush())

	entries, err = os.ReadDir(tokenDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestParquetTokenTracker_NilUsage(t *testing.T) {
	tracker, err := NewTokenTracker(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, tracker.AddUsage(context.Background(), nil, "test-model", 0))
	assert.Empty(t, tracker.buffer)
}

func TestTokenTrackingClient_RecordsUsage(t *testing.T) {
	tokenDir := filepath.Join(t.TempDir(), "tokens")

	tracker, err := NewTokenTracker(tokenDir)
	require.NoError(t, err)
	tracker.batchSize = 1

	mock := &mockClient{
		responseToReturn: &types.Response{
			Content: "answer",
			Model:   "gpt-4-test",
			TokensUsed: &types.TokenUsage{
				PromptTokens:     5,
				CompletionTokens: 7,
				TotalTokens:      12,
			},
		},
	}

	client := NewTokenTrackingClient(mock, tracker)

	resp, err := client.Chat(context.Background(), []types.Message{NewUserMessage("hello")})
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Content)

	entries, err := os.ReadDir(tokenDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
