package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/percorso/pkg/config"
	"github.com/soundprediction/percorso/pkg/nlp"
	"github.com/soundprediction/percorso/pkg/types"
)

type mockChatClient struct {
	response string
	err      error
	messages []types.Message
}

func (m *mockChatClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	return &types.Response{Content: m.response}, nil
}

func (m *mockChatClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	return m.Chat(ctx, messages)
}

func (m *mockChatClient) GetCapabilities() []nlp.TaskCapability {
	return []nlp.TaskCapability{nlp.TaskTextGeneration}
}

func (m *mockChatClient) Close() error { return nil }

func TestLLMExtractor(t *testing.T) {
	ctx := context.Background()

	client := &mockChatClient{response: `{"entities": ["Rome", "Italy"]}`}
	extractor := NewLLMExtractor(client, []string{"location"})

	entities, err := extractor.Extract(ctx, "Is Rome the capital of Italy?")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rome", "Italy"}, entities)

	// The question and label hint must reach the model.
	var user string
	for _, m := range client.messages {
		if m.Role == nlp.RoleUser {
			user = m.Content
		}
	}
	assert.Contains(t, user, "Is Rome the capital of Italy?")
	assert.Contains(t, user, "location")
}

func TestLLMExtractorLenientDecoding(t *testing.T) {
	ctx := context.Background()

	// Code fences, a think block, and a trailing comma all survive decoding.
	client := &mockChatClient{response: "<think>scanning</think>```json\n{\"entities\": [\"Douglas Adams\",]}\n```"}
	extractor := NewLLMExtractor(client, nil)

	entities, err := extractor.Extract(ctx, "Who wrote the guide?")
	require.NoError(t, err)
	assert.Equal(t, []string{"Douglas Adams"}, entities)
}

func TestLLMExtractorDeduplicates(t *testing.T) {
	ctx := context.Background()

	client := &mockChatClient{response: `{"entities": ["Rome", " rome ", "", "Tiber"]}`}
	extractor := NewLLMExtractor(client, nil)

	entities, err := extractor.Extract(ctx, "Which river crosses Rome?")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rome", "Tiber"}, entities)
}

func TestLLMExtractorEmptyList(t *testing.T) {
	ctx := context.Background()

	client := &mockChatClient{response: `{"entities": []}`}
	extractor := NewLLMExtractor(client, nil)

	entities, err := extractor.Extract(ctx, "Why is the sky blue?")
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestLLMExtractorClientError(t *testing.T) {
	ctx := context.Background()

	client := &mockChatClient{err: errors.New("connection refused")}
	extractor := NewLLMExtractor(client, nil)

	_, err := extractor.Extract(ctx, "Is Rome the capital of Italy?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity extraction call failed")
}

func TestLLMExtractorUndecodableResponse(t *testing.T) {
	ctx := context.Background()

	// A JSON array cannot decode into the entities object, repaired or not.
	// The extractor degrades to an empty set so the caller can fall back to
	// whole-query seeding.
	client := &mockChatClient{response: `[1, 2, 3]`}
	extractor := NewLLMExtractor(client, nil)

	entities, err := extractor.Extract(ctx, "Is Rome the capital of Italy?")
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestDedupeEntities(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "preserves order",
			in:   []string{"b", "a", "c"},
			want: []string{"b", "a", "c"},
		},
		{
			name: "first surface form wins",
			in:   []string{"Rome", "ROME", "rome"},
			want: []string{"Rome"},
		},
		{
			name: "trims whitespace",
			in:   []string{"  Rome  ", "Tiber"},
			want: []string{"Rome", "Tiber"},
		},
		{
			name: "drops blanks",
			in:   []string{"", "   ", "Rome"},
			want: []string{"Rome"},
		},
		{
			name: "empty input",
			in:   nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dedupeEntities(tt.in))
		})
	}
}

func TestNewFactory(t *testing.T) {
	client := &mockChatClient{}

	extractor, err := New(config.ExtractorConfig{Provider: "llm"}, client)
	require.NoError(t, err)
	assert.IsType(t, &LLMExtractor{}, extractor)

	// An empty provider falls back to the llm extractor.
	extractor, err = New(config.ExtractorConfig{}, client)
	require.NoError(t, err)
	assert.IsType(t, &LLMExtractor{}, extractor)

	_, err = New(config.ExtractorConfig{Provider: "llm"}, nil)
	require.Error(t, err)

	_, err = New(config.ExtractorConfig{Provider: "spacy"}, client)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "spacy"))
}
