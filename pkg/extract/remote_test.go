package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteExtractor(t *testing.T) {
	var gotRequest extractRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/gliner-2", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"entities": map[string][]map[string]any{
					"location": {
						{"text": "Rome", "confidence": 0.97, "start": 3},
						{"text": "Italy", "confidence": 0.91, "start": 23},
					},
					"concept": {
						{"text": "capital", "confidence": 0.55, "start": 12},
					},
				},
			},
		})
	}))
	defer server.Close()

	extractor, err := NewRemoteExtractor(server.URL, "test-key", []string{"location", "concept"}, 0.4)
	require.NoError(t, err)
	defer extractor.Close()

	entities, err := extractor.Extract(context.Background(), "Is Rome the capital of Italy?")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rome", "Italy", "capital"}, entities)

	assert.Equal(t, "extract_entities", gotRequest.Task)
	assert.Equal(t, "Is Rome the capital of Italy?", gotRequest.Text)
	assert.Equal(t, []string{"location", "concept"}, gotRequest.Schema)
	assert.InDelta(t, 0.4, gotRequest.Threshold, 1e-9)
}

func TestRemoteExtractorHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	extractor, err := NewRemoteExtractor(server.URL, "", nil, 0)
	require.NoError(t, err)

	assert.NoError(t, extractor.Health(context.Background()))
}

func TestRemoteExtractorAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "unknown task"})
	}))
	defer server.Close()

	extractor, err := NewRemoteExtractor(server.URL, "", nil, 0)
	require.NoError(t, err)

	_, err = extractor.Extract(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "unknown task")
}

func TestRemoteExtractorRequiresEndpoint(t *testing.T) {
	_, err := NewRemoteExtractor("", "", nil, 0)
	require.Error(t, err)
}
