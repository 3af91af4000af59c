package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	defaultRemoteTimeout   = 30 * time.Second
	defaultRemoteThreshold = 0.5
)

// RemoteExtractor calls a GLiNER-style span extraction service over HTTP.
// The service accepts task-based JSON requests and returns mentions grouped
// by label.
type RemoteExtractor struct {
	endpoint   string
	apiKey     string
	labels     []string
	threshold  float64
	httpClient *http.Client
}

type extractRequest struct {
	Task      string   `json:"task"`
	Text      string   `json:"text"`
	Schema    []string `json:"schema"`
	Threshold float64  `json:"threshold,omitempty"`
}

type extractedSpan struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
	Start      int     `json:"start,omitempty"`
	End        int     `json:"end,omitempty"`
}

type entityResult struct {
	Entities map[string][]extractedSpan `json:"entities"`
}

// NewRemoteExtractor creates an extractor backed by a remote span
// extraction service. apiKey may be empty for unauthenticated services.
func NewRemoteExtractor(endpoint, apiKey string, labels []string, threshold float64) (*RemoteExtractor, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("remote extractor requires an endpoint")
	}
	if len(labels) == 0 {
		labels = defaultSpanLabels
	}
	if threshold <= 0 {
		threshold = defaultRemoteThreshold
	}

	return &RemoteExtractor{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		labels:     labels,
		threshold:  threshold,
		httpClient: &http.Client{Timeout: defaultRemoteTimeout},
	}, nil
}

// Health probes the service health endpoint.
func (e *RemoteExtractor) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}
	e.authorize(req)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// Extract posts the question to the service and returns the mention texts
// ordered by confidence.
func (e *RemoteExtractor) Extract(ctx context.Context, question string) ([]string, error) {
	reqBody, err := json.Marshal(extractRequest{
		Task:      "extract_entities",
		Text:      question,
		Schema:    e.labels,
		Threshold: e.threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/gliner-2", strings.NewReader(string(reqBody)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	e.authorize(req)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiError struct {
			Detail string `json:"detail"`
		}
		json.Unmarshal(body, &apiError)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, apiError.Detail)
	}

	var result entityResult
	envelope := struct {
		Result *entityResult `json:"result"`
	}{Result: &result}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// Mentions arrive grouped by label; flatten and order by confidence
	// with position and text breaking ties.
	var spans []extractedSpan
	for _, list := range result.Entities {
		spans = append(spans, list...)
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Confidence != spans[j].Confidence {
			return spans[i].Confidence > spans[j].Confidence
		}
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].Text < spans[j].Text
	})

	entities := make([]string, 0, len(spans))
	for _, s := range spans {
		entities = append(entities, s.Text)
	}
	return dedupeEntities(entities), nil
}

func (e *RemoteExtractor) authorize(req *http.Request) {
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
}

// Close is a no-op; the HTTP client holds no resources worth tearing down.
func (e *RemoteExtractor) Close() error { return nil }
