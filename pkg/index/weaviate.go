package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateIndex stores node vectors in a Weaviate class with vectorizer
// "none"; all vectors are computed by the caller. Object IDs are derived
// from node IDs so re-indexing the same node replaces its object.
type WeaviateIndex struct {
	client *weaviate.Client
	class  string

	mu      sync.Mutex
	ensured bool
}

// NewWeaviateIndex connects to a Weaviate instance. The class is created on
// first write if it does not exist.
func NewWeaviateIndex(host, scheme, class string) (*WeaviateIndex, error) {
	if host == "" {
		return nil, fmt.Errorf("weaviate host is required")
	}
	if scheme == "" {
		scheme = "http"
	}
	if class == "" {
		class = "GraphNode"
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   host,
		Scheme: scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	return &WeaviateIndex{client: client, class: class}, nil
}

// Ready reports whether the Weaviate instance answers its readiness probe.
func (w *WeaviateIndex) Ready(ctx context.Context) error {
	ready, err := w.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate readiness check failed: %w", err)
	}
	if !ready {
		return fmt.Errorf("weaviate is not ready")
	}
	return nil
}

func (w *WeaviateIndex) ensureSchema(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ensured {
		return nil
	}

	_, err := w.client.Schema().ClassGetter().WithClassName(w.class).Do(ctx)
	if err == nil {
		w.ensured = true
		return nil
	}

	indexFilterable := true
	schema := &models.Class{
		Class:       w.class,
		Description: "Knowledge graph node with a caller-supplied embedding of its display text",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:            "nodeId",
				DataType:        []string{"text"},
				Description:     "Graph node identifier",
				IndexFilterable: &indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "name",
				DataType:     []string{"text"},
				Description:  "Node display text",
				Tokenization: "word",
			},
		},
	}

	if err := w.client.Schema().ClassCreator().WithClass(schema).Do(ctx); err != nil {
		return fmt.Errorf("failed to create weaviate class %q: %w", w.class, err)
	}

	w.ensured = true
	return nil
}

// objectID derives a stable Weaviate object ID from a node ID.
func (w *WeaviateIndex) objectID(nodeID string) strfmt.UUID {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(w.class+"/"+nodeID))
	return strfmt.UUID(id.String())
}

// Upsert writes entries in one batch. Zero-norm vectors are rejected before
// anything is sent.
func (w *WeaviateIndex) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	objects := make([]*models.Object, len(entries))
	for i, entry := range entries {
		if entry.ID == "" {
			return fmt.Errorf("index entry has empty id")
		}
		if _, err := Normalize(entry.Vector); err != nil {
			return fmt.Errorf("entry %q: %w", entry.ID, err)
		}
		objects[i] = &models.Object{
			Class: w.class,
			ID:    w.objectID(entry.ID),
			Properties: map[string]interface{}{
				"nodeId": entry.ID,
				"name":   entry.Name,
			},
			Vector: entry.Vector,
		}
	}

	if err := w.ensureSchema(ctx); err != nil {
		return err
	}

	result, err := w.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate batch write failed: %w", err)
	}

	for _, obj := range result {
		if obj.Result == nil || obj.Result.Errors == nil {
			continue
		}
		for _, item := range obj.Result.Errors.Error {
			if item != nil {
				return fmt.Errorf("weaviate object write failed: %s", item.Message)
			}
		}
	}

	return nil
}

// Query runs a nearVector search and converts Weaviate certainty back to
// cosine similarity (certainty = (1 + cosine) / 2 under the default cosine
// distance metric).
func (w *WeaviateIndex) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	if _, err := Normalize(vector); err != nil {
		return nil, err
	}

	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	fields := []graphql.Field{
		{Name: "nodeId"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	result, err := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate query error: %s", result.Errors[0].Message)
	}

	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	objects, ok := data[w.class].([]interface{})
	if !ok {
		return nil, nil
	}

	hits := make([]Hit, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		nodeID, _ := m["nodeId"].(string)
		if nodeID == "" {
			continue
		}

		var certainty float64
		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			if c, ok := additional["certainty"].(float64); ok {
				certainty = c
			}
		}

		hits = append(hits, Hit{ID: nodeID, Score: certainty*2 - 1})
	}

	// Weaviate already ranks by certainty but leaves equal-score hits in an
	// arbitrary order; re-sorting makes the tie-break deterministic.
	sortHits(hits)
	return hits, nil
}

// Count returns the number of objects in the class.
func (w *WeaviateIndex) Count(ctx context.Context) (int, error) {
	result, err := w.client.GraphQL().Aggregate().
		WithClassName(w.class).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("weaviate aggregate failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("weaviate aggregate error: %s", result.Errors[0].Message)
	}

	data, ok := result.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	rows, ok := data[w.class].([]interface{})
	if !ok || len(rows) == 0 {
		return 0, nil
	}
	row, ok := rows[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := row["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	count, _ := meta["count"].(float64)
	return int(count), nil
}

// Close is a no-op; the underlying client is stateless HTTP.
func (w *WeaviateIndex) Close() error { return nil }
