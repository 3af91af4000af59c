package graph_test

import (
	"context"
	"strings"
	"testing"

	"github.com/soundprediction/percorso/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTriplesCSV(t *testing.T) {
	csvData := `head,relation,tail
Rome,capital of,Italy
Rome,crossed by,Tiber
Italy,member of,European Union
`
	ctx := context.Background()
	store := graph.NewMemoryStore()

	result, err := graph.LoadTriplesCSV(ctx, strings.NewReader(csvData), store)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Nodes)
	assert.Equal(t, 3, result.Edges)

	neighbors, err := store.Neighbors(ctx, "Rome")
	require.NoError(t, err)
	require.Len(t, neighbors, 2)
	assert.Equal(t, "capital of", neighbors[0].Relation)
	assert.Equal(t, "Italy", neighbors[0].TargetID)
	assert.Equal(t, "crossed by", neighbors[1].Relation)

	node, err := store.Node(ctx, "Tiber")
	require.NoError(t, err)
	assert.Equal(t, "Tiber", node.Name)
}

func TestLoadTriplesCSVNoHeader(t *testing.T) {
	csvData := "Paris,capital of,France\n"
	ctx := context.Background()
	store := graph.NewMemoryStore()

	result, err := graph.LoadTriplesCSV(ctx, strings.NewReader(csvData), store)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Nodes)
	assert.Equal(t, 1, result.Edges)

	exists, err := store.HasNode(ctx, "Paris")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLoadTriplesCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"too few columns", "a,b\n"},
		{"empty relation", "a,,b\n"},
		{"empty head", ",r,b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := graph.NewMemoryStore()
			_, err := graph.LoadTriplesCSV(context.Background(), strings.NewReader(tt.csv), store)
			assert.Error(t, err)
		})
	}
}

func TestLoadTriplesCSVDuplicateEntities(t *testing.T) {
	csvData := "a,r1,b\na,r2,b\nb,r1,a\n"
	ctx := context.Background()
	store := graph.NewMemoryStore()

	result, err := graph.LoadTriplesCSV(ctx, strings.NewReader(csvData), store)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Nodes, "entities are created once")
	assert.Equal(t, 3, result.Edges)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.NodeCount)
	assert.Equal(t, int64(3), stats.EdgeCount)
}

func TestLoadJSON(t *testing.T) {
	doc := `{
		"nodes": [
			{"id": "q1", "name": "Douglas Adams", "attributes": {"type": "person"}},
			{"id": "q2", "name": "Hitchhiker's Guide"}
		],
		"edges": [
			{"source": "q1", "relation": "author of", "target": "q2"},
			{"source": "q2", "relation": "genre", "target": "science fiction"}
		]
	}`

	ctx := context.Background()
	store := graph.NewMemoryStore()

	result, err := graph.LoadJSON(ctx, strings.NewReader(doc), store)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Nodes, "undeclared edge endpoints become bare nodes")
	assert.Equal(t, 2, result.Edges)

	node, err := store.Node(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, "Douglas Adams", node.Name)
	assert.Equal(t, "person", node.Attributes["type"])

	bare, err := store.Node(ctx, "science fiction")
	require.NoError(t, err)
	assert.Equal(t, "science fiction", bare.Name)
}

func TestLoadYAML(t *testing.T) {
	doc := `
nodes:
  - id: rome
    name: Rome
edges:
  - source: rome
    relation: capital of
    target: italy
    attributes:
      since: "1871"
`
	ctx := context.Background()
	store := graph.NewMemoryStore()

	result, err := graph.LoadYAML(ctx, strings.NewReader(doc), store)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Nodes)
	assert.Equal(t, 1, result.Edges)

	neighbors, err := store.Neighbors(ctx, "rome")
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, "italy", neighbors[0].TargetID)
	assert.Equal(t, "1871", neighbors[0].Attributes["since"])
}

func TestLoadJSONInvalid(t *testing.T) {
	store := graph.NewMemoryStore()
	_, err := graph.LoadJSON(context.Background(), strings.NewReader("{not json"), store)
	assert.Error(t, err)
}

func TestLoadYAMLInvalid(t *testing.T) {
	store := graph.NewMemoryStore()
	_, err := graph.LoadYAML(context.Background(), strings.NewReader(":\n  - ["), store)
	assert.Error(t, err)
}
