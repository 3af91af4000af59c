package graph

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/soundprediction/percorso/pkg/types"
	"gopkg.in/yaml.v3"
)

// graphDocument is the on-disk shape shared by the JSON and YAML loaders.
type graphDocument struct {
	Nodes []types.Node `json:"nodes" yaml:"nodes"`
	Edges []edgeRecord `json:"edges" yaml:"edges"`
}

// edgeRecord is one directed edge in a graph document.
type edgeRecord struct {
	Source     string            `json:"source" yaml:"source"`
	Relation   string            `json:"relation" yaml:"relation"`
	Target     string            `json:"target" yaml:"target"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// LoadTriplesCSV reads (head, relation, tail) rows and writes them to w.
// Entities become nodes whose ID and Name are the entity text; rows sharing
// an entity reuse the node. A leading header row naming the columns is
// skipped. Rows with fewer than three columns are rejected; extra columns
// are ignored.
func LoadTriplesCSV(ctx context.Context, r io.Reader, w Writer) (*LoadResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &LoadResult{}
	seen := make(map[string]bool)
	line := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line++

		if line == 1 && isTripleHeader(record) {
			continue
		}
		if len(record) < 3 {
			return nil, fmt.Errorf("csv row %d: expected head, relation, tail", line)
		}

		head := strings.TrimSpace(record[0])
		relation := strings.TrimSpace(record[1])
		tail := strings.TrimSpace(record[2])
		if head == "" || relation == "" || tail == "" {
			return nil, fmt.Errorf("csv row %d: empty head, relation or tail", line)
		}

		for _, entity := range []string{head, tail} {
			if seen[entity] {
				continue
			}
			if err := w.PutNode(ctx, types.Node{ID: entity, Name: entity}); err != nil {
				return nil, err
			}
			seen[entity] = true
			result.Nodes++
		}

		err = w.PutEdge(ctx, head, types.Neighbor{Relation: relation, TargetID: tail})
		if err != nil {
			return nil, err
		}
		result.Edges++
	}

	return result, nil
}

func isTripleHeader(record []string) bool {
	if len(record) < 3 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(record[0]))
	second := strings.ToLower(strings.TrimSpace(record[1]))
	third := strings.ToLower(strings.TrimSpace(record[2]))
	if first == "head" && second == "relation" && third == "tail" {
		return true
	}
	return first == "subject" && second == "predicate" && third == "object"
}

// LoadJSON reads a graph document with explicit nodes and edges.
func LoadJSON(ctx context.Context, r io.Reader, w Writer) (*LoadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph document: %w", err)
	}
	var doc graphDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse graph json: %w", err)
	}
	return applyDocument(ctx, &doc, w)
}

// LoadYAML reads a graph document in YAML form.
func LoadYAML(ctx context.Context, r io.Reader, w Writer) (*LoadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph document: %w", err)
	}
	var doc graphDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse graph yaml: %w", err)
	}
	return applyDocument(ctx, &doc, w)
}

// applyDocument writes a parsed document: declared nodes first, then edges.
// Edge endpoints that were never declared become bare nodes so documents may
// list edges only.
func applyDocument(ctx context.Context, doc *graphDocument, w Writer) (*LoadResult, error) {
	result := &LoadResult{}
	seen := make(map[string]bool, len(doc.Nodes))

	for _, node := range doc.Nodes {
		if err := w.PutNode(ctx, node); err != nil {
			return nil, fmt.Errorf("node %q: %w", node.ID, err)
		}
		seen[node.ID] = true
		result.Nodes++
	}

	for i, edge := range doc.Edges {
		for _, id := range []string{edge.Source, edge.Target} {
			if id == "" || seen[id] {
				continue
			}
			if err := w.PutNode(ctx, types.Node{ID: id, Name: id}); err != nil {
				return nil, err
			}
			seen[id] = true
			result.Nodes++
		}

		err := w.PutEdge(ctx, edge.Source, types.Neighbor{
			Relation:   edge.Relation,
			TargetID:   edge.Target,
			Attributes: edge.Attributes,
		})
		if err != nil {
			return nil, fmt.Errorf("edge %d (%s -%s-> %s): %w",
				i, edge.Source, edge.Relation, edge.Target, err)
		}
		result.Edges++
	}

	return result, nil
}
