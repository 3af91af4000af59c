package graph

import (
	"context"
	"fmt"
	"strconv"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/soundprediction/percorso/pkg/types"
)

// Neo4jSource describes a Neo4j database to import a graph from.
type Neo4jSource struct {
	URI      string
	Username string
	Password string
	Database string

	// NodeQuery overrides the default node export query. It must return
	// columns id, name and props.
	NodeQuery string

	// EdgeQuery overrides the default edge export query. It must return
	// columns source, relation, target and props.
	EdgeQuery string
}

const (
	defaultNodeQuery = `
		MATCH (n)
		RETURN coalesce(n.id, elementId(n)) AS id,
		       coalesce(n.name, n.id, elementId(n)) AS name,
		       properties(n) AS props
	`
	defaultEdgeQuery = `
		MATCH (a)-[r]->(b)
		RETURN coalesce(a.id, elementId(a)) AS source,
		       type(r) AS relation,
		       coalesce(b.id, elementId(b)) AS target,
		       properties(r) AS props
	`
)

// LoadResult reports how many nodes and edges a loader wrote.
type LoadResult struct {
	Nodes int
	Edges int
}

// LoadNeo4j streams all nodes and relationships from a Neo4j database into w.
// Nodes are written before edges so every edge endpoint already exists.
func LoadNeo4j(ctx context.Context, source Neo4jSource, w Writer) (*LoadResult, error) {
	driver, err := neo4j.NewDriverWithContext(source.URI,
		neo4j.BasicAuth(source.Username, source.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	defer driver.Close(ctx)

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: source.Database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	nodeQuery := source.NodeQuery
	if nodeQuery == "" {
		nodeQuery = defaultNodeQuery
	}
	edgeQuery := source.EdgeQuery
	if edgeQuery == "" {
		edgeQuery = defaultEdgeQuery
	}

	result := &LoadResult{}

	_, err = session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		rows, err := tx.Run(ctx, nodeQuery, nil)
		if err != nil {
			return nil, err
		}
		for rows.Next(ctx) {
			values := rows.Record().AsMap()
			node := types.Node{
				ID:         stringValue(values["id"]),
				Name:       stringValue(values["name"]),
				Attributes: stringifyProps(values["props"]),
			}
			if node.ID == "" {
				continue
			}
			if node.Name == "" {
				node.Name = node.ID
			}
			if err := w.PutNode(ctx, node); err != nil {
				return nil, err
			}
			result.Nodes++
		}
		return nil, rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export neo4j nodes: %w", err)
	}

	_, err = session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		rows, err := tx.Run(ctx, edgeQuery, nil)
		if err != nil {
			return nil, err
		}
		for rows.Next(ctx) {
			values := rows.Record().AsMap()
			sourceID := stringValue(values["source"])
			neighbor := types.Neighbor{
				Relation:   stringValue(values["relation"]),
				TargetID:   stringValue(values["target"]),
				Attributes: stringifyProps(values["props"]),
			}
			if sourceID == "" || neighbor.TargetID == "" || neighbor.Relation == "" {
				continue
			}
			if err := w.PutEdge(ctx, sourceID, neighbor); err != nil {
				return nil, err
			}
			result.Edges++
		}
		return nil, rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export neo4j edges: %w", err)
	}

	return result, nil
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func stringifyProps(value any) map[string]string {
	props, ok := value.(map[string]any)
	if !ok || len(props) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(props))
	for key, v := range props {
		if key == "id" || key == "name" {
			continue
		}
		attrs[key] = stringValue(v)
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}
