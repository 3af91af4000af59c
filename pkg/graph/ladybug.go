//go:build cgo

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ladybug "github.com/LadybugDB/go-ladybug"
	"github.com/soundprediction/percorso/pkg/types"
)

// ladybugSchemaQueries defines the graph schema. Ladybug requires explicit
// node and rel tables.
const ladybugSchemaQueries = `
    CREATE NODE TABLE IF NOT EXISTS GraphNode (
        id STRING PRIMARY KEY,
        name STRING,
        attributes STRING
    );
    CREATE REL TABLE IF NOT EXISTS RELATES (
        FROM GraphNode TO GraphNode,
        relation STRING,
        attributes STRING
    );
`

// LadybugStore is a graph store backed by the embedded Ladybug database.
// The underlying C++ library is not thread-safe, so all access is serialized
// through a mutex.
type LadybugStore struct {
	db           *ladybug.Database
	conn         *ladybug.Connection
	dbPath       string
	tempDbPath   string // non-empty when reading a temp copy of a locked database
	originalPath string
	mu           sync.Mutex
}

// LadybugOptions holds configuration for the Ladybug store.
type LadybugOptions struct {
	// DBPath is the database path (defaults to ":memory:").
	DBPath string

	// BufferPoolSize in bytes (defaults to 1GB).
	BufferPoolSize uint64

	// MaxConcurrentQueries (defaults to 1).
	MaxConcurrentQueries int
}

// NewLadybugStore opens (or creates) a Ladybug database at dbPath.
//
// If the database is locked by another process, the store copies it to a
// temporary location and opens the copy, allowing read access while the
// original stays locked.
func NewLadybugStore(dbPath string) (*LadybugStore, error) {
	return NewLadybugStoreWithOptions(LadybugOptions{DBPath: dbPath})
}

// NewLadybugStoreWithOptions opens a store with custom configuration.
func NewLadybugStoreWithOptions(opts LadybugOptions) (*LadybugStore, error) {
	if opts.DBPath == "" {
		opts.DBPath = ":memory:"
	}
	if opts.BufferPoolSize == 0 {
		opts.BufferPoolSize = 1 << 30 // 1GB
	}
	if opts.MaxConcurrentQueries <= 0 {
		opts.MaxConcurrentQueries = 1
	}

	systemConfig := ladybug.SystemConfig{
		BufferPoolSize:    opts.BufferPoolSize,
		MaxNumThreads:     uint64(opts.MaxConcurrentQueries),
		EnableCompression: true,
		ReadOnly:          false,
		MaxDbSize:         1 << 43,
	}

	originalPath := opts.DBPath
	dbPath := opts.DBPath
	tempDbPath := ""

	database, err := ladybug.OpenDatabase(dbPath, systemConfig)
	if err != nil {
		if !isLockError(err) || dbPath == ":memory:" {
			return nil, fmt.Errorf("failed to open ladybug database: %w", err)
		}

		// Locked by another process: copy to a temp location and open the copy.
		slog.Info("ladybug database locked, opening temporary copy", "path", dbPath)

		tempDir, tmpErr := os.MkdirTemp("", "ladybug_readonly_*")
		if tmpErr != nil {
			return nil, fmt.Errorf("failed to create temp directory: %w", tmpErr)
		}

		tempDbPath = filepath.Join(tempDir, filepath.Base(dbPath))
		if copyErr := copyDir(dbPath, tempDbPath); copyErr != nil {
			os.RemoveAll(tempDir)
			return nil, fmt.Errorf("failed to copy locked database: %w", copyErr)
		}

		database, err = ladybug.OpenDatabase(tempDbPath, systemConfig)
		if err != nil {
			os.RemoveAll(tempDir)
			return nil, fmt.Errorf("failed to open database copy: %w", err)
		}
		dbPath = tempDbPath
	}

	conn, err := ladybug.OpenConnection(database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to open ladybug connection: %w", err)
	}

	store := &LadybugStore{
		db:           database,
		conn:         conn,
		dbPath:       dbPath,
		tempDbPath:   tempDbPath,
		originalPath: originalPath,
	}

	store.setupSchema()
	return store, nil
}

// Close releases the connection and database, removing any temporary copy.
func (s *LadybugStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	if s.tempDbPath != "" {
		os.RemoveAll(filepath.Dir(s.tempDbPath))
		s.tempDbPath = ""
	}
	return nil
}

func (s *LadybugStore) setupSchema() {
	for _, query := range strings.Split(ladybugSchemaQueries, ";") {
		query = strings.TrimSpace(query)
		if query == "" {
			continue
		}
		if _, err := s.executeQuery(query, nil); err != nil {
			slog.Warn("ladybug schema statement failed", "error", err)
		}
	}
}

// executeQuery runs a Cypher query and returns rows as column-name keyed maps.
func (s *LadybugStore) executeQuery(query string, params map[string]any) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, fmt.Errorf("ladybug store is closed")
	}

	var results *ladybug.QueryResult
	var err error

	if len(params) > 0 {
		prepared, err := s.conn.Prepare(query)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare ladybug query: %w", err)
		}
		results, err = s.conn.Execute(prepared, params)
		if err != nil {
			return nil, fmt.Errorf("failed to execute ladybug query: %w", err)
		}
	} else {
		results, err = s.conn.Query(query)
		if err != nil {
			return nil, fmt.Errorf("failed to execute ladybug query: %w", err)
		}
	}

	defer results.Close()

	columnNames := results.GetColumnNames()

	var rows []map[string]any
	for results.HasNext() {
		row, err := results.Next()
		if err != nil {
			continue
		}
		values, err := row.GetAsSlice()
		if err != nil {
			continue
		}

		rowDict := make(map[string]any, len(values))
		for i, value := range values {
			if i < len(columnNames) {
				rowDict[columnNames[i]] = value
			}
		}
		rows = append(rows, rowDict)
	}

	return rows, nil
}

// PutNode inserts or replaces a node.
func (s *LadybugStore) PutNode(ctx context.Context, node types.Node) error {
	if err := node.Validate(); err != nil {
		return fmt.Errorf("invalid node: %w", err)
	}

	attrs, err := encodeAttributes(node.Attributes)
	if err != nil {
		return err
	}

	exists, err := s.HasNode(ctx, node.ID)
	if err != nil {
		return err
	}

	params := map[string]any{
		"id":         node.ID,
		"name":       node.Name,
		"attributes": attrs,
	}

	if exists {
		_, err = s.executeQuery(`
			MATCH (n:GraphNode)
			WHERE n.id = $id
			SET n.name = $name, n.attributes = $attributes
		`, params)
	} else {
		_, err = s.executeQuery(`
			CREATE (n:GraphNode {id: $id, name: $name, attributes: $attributes})
		`, params)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert node %q: %w", node.ID, err)
	}
	return nil
}

// PutEdge inserts or replaces the outgoing edge (relation, target) of the
// source node. Both endpoints must already exist.
func (s *LadybugStore) PutEdge(ctx context.Context, sourceID string, neighbor types.Neighbor) error {
	if err := neighbor.Validate(); err != nil {
		return fmt.Errorf("invalid edge: %w", err)
	}

	for _, id := range []string{sourceID, neighbor.TargetID} {
		exists, err := s.HasNode(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("edge endpoint %q: %w", id, ErrNodeNotFound)
		}
	}

	attrs, err := encodeAttributes(neighbor.Attributes)
	if err != nil {
		return err
	}

	params := map[string]any{
		"source":     sourceID,
		"target":     neighbor.TargetID,
		"relation":   neighbor.Relation,
		"attributes": attrs,
	}

	existing, err := s.executeQuery(`
		MATCH (a:GraphNode)-[r:RELATES]->(b:GraphNode)
		WHERE a.id = $source AND b.id = $target AND r.relation = $relation
		RETURN r.relation
	`, params)
	if err != nil {
		return fmt.Errorf("failed to check edge: %w", err)
	}

	if len(existing) > 0 {
		_, err = s.executeQuery(`
			MATCH (a:GraphNode)-[r:RELATES]->(b:GraphNode)
			WHERE a.id = $source AND b.id = $target AND r.relation = $relation
			SET r.attributes = $attributes
		`, params)
	} else {
		_, err = s.executeQuery(`
			MATCH (a:GraphNode), (b:GraphNode)
			WHERE a.id = $source AND b.id = $target
			CREATE (a)-[:RELATES {relation: $relation, attributes: $attributes}]->(b)
		`, params)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

// Node returns the node with the given ID.
func (s *LadybugStore) Node(ctx context.Context, id string) (*types.Node, error) {
	rows, err := s.executeQuery(`
		MATCH (n:GraphNode)
		WHERE n.id = $id
		RETURN n.id AS id, n.name AS name, n.attributes AS attributes
	`, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("node %q: %w", id, ErrNodeNotFound)
	}

	return nodeFromRow(rows[0])
}

// Neighbors returns the outgoing edges of a node sorted by relation then
// target ID.
func (s *LadybugStore) Neighbors(ctx context.Context, id string) ([]types.Neighbor, error) {
	exists, err := s.HasNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("node %q: %w", id, ErrNodeNotFound)
	}

	rows, err := s.executeQuery(`
		MATCH (n:GraphNode)-[r:RELATES]->(m:GraphNode)
		WHERE n.id = $id
		RETURN r.relation AS relation, m.id AS target, r.attributes AS attributes
	`, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}

	neighbors := make([]types.Neighbor, 0, len(rows))
	for _, row := range rows {
		relation, _ := row["relation"].(string)
		target, _ := row["target"].(string)
		attrs, err := decodeAttributes(row["attributes"])
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, types.Neighbor{
			Relation:   relation,
			TargetID:   target,
			Attributes: attrs,
		})
	}

	sortNeighbors(neighbors)
	return neighbors, nil
}

// FindNodes returns the nodes whose display text matches name, folding case
// and surrounding whitespace. A node with an empty name is matched by its ID,
// mirroring DisplayText.
func (s *LadybugStore) FindNodes(ctx context.Context, name string) ([]types.Node, error) {
	rows, err := s.executeQuery(`
		MATCH (n:GraphNode)
		WHERE lower(CASE WHEN n.name = '' THEN n.id ELSE n.name END) = $name
		RETURN n.id AS id, n.name AS name, n.attributes AS attributes
		ORDER BY n.id
	`, map[string]any{"name": foldName(name)})
	if err != nil {
		return nil, err
	}

	nodes := make([]types.Node, 0, len(rows))
	for _, row := range rows {
		node, err := nodeFromRow(row)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}
	return nodes, nil
}

// HasNode reports whether the node exists.
func (s *LadybugStore) HasNode(ctx context.Context, id string) (bool, error) {
	rows, err := s.executeQuery(`
		MATCH (n:GraphNode)
		WHERE n.id = $id
		RETURN n.id
		LIMIT 1
	`, map[string]any{"id": id})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// NodeIDs returns all node IDs in lexicographic order.
func (s *LadybugStore) NodeIDs(ctx context.Context) ([]string, error) {
	rows, err := s.executeQuery(`
		MATCH (n:GraphNode)
		RETURN n.id AS id
		ORDER BY n.id
	`, nil)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id, ok := row["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Stats returns graph-level counts.
func (s *LadybugStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{LastUpdated: time.Now().UTC()}

	rows, err := s.executeQuery(`MATCH (n:GraphNode) RETURN count(n) AS c`, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		stats.NodeCount = toInt64(rows[0]["c"])
	}

	rows, err = s.executeQuery(`MATCH ()-[r:RELATES]->() RETURN count(r) AS c`, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		stats.EdgeCount = toInt64(rows[0]["c"])
	}

	return stats, nil
}

func nodeFromRow(row map[string]any) (*types.Node, error) {
	id, _ := row["id"].(string)
	name, _ := row["name"].(string)
	attrs, err := decodeAttributes(row["attributes"])
	if err != nil {
		return nil, err
	}
	return &types.Node{ID: id, Name: name, Attributes: attrs}, nil
}

func encodeAttributes(attrs map[string]string) (string, error) {
	if len(attrs) == 0 {
		return "", nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("failed to encode attributes: %w", err)
	}
	return string(data), nil
}

func decodeAttributes(value any) (map[string]string, error) {
	raw, ok := value.(string)
	if !ok || raw == "" {
		return nil, nil
	}
	var attrs map[string]string
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}
	return attrs, nil
}

func toInt64(value any) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// isLockError checks if an error is due to a file lock held by another process.
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "lock") ||
		strings.Contains(errStr, "in use") ||
		strings.Contains(errStr, "busy")
}

// copyDir recursively copies a directory from src to dst.
func copyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	if !srcInfo.IsDir() {
		return copyFile(src, dst)
	}

	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
		} else {
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}

	return nil
}

// copyFile copies a single file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, srcInfo.Mode())
}
