package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/soundprediction/percorso/pkg/types"
)

// MemoryStore is an in-process graph store backed by adjacency maps. Safe
// for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	nodes       map[string]types.Node
	adjacency   map[string][]types.Neighbor
	names       map[string][]string // folded display text -> node IDs, insertion order
	edgeCount   int64
	lastUpdated time.Time
}

// NewMemoryStore creates an empty in-memory graph store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:     make(map[string]types.Node),
		adjacency: make(map[string][]types.Neighbor),
		names:     make(map[string][]string),
	}
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// PutNode inserts or replaces a node.
func (s *MemoryStore) PutNode(ctx context.Context, node types.Node) error {
	if err := node.Validate(); err != nil {
		return fmt.Errorf("invalid node: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.nodes[node.ID]; ok {
		s.unindexName(existing.DisplayText(), existing.ID)
	}
	s.nodes[node.ID] = node
	s.indexName(node.DisplayText(), node.ID)
	s.lastUpdated = time.Now().UTC()
	return nil
}

func (s *MemoryStore) indexName(name, id string) {
	key := foldName(name)
	if key == "" {
		return
	}
	s.names[key] = append(s.names[key], id)
}

func (s *MemoryStore) unindexName(name, id string) {
	key := foldName(name)
	ids := s.names[key]
	for i, existing := range ids {
		if existing == id {
			s.names[key] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.names[key]) == 0 {
		delete(s.names, key)
	}
}

// PutEdge inserts or replaces the outgoing edge (relation, target) of the
// source node.
func (s *MemoryStore) PutEdge(ctx context.Context, sourceID string, neighbor types.Neighbor) error {
	if err := neighbor.Validate(); err != nil {
		return fmt.Errorf("invalid edge: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[sourceID]; !ok {
		return fmt.Errorf("edge source %q: %w", sourceID, ErrNodeNotFound)
	}
	if _, ok := s.nodes[neighbor.TargetID]; !ok {
		return fmt.Errorf("edge target %q: %w", neighbor.TargetID, ErrNodeNotFound)
	}

	edges := s.adjacency[sourceID]
	for i, existing := range edges {
		if existing.Relation == neighbor.Relation && existing.TargetID == neighbor.TargetID {
			edges[i] = neighbor
			s.lastUpdated = time.Now().UTC()
			return nil
		}
	}

	s.adjacency[sourceID] = append(edges, neighbor)
	s.edgeCount++
	s.lastUpdated = time.Now().UTC()
	return nil
}

// Node returns the node with the given ID.
func (s *MemoryStore) Node(ctx context.Context, id string) (*types.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %q: %w", id, ErrNodeNotFound)
	}
	copied := copyNode(node)
	return &copied, nil
}

// Neighbors returns the outgoing edges of a node sorted by
// (relation, target ID).
func (s *MemoryStore) Neighbors(ctx context.Context, id string) ([]types.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil, fmt.Errorf("node %q: %w", id, ErrNodeNotFound)
	}

	edges := s.adjacency[id]
	out := make([]types.Neighbor, len(edges))
	for i, edge := range edges {
		out[i] = copyNeighbor(edge)
	}
	sortNeighbors(out)
	return out, nil
}

// HasNode reports whether the node exists.
func (s *MemoryStore) HasNode(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.nodes[id]
	return ok, nil
}

// FindNodes returns the nodes whose display text matches name, folding case
// and surrounding whitespace. Results are ordered by node ID.
func (s *MemoryStore) FindNodes(ctx context.Context, name string) ([]types.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.names[foldName(name)]
	if len(ids) == 0 {
		return nil, nil
	}

	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	out := make([]types.Node, 0, len(sorted))
	for _, id := range sorted {
		if node, ok := s.nodes[id]; ok {
			out = append(out, copyNode(node))
		}
	}
	return out, nil
}

// NodeIDs returns all node IDs in lexicographic order.
func (s *MemoryStore) NodeIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Stats returns graph-level counts.
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Stats{
		NodeCount:   int64(len(s.nodes)),
		EdgeCount:   s.edgeCount,
		LastUpdated: s.lastUpdated,
	}, nil
}

func copyNode(node types.Node) types.Node {
	copied := node
	if node.Attributes != nil {
		copied.Attributes = make(map[string]string, len(node.Attributes))
		for k, v := range node.Attributes {
			copied.Attributes[k] = v
		}
	}
	return copied
}

func copyNeighbor(edge types.Neighbor) types.Neighbor {
	copied := edge
	if edge.Attributes != nil {
		copied.Attributes = make(map[string]string, len(edge.Attributes))
		for k, v := range edge.Attributes {
			copied.Attributes[k] = v
		}
	}
	return copied
}
