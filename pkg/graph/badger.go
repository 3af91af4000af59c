package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/soundprediction/percorso/pkg/types"
)

// Key prefixes for BadgerDB storage organization.
const (
	prefixMeta = byte(0x00) // meta:lastUpdated -> unix nanos
	prefixNode = byte(0x01) // node:<id> -> JSON(Node)
	prefixAdj  = byte(0x02) // adj:<id>  -> JSON([]Neighbor)
	prefixName = byte(0x03) // name:<folded>\x00<id> -> nil
)

var metaLastUpdatedKey = []byte{prefixMeta, 'u'}

// BadgerStore is a persistent graph store backed by BadgerDB. Nodes and
// per-source adjacency lists are stored as JSON values. Safe for
// concurrent use.
type BadgerStore struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// DataDir is the directory for storing data files.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode. Useful for testing.
	InMemory bool

	// SyncWrites forces fsync after each write.
	SyncWrites bool
}

// NewBadgerStore opens (or creates) a persistent graph store at dataDir.
func NewBadgerStore(dataDir string) (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(BadgerOptions{DataDir: dataDir})
}

// NewBadgerStoreInMemory creates a memory-only store for testing.
func NewBadgerStoreInMemory() (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(BadgerOptions{InMemory: true})
}

// NewBadgerStoreWithOptions opens a store with custom configuration.
func NewBadgerStoreWithOptions(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	// Quiet logger and settings sized for modest graphs rather than the
	// BadgerDB defaults aimed at large write-heavy workloads.
	badgerOpts = badgerOpts.
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func nodeKey(id string) []byte {
	return append([]byte{prefixNode}, []byte(id)...)
}

func adjKey(id string) []byte {
	return append([]byte{prefixAdj}, []byte(id)...)
}

// nameKey maps a folded display text to a node ID. The zero byte separator
// cannot occur in folded text, so prefix scans never cross names.
func nameKey(name, id string) []byte {
	key := append([]byte{prefixName}, []byte(foldName(name))...)
	key = append(key, 0x00)
	return append(key, []byte(id)...)
}

// PutNode inserts or replaces a node, keeping the name index in step.
func (s *BadgerStore) PutNode(ctx context.Context, node types.Node) error {
	if err := node.Validate(); err != nil {
		return fmt.Errorf("invalid node: %w", err)
	}

	value, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("failed to encode node: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(node.ID))
		if err == nil {
			var existing types.Node
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return err
			}
			if existing.DisplayText() != node.DisplayText() {
				if err := txn.Delete(nameKey(existing.DisplayText(), existing.ID)); err != nil {
					return err
				}
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		if err := txn.Set(nodeKey(node.ID), value); err != nil {
			return err
		}
		if err := txn.Set(nameKey(node.DisplayText(), node.ID), nil); err != nil {
			return err
		}
		return touchLastUpdated(txn)
	})
}

// PutEdge inserts or replaces the outgoing edge (relation, target) of the
// source node. Both endpoints must already exist.
func (s *BadgerStore) PutEdge(ctx context.Context, sourceID string, neighbor types.Neighbor) error {
	if err := neighbor.Validate(); err != nil {
		return fmt.Errorf("invalid edge: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(nodeKey(sourceID)); err == badger.ErrKeyNotFound {
			return fmt.Errorf("edge source %q: %w", sourceID, ErrNodeNotFound)
		} else if err != nil {
			return err
		}
		if _, err := txn.Get(nodeKey(neighbor.TargetID)); err == badger.ErrKeyNotFound {
			return fmt.Errorf("edge target %q: %w", neighbor.TargetID, ErrNodeNotFound)
		} else if err != nil {
			return err
		}

		edges, err := readAdjacency(txn, sourceID)
		if err != nil {
			return err
		}

		replaced := false
		for i, existing := range edges {
			if existing.Relation == neighbor.Relation && existing.TargetID == neighbor.TargetID {
				edges[i] = neighbor
				replaced = true
				break
			}
		}
		if !replaced {
			edges = append(edges, neighbor)
		}

		value, err := json.Marshal(edges)
		if err != nil {
			return fmt.Errorf("failed to encode adjacency: %w", err)
		}
		if err := txn.Set(adjKey(sourceID), value); err != nil {
			return err
		}
		return touchLastUpdated(txn)
	})
}

// Node returns the node with the given ID.
func (s *BadgerStore) Node(ctx context.Context, id string) (*types.Node, error) {
	var node types.Node
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("node %q: %w", id, ErrNodeNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &node)
		})
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// Neighbors returns the outgoing edges of a node sorted by
// (relation, target ID).
func (s *BadgerStore) Neighbors(ctx context.Context, id string) ([]types.Neighbor, error) {
	var edges []types.Neighbor
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(nodeKey(id)); err == badger.ErrKeyNotFound {
			return fmt.Errorf("node %q: %w", id, ErrNodeNotFound)
		} else if err != nil {
			return err
		}

		var err error
		edges, err = readAdjacency(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if edges == nil {
		edges = []types.Neighbor{}
	}
	sortNeighbors(edges)
	return edges, nil
}

// HasNode reports whether the node exists.
func (s *BadgerStore) HasNode(ctx context.Context, id string) (bool, error) {
	exists := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(nodeKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

// FindNodes returns the nodes whose display text matches name, folding case
// and surrounding whitespace. Results are ordered by node ID.
func (s *BadgerStore) FindNodes(ctx context.Context, name string) ([]types.Node, error) {
	var nodes []types.Node
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := append([]byte{prefixName}, []byte(foldName(name))...)
		prefix = append(prefix, 0x00)

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])

			item, err := txn.Get(nodeKey(id))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			var node types.Node
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &node)
			}); err != nil {
				return err
			}
			nodes = append(nodes, node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// NodeIDs returns all node IDs in lexicographic order.
func (s *BadgerStore) NodeIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte{prefixNode}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			ids = append(ids, string(key[1:]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Stats returns graph-level counts.
func (s *BadgerStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		nodePrefix := []byte{prefixNode}
		for it.Seek(nodePrefix); it.ValidForPrefix(nodePrefix); it.Next() {
			stats.NodeCount++
		}

		adjPrefix := []byte{prefixAdj}
		for it.Seek(adjPrefix); it.ValidForPrefix(adjPrefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var edges []types.Neighbor
				if err := json.Unmarshal(val, &edges); err != nil {
					return err
				}
				stats.EdgeCount += int64(len(edges))
				return nil
			})
			if err != nil {
				return err
			}
		}

		item, err := txn.Get(metaLastUpdatedKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			nanos, err := strconv.ParseInt(string(val), 10, 64)
			if err != nil {
				return nil
			}
			stats.LastUpdated = time.Unix(0, nanos).UTC()
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func readAdjacency(txn *badger.Txn, id string) ([]types.Neighbor, error) {
	item, err := txn.Get(adjKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var edges []types.Neighbor
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &edges)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode adjacency: %w", err)
	}
	return edges, nil
}

func touchLastUpdated(txn *badger.Txn) error {
	return txn.Set(metaLastUpdatedKey, []byte(strconv.FormatInt(time.Now().UTC().UnixNano(), 10)))
}
