//go:build !cgo

package graph

import (
	"context"
	"errors"

	"github.com/soundprediction/percorso/pkg/types"
)

// ErrCGORequired is returned when the Ladybug store is used in a binary
// built without CGO.
var ErrCGORequired = errors.New("ladybug store requires CGO; rebuild with CGO_ENABLED=1")

// LadybugStore is a stub used when CGO is disabled. All operations return
// ErrCGORequired.
type LadybugStore struct{}

// LadybugOptions holds configuration for the Ladybug store.
type LadybugOptions struct {
	DBPath               string
	BufferPoolSize       uint64
	MaxConcurrentQueries int
}

// NewLadybugStore returns ErrCGORequired when built without CGO.
func NewLadybugStore(dbPath string) (*LadybugStore, error) {
	return nil, ErrCGORequired
}

// NewLadybugStoreWithOptions returns ErrCGORequired when built without CGO.
func NewLadybugStoreWithOptions(opts LadybugOptions) (*LadybugStore, error) {
	return nil, ErrCGORequired
}

func (s *LadybugStore) Close() error { return ErrCGORequired }

func (s *LadybugStore) PutNode(ctx context.Context, node types.Node) error {
	return ErrCGORequired
}

func (s *LadybugStore) PutEdge(ctx context.Context, sourceID string, neighbor types.Neighbor) error {
	return ErrCGORequired
}

func (s *LadybugStore) Node(ctx context.Context, id string) (*types.Node, error) {
	return nil, ErrCGORequired
}

func (s *LadybugStore) Neighbors(ctx context.Context, id string) ([]types.Neighbor, error) {
	return nil, ErrCGORequired
}

func (s *LadybugStore) HasNode(ctx context.Context, id string) (bool, error) {
	return false, ErrCGORequired
}

func (s *LadybugStore) FindNodes(ctx context.Context, name string) ([]types.Node, error) {
	return nil, ErrCGORequired
}

func (s *LadybugStore) NodeIDs(ctx context.Context) ([]string, error) {
	return nil, ErrCGORequired
}

func (s *LadybugStore) Stats(ctx context.Context) (*Stats, error) {
	return nil, ErrCGORequired
}
