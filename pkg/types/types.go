package types

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrEmptyID       = errors.New("id cannot be empty")
	ErrEmptyRelation = errors.New("relation cannot be empty")
	ErrEmptyQuery    = errors.New("query cannot be empty")
)

// Node represents a node in the knowledge graph. Nodes are owned by the
// graph store and are read-only during retrieval.
type Node struct {
	// ID is the stable identifier of the node within its graph snapshot.
	ID string `json:"id" mapstructure:"id"`
	// Name is the display text used when rendering paths and triples.
	// Loaders default it to ID when the source provides no separate name.
	Name string `json:"name" mapstructure:"name"`
	// Attributes carries optional node metadata (e.g. ontology id, type).
	Attributes map[string]string `json:"attributes,omitempty" mapstructure:"attributes"`
}

// Validate checks if the Node has all required fields set.
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrEmptyID
	}
	return nil
}

// DisplayText returns the text used to render this node in path text and
// triples, falling back to the identifier when no name is set.
func (n *Node) DisplayText() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// Neighbor represents one outgoing labeled edge as seen from its source
// node. A node pair may carry multiple neighbors with distinct relations
// (multigraph semantics).
type Neighbor struct {
	// Relation is the edge label.
	Relation string `json:"relation" mapstructure:"relation"`
	// TargetID is the identifier of the node the edge points to.
	TargetID string `json:"target_id" mapstructure:"target_id"`
	// Attributes carries optional edge metadata.
	Attributes map[string]string `json:"attributes,omitempty" mapstructure:"attributes"`
}

// Validate checks if the Neighbor has all required fields set.
func (e *Neighbor) Validate() error {
	if e.TargetID == "" {
		return ErrEmptyID
	}
	if e.Relation == "" {
		return ErrEmptyRelation
	}
	return nil
}

// Triple is one (head, relation, tail) evidence unit derived from a path
// hop window. Head and Tail hold display texts, not identifiers.
type Triple struct {
	Head     string `json:"head"`
	Relation string `json:"relation"`
	Tail     string `json:"tail"`
}

// String renders the triple in the "(head, relation, tail)" form used for
// oracle prompts and answer provenance.
func (t Triple) String() string {
	return fmt.Sprintf("(%s, %s, %s)", t.Head, t.Relation, t.Tail)
}

// TripleStrings renders a triple list to its string forms, in order.
func TripleStrings(triples []Triple) []string {
	out := make([]string, len(triples))
	for i, t := range triples {
		out[i] = t.String()
	}
	return out
}

// ContextKey is the type used for request-scoped values placed on a
// context by the HTTP server middleware.
type ContextKey string

const (
	// ContextKeyRequestID carries the per-request UUID.
	ContextKeyRequestID ContextKey = "request_id"
	// ContextKeyLogger carries the request-scoped *slog.Logger.
	ContextKeyLogger ContextKey = "logger"
	// ContextKeyOperation carries the retrieval phase that issued a
	// downstream call (seed, prune, reason, generate).
	ContextKeyOperation ContextKey = "operation"
)
