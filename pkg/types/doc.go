// Package types defines the core data types for the percorso retrieval engine.
//
// This package contains the fundamental types used throughout percorso:
//   - Node: an entity in the knowledge graph (identifier, display text, attributes)
//   - Neighbor: an outgoing labeled edge as seen from its source node
//   - Path: an alternating node/relation sequence representing one traversal candidate
//   - Triple: a (head, relation, tail) evidence unit derived from a path
//   - Message/Response: chat exchanges with the reasoning service
//   - RetrievalResult: the terminal output of one retrieval call
//
// # Paths
//
// A Path is an odd-length sequence [n0, r0, n1, r1, ..., nk] of node
// identifiers (even indices) and relation labels (odd indices). Paths are
// immutable: Extend returns a new Path and never mutates the receiver. A
// well-formed Path never repeats a node identifier.
//
// # Validation
//
// Types provide Validate() methods for input validation:
//
//	node := &types.Node{ID: "q42", Name: "aspirin"}
//	if err := node.Validate(); err != nil {
//	    // Handle validation error
//	}
package types
