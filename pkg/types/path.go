package types

import "strings"

// Path is an ordered alternating sequence of node identifiers (even
// indices) and relation labels (odd indices). Its length is always odd.
// Paths are immutable; Extend returns a copy grown by one hop.
type Path []string

// NewPath returns a single-node path.
func NewPath(nodeID string) Path {
	return Path{nodeID}
}

// Tail returns the identifier of the last node on the path.
func (p Path) Tail() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Hops returns the number of relation traversals on the path.
func (p Path) Hops() int {
	return len(p) / 2
}

// Nodes returns the node identifiers on the path, in order.
func (p Path) Nodes() []string {
	nodes := make([]string, 0, len(p)/2+1)
	for i := 0; i < len(p); i += 2 {
		nodes = append(nodes, p[i])
	}
	return nodes
}

// ContainsNode reports whether the node identifier already occurs on the
// path. Used by the expander to keep paths cycle-free.
func (p Path) ContainsNode(nodeID string) bool {
	for i := 0; i < len(p); i += 2 {
		if p[i] == nodeID {
			return true
		}
	}
	return false
}

// Extend returns a new path one hop longer than the receiver. The receiver
// is never mutated; the backing array is copied so later extensions of
// sibling paths cannot alias each other.
func (p Path) Extend(relation, nodeID string) Path {
	next := make(Path, len(p), len(p)+2)
	copy(next, p)
	return append(next, relation, nodeID)
}

// Render flattens the path to the text scored by the pruner: display text
// for even indices, relation labels for odd ones, joined by single spaces.
// The resolver maps a node identifier to its display text.
func (p Path) Render(display func(nodeID string) string) string {
	parts := make([]string, len(p))
	for i, elem := range p {
		if i%2 == 0 {
			parts[i] = display(elem)
		} else {
			parts[i] = elem
		}
	}
	return strings.Join(parts, " ")
}

// Triples groups the path into consecutive (node, relation, node) windows.
// It uses the same even/odd convention as Render, so the evidence shown to
// the oracle always matches the text the pruner scored.
func (p Path) Triples(display func(nodeID string) string) []Triple {
	if len(p) < 3 {
		return nil
	}
	triples := make([]Triple, 0, len(p)/2)
	for i := 0; i+2 < len(p); i += 2 {
		triples = append(triples, Triple{
			Head:     display(p[i]),
			Relation: p[i+1],
			Tail:     display(p[i+2]),
		})
	}
	return triples
}
