// Package index provides node similarity indexes over embedding vectors.
//
// An Index maps node IDs to embeddings of their display text and answers
// top-k nearest queries by cosine similarity. Two implementations are
// provided:
//
//   - BruteIndex: in-memory exact search, suitable for graphs up to a few
//     hundred thousand nodes and for tests.
//   - WeaviateIndex: approximate search backed by a Weaviate instance,
//     with vectors supplied by the caller (vectorizer "none").
//
// IndexStore walks a graph store and populates an index from it, embedding
// node display texts in batches.
package index
