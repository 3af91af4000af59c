// Package retriever answers natural language questions by walking a labeled
// directed graph in bounded hops. One retrieval call runs a small state
// machine: seed starting nodes from the question's entities, then per depth
// expand every candidate path by one hop, prune the candidates to a fixed
// beam by embedding similarity, and ask a reasoning model whether the
// gathered evidence suffices. When it does, or when the depth budget runs
// out, the final paths are flattened into triples and synthesized into an
// answer with provenance.
//
// The pipeline for a single question is strictly sequential; independent
// questions may run concurrently because retrieval only reads the shared
// store and index.
package retriever
