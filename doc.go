// Package percorso provides knowledge graph question answering for Go.
//
// Percorso answers natural language questions by walking a knowledge graph:
// it anchors the question at entity nodes, expands reasoning paths one hop at
// a time, prunes them to the most promising beam by embedding similarity, and
// asks a language model after each round whether the collected evidence
// already answers the question. Every answer carries the triples it was
// derived from.
//
// # Basic Usage
//
// Create a new Percorso client with the required components:
//
//	// Create a graph store
//	store := graph.NewMemoryStore()
//
//	// Create a similarity index
//	idx := index.NewBruteIndex()
//
//	// Create the reasoning client
//	nlpConfig := nlp.Config{Model: "gpt-4o-mini"}
//	nlpClient, err := nlp.NewOpenAIClient("your-api-key", nlpConfig)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Create the embedder
//	embConfig := embedder.Config{Model: "text-embedding-3-small"}
//	embedderClient := embedder.NewOpenAIEmbedder("your-api-key", embConfig)
//
//	// Create the Percorso client
//	client, err := percorso.NewClient(store, idx, embedderClient, nlpClient, nil, nil, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
// # Loading a Graph
//
// Stores are populated from triple CSV files, {nodes, edges} documents in
// JSON or YAML, or an existing Neo4j database, then indexed for similarity
// search:
//
//	if _, err := client.LoadGraphCSV(ctx, "triples.csv"); err != nil {
//		log.Fatal(err)
//	}
//	if _, err := client.IndexNodes(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// # Answering Questions
//
// Retrieve returns the answer together with its provenance and the reasoning
// paths that produced it:
//
//	result, err := client.Retrieve(ctx, "What does aspirin treat?", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println(result.Answer)
//	for _, triple := range result.Provenance {
//		fmt.Println("  ", triple)
//	}
//
// Ask is the short form when only the answer text matters:
//
//	answer, err := client.Ask(ctx, "What does aspirin treat?")
//
// # Bounding the Search
//
// Each call runs at most MaxDepth+1 search rounds and keeps at most TopN
// candidate paths after each round. Bounds come from the client configuration
// and can be overridden per call:
//
//	depth := 2
//	result, err := client.Retrieve(ctx, question, &percorso.RetrieveOptions{
//		MaxDepth: &depth,
//	})
//
// # Error Handling
//
// The library provides typed errors for common scenarios:
//
//   - ErrEmptyQuery: Returned when a question is blank
//   - ErrNodeNotFound: Returned when a requested node doesn't exist
//   - ErrStoreNotWritable: Returned when loading into a read-only store
//
// Failures of the store, index, embedder, or reasoning client surface as a
// retriever.RetrievalUnavailableError naming the failed component.
//
// # Architecture
//
// The library follows a modular architecture:
//
//   - pkg/graph: Graph store abstraction with memory, Badger, and Ladybug backends
//   - pkg/index: Node similarity index with brute-force and Weaviate backends
//   - pkg/nlp: Language model client interfaces with retry, circuit breaking, and token tracking
//   - pkg/embedder: Embedding model client interfaces
//   - pkg/extract: Entity extraction (LLM, GLiNER, rust-bert, remote)
//   - pkg/retriever: The bounded search loop
//   - pkg/types: Core type definitions
//
// This design allows easy extension with additional store backends, model
// providers, and extraction strategies.
package percorso
