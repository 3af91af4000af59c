// Package graph provides the knowledge graph storage layer.
//
// The retrieval engine reads the graph through the Store interface: node
// lookup, outgoing-edge expansion, and corpus enumeration. Graphs are built
// ahead of time through the Writer interface, either programmatically or with
// the file and database loaders in this package.
//
// # Implementations
//
//   - MemoryStore: in-process adjacency maps
//   - BadgerStore: persistent key-value backed store (BadgerDB)
//   - LadybugStore: embedded graph database (requires CGO)
//
// # Loaders
//
//   - LoadTriplesCSV: head,relation,tail rows
//   - LoadJSON / LoadYAML: node and edge documents
//   - LoadNeo4j: stream an existing Neo4j database into a Writer
//
// Every store returns edges sorted by relation then target ID, so a walk over
// the same snapshot expands the same way regardless of backend.
package graph
