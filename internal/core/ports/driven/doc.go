// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Embedder: Generates vector embeddings for queries and chunks
//   - VectorSearcher: Nearest-neighbour search over stored embeddings
//   - LexicalIndex: BM25 keyword relevance over the chunk corpus
//   - CompletionService: Language model text generation
//   - DocumentStore: Document and chunk persistence
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - CacheBackend: Response caching. Without it, every query is computed fresh.
//   - Metrics: Observability. Without it, nothing is recorded.
package driven
