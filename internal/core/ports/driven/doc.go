// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - CorpusStore: Documents and every derived signal, written in batches
//   - ConfigStore: Application configuration
//   - VectorIndex, VectorIndexFactory: Exact nearest-neighbour search
//
// # Optional Interfaces
//
// These can be nil - the stage or query leg that needs them is disabled:
//
//   - EntityExtractor: NER model. Without it the entity stage and the entity leg are off.
//   - SentimentScorer: Sentiment model.
//   - TopicModel: Unsupervised topic model.
//   - Geocoder: Place name resolution.
//   - EmbeddingService: Document embeddings. Without it the semantic leg is off.
//   - SnapshotStore: Index persistence. Without it the index lives only in memory.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
