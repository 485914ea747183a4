// Package domain defines the core business entities for the Trinity news indexer.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A segmented newspaper article held in the corpus store
//   - Entity: A typed span extracted from a document's cleaned text
//   - SentimentRecord, Topic, DocumentTopic, GeocodedLocation: derived signals
//   - EmbeddingVector: A dense vector with its byte and numeric representations
//   - QueryResult: The merged answer of a federated query
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
