// Package sqlite provides the SQLite implementation of driven.CorpusStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database holds the documents and every
// derived-signal table:
//
//   - documents, entities, sentiment_records
//   - topics, document_topics
//   - geocoded_locations, embeddings, vector_index_entries
//   - stage_marks: which subjects each enrichment stage has processed
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Batches
//
// An enrichment batch is one transaction. Each item's writes run inside a
// SAVEPOINT, so a failed item is rolled back alone and the batch commits once.
//
// # Data Location
//
// By default, the database is stored at ~/.trinity/data/corpus.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
