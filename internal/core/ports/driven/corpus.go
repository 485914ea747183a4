package driven

import (
	"context"
	"time"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
)

// CorpusStore is the relational source of truth for documents and every derived signal.
// Each enrichment stage writes its own tables through a BatchTx; readers use the
// query methods directly.
type CorpusStore interface {
	DocumentReader
	EntityReader
	SignalReader
	IndexMirror

	// BeginBatch opens the single transaction an enrichment batch commits.
	BeginBatch(ctx context.Context) (BatchTx, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// DocumentReader exposes documents and keyset pages over filtered subsets.
// Every page method returns rows with id > afterID in ascending id order,
// at most limit rows. Rows that leave the filter behind the cursor cannot shift
// later pages.
type DocumentReader interface {
	// SaveDocument inserts a document (ingestion) and returns its id.
	SaveDocument(ctx context.Context, doc *domain.Document) (int64, error)

	// GetDocument retrieves a document by id.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// ListDocuments returns a page of documents regardless of enrichment state.
	ListDocuments(ctx context.Context, afterID int64, limit int) ([]domain.Document, error)

	// PendingDocuments returns documents with no stage mark for stage.
	PendingDocuments(ctx context.Context, stage domain.StageName, afterID int64, limit int) ([]domain.Document, error)

	// DocumentsWithoutEmbedding returns documents with no embeddings row.
	DocumentsWithoutEmbedding(ctx context.Context, afterID int64, limit int) ([]domain.Document, error)

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)
}

// EntityReader exposes entity rows.
type EntityReader interface {
	// EntitiesForDocument returns a document's entities ordered by start offset.
	EntitiesForDocument(ctx context.Context, documentID int64) ([]domain.Entity, error)

	// PendingEntities returns entities of the given types with no stage mark for stage.
	PendingEntities(
		ctx context.Context, stage domain.StageName, types []domain.EntityType, afterID int64, limit int,
	) ([]domain.Entity, error)

	// FindEntities is an exact-match search on (value, type), ordered by entity id.
	FindEntities(ctx context.Context, value string, typ domain.EntityType, limit int) ([]domain.EntityMatch, error)
}

// SignalReader exposes the derived-signal tables to the query side.
type SignalReader interface {
	// LocationForValue returns the coordinates stored for any entity whose value
	// matches name case-insensitively.
	LocationForValue(ctx context.Context, name string) (*domain.GeoPoint, error)

	// LocationsWithin returns geocoded entities inside the box. The caller applies
	// the exact great-circle filter.
	LocationsWithin(ctx context.Context, box domain.BoundingBox) ([]domain.GeoMatch, error)

	// GetSentiment returns the sentiment record for a subject.
	GetSentiment(ctx context.Context, kind domain.SubjectKind, subjectID int64) (*domain.SentimentRecord, error)

	// TopicsForDocument returns a document's topic weights, heaviest first.
	TopicsForDocument(ctx context.Context, documentID int64) ([]domain.DocumentTopic, error)

	// ListTopics returns every stored topic.
	ListTopics(ctx context.Context) ([]domain.Topic, error)

	// Embeddings returns a page of embeddings ordered by document id.
	Embeddings(ctx context.Context, afterID int64, limit int) ([]domain.EmbeddingVector, error)

	// CountEmbeddings returns the number of stored embeddings.
	CountEmbeddings(ctx context.Context) (int, error)

	// LatestEmbeddingUpdate returns the newest embedding timestamp.
	LatestEmbeddingUpdate(ctx context.Context) (time.Time, error)
}

// BatchTx is one enrichment batch: exactly one commit. Apply isolates each
// item's writes so a persistence failure undoes only that item.
type BatchTx interface {
	// Apply runs fn against the batch. If fn returns an error every write fn made
	// is rolled back and the batch stays usable.
	Apply(ctx context.Context, fn func(w Writer) error) error

	// Commit makes every applied write durable.
	Commit() error

	// Rollback discards the batch. Safe to call after Commit.
	Rollback() error
}

// Writer holds the idempotent upserts available inside a batch.
type Writer interface {
	// InsertEntities inserts spans; duplicates of (document, type, start, end) are no-ops.
	// Returns the number of new rows.
	InsertEntities(ctx context.Context, entities []domain.Entity) (int, error)

	// InsertSentiment inserts a record; a second record for the same subject is a no-op.
	InsertSentiment(ctx context.Context, rec domain.SentimentRecord) (bool, error)

	// UpsertTopic inserts or relabels a topic.
	UpsertTopic(ctx context.Context, topic domain.Topic) error

	// PruneTopics deletes every topic not in keep, with its document weights.
	// Returns the number of topics removed.
	PruneTopics(ctx context.Context, keep []int) (int, error)

	// ReplaceDocumentTopics upserts a document's weights and drops its topics not in the set.
	ReplaceDocumentTopics(ctx context.Context, documentID int64, topics []domain.DocumentTopic) error

	// UpsertLocation stores an entity's geocode; an existing location is kept.
	UpsertLocation(ctx context.Context, loc domain.GeocodedLocation) (bool, error)

	// UpsertEmbedding stores both representations, replacing any previous vector.
	UpsertEmbedding(ctx context.Context, emb domain.EmbeddingVector) error

	// Mark records that a subject was processed by a stage in a run.
	Mark(ctx context.Context, stage domain.StageName, subjectID int64, runID string, status domain.MarkStatus) error
}

// IndexMirror is the durable (document_id, vector_bytes) copy a snapshot is built from.
type IndexMirror interface {
	// ReplaceIndexEntries rewrites the mirror to exactly the given vectors.
	ReplaceIndexEntries(ctx context.Context, entries []domain.EmbeddingVector) error

	// CountIndexEntries returns the mirror size.
	CountIndexEntries(ctx context.Context) (int, error)
}

// IndexSource is the part of the corpus store a vector index is built from.
type IndexSource interface {
	Embeddings(ctx context.Context, afterID int64, limit int) ([]domain.EmbeddingVector, error)
	CountEmbeddings(ctx context.Context) (int, error)
	LatestEmbeddingUpdate(ctx context.Context) (time.Time, error)
	IndexMirror
}
