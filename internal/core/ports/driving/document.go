package driving

import (
	"context"
	"io"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
)

// DocumentService manages documents in the corpus store.
type DocumentService interface {
	// Import reads JSON lines ({"title","body","parent_id"}) and stores one document per line.
	Import(ctx context.Context, r io.Reader) (ImportReport, error)

	// List returns a page of documents with id > afterID.
	List(ctx context.Context, afterID int64, limit int) ([]domain.Document, error)

	// Get retrieves a document by id.
	Get(ctx context.Context, id int64) (*domain.Document, error)

	// Details returns a document with its derived signals.
	Details(ctx context.Context, id int64) (*DocumentDetails, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Topics returns the topics of the latest fit ordered by id.
	Topics(ctx context.Context) ([]domain.Topic, error)
}

// ImportReport summarises a document import.
type ImportReport struct {
	Imported int     `json:"imported"`
	Skipped  int     `json:"skipped"`
	IDs      []int64 `json:"ids"`
}

// DocumentDetails is a document together with every signal stored for it.
type DocumentDetails struct {
	Document  domain.Document         `json:"document"`
	Entities  []domain.Entity         `json:"entities"`
	Topics    []domain.DocumentTopic  `json:"topics"`
	Sentiment *domain.SentimentScores `json:"sentiment,omitempty"`
}
