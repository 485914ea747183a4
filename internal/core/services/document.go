package services

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
	"github.com/inorbit222/Trinity-News-Indexer/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// maxImportLine bounds one JSON line of an import.
const maxImportLine = 16 << 20

// importRecord is one line of a document import.
type importRecord struct {
	ParentID *int64 `json:"parent_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

// DocumentService manages documents in the corpus store.
type DocumentService struct {
	store driven.CorpusStore
}

// NewDocumentService creates a new document service.
func NewDocumentService(store driven.CorpusStore) *DocumentService {
	return &DocumentService{store: store}
}

// Import stores one document per JSON line. Blank lines are ignored; lines that
// do not parse or have an empty body are skipped and counted.
func (s *DocumentService) Import(ctx context.Context, r io.Reader) (driving.ImportReport, error) {
	report := driving.ImportReport{IDs: []int64{}}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}

		var rec importRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			logger.Warn("import line %d: %v", line, err)
			report.Skipped++
			continue
		}
		if strings.TrimSpace(rec.Body) == "" {
			logger.Warn("import line %d: empty body", line)
			report.Skipped++
			continue
		}

		id, err := s.store.SaveDocument(ctx, &domain.Document{ParentID: rec.ParentID, Title: rec.Title, Body: rec.Body})
		if err != nil {
			return report, fmt.Errorf("import line %d: %w", line, err)
		}
		report.Imported++
		report.IDs = append(report.IDs, id)
	}
	if err := sc.Err(); err != nil {
		return report, fmt.Errorf("read import: %w", err)
	}
	return report, nil
}

// List returns a page of documents with id > afterID.
func (s *DocumentService) List(ctx context.Context, afterID int64, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = domain.DefaultBatchSize
	}
	return s.store.ListDocuments(ctx, afterID, limit)
}

// Get retrieves a document by id.
func (s *DocumentService) Get(ctx context.Context, id int64) (*domain.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// Details returns a document with its entities, topics and document sentiment.
func (s *DocumentService) Details(ctx context.Context, id int64) (*driving.DocumentDetails, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	entities, err := s.store.EntitiesForDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("entities: %w", err)
	}
	topics, err := s.store.TopicsForDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("topics: %w", err)
	}

	details := &driving.DocumentDetails{Document: *doc, Entities: entities, Topics: topics}
	rec, err := s.store.GetSentiment(ctx, domain.SubjectDocument, id)
	switch {
	case err == nil:
		scores := rec.SentimentScores
		details.Sentiment = &scores
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("sentiment: %w", err)
	}
	return details, nil
}

// Count returns the number of stored documents.
func (s *DocumentService) Count(ctx context.Context) (int, error) {
	return s.store.CountDocuments(ctx)
}

// Topics returns every stored topic.
func (s *DocumentService) Topics(ctx context.Context) ([]domain.Topic, error) {
	topics, err := s.store.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("topics: %w", err)
	}
	if topics == nil {
		topics = []domain.Topic{}
	}
	return topics, nil
}
