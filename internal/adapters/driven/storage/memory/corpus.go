package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

// Ensure CorpusStore implements the interface.
var _ driven.CorpusStore = (*CorpusStore)(nil)

// ErrClosed is returned by a closed store.
var ErrClosed = errors.New("memory corpus store is closed")

type spanKey struct {
	documentID int64
	typ        domain.EntityType
	start, end int
}

type subjectKey struct {
	kind domain.SubjectKind
	id   int64
}

type markKey struct {
	stage domain.StageName
	id    int64
}

type stageMark struct {
	runID  string
	status domain.MarkStatus
	at     time.Time
}

// WriteHook is called before every batch write. A non-nil error fails the write.
type WriteHook func(op string, subjectID int64) error

// CorpusStore is an in-memory implementation of driven.CorpusStore for tests
// and small corpora.
//
// Batch writes reach the maps immediately and are journaled; Rollback (or a
// failed Apply) replays the journal backwards. Readers may therefore observe
// writes of a batch that has not committed yet.
type CorpusStore struct {
	mu sync.RWMutex

	nextDocument  int64
	nextEntity    int64
	nextSentiment int64

	documents  map[int64]domain.Document
	entities   map[int64]domain.Entity
	spans      map[spanKey]int64
	sentiment  map[subjectKey]domain.SentimentRecord
	topics     map[int]domain.Topic
	docTopics  map[int64]map[int]float64
	locations  map[int64]domain.GeocodedLocation
	embeddings map[int64]domain.EmbeddingVector
	marks      map[markKey]stageMark
	mirror     map[int64][]byte

	hook   WriteHook
	closed bool
}

// NewCorpusStore creates a new in-memory corpus store.
func NewCorpusStore() *CorpusStore {
	return &CorpusStore{
		documents:  make(map[int64]domain.Document),
		entities:   make(map[int64]domain.Entity),
		spans:      make(map[spanKey]int64),
		sentiment:  make(map[subjectKey]domain.SentimentRecord),
		topics:     make(map[int]domain.Topic),
		docTopics:  make(map[int64]map[int]float64),
		locations:  make(map[int64]domain.GeocodedLocation),
		embeddings: make(map[int64]domain.EmbeddingVector),
		marks:      make(map[markKey]stageMark),
		mirror:     make(map[int64][]byte),
	}
}

// SetWriteHook installs a hook used to inject write failures.
func (s *CorpusStore) SetWriteHook(hook WriteHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Ping verifies the store is open.
func (s *CorpusStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the store closed.
func (s *CorpusStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// page returns up to limit values of m with key > after, in key order.
func page[V any](m map[int64]V, after int64, limit int, keep func(V) bool) []V {
	keys := slices.Sorted(maps.Keys(m))
	i := sort.Search(len(keys), func(i int) bool { return keys[i] > after })

	var out []V
	for _, k := range keys[i:] {
		if limit > 0 && len(out) >= limit {
			break
		}
		v := m[k]
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// ==================== Documents ====================

// SaveDocument inserts a document and returns its id.
func (s *CorpusStore) SaveDocument(_ context.Context, doc *domain.Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	now := time.Now()
	d := *doc
	if d.ID == 0 {
		s.nextDocument++
		d.ID = s.nextDocument
	} else if d.ID > s.nextDocument {
		s.nextDocument = d.ID
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	s.documents[d.ID] = d
	doc.ID = d.ID
	return d.ID, nil
}

// GetDocument retrieves a document by id.
func (s *CorpusStore) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

// ListDocuments returns a page of documents.
func (s *CorpusStore) ListDocuments(_ context.Context, afterID int64, limit int) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return page(s.documents, afterID, limit, nil), nil
}

// PendingDocuments returns documents with no mark for stage.
func (s *CorpusStore) PendingDocuments(
	_ context.Context, stage domain.StageName, afterID int64, limit int,
) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return page(s.documents, afterID, limit, func(d domain.Document) bool {
		_, marked := s.marks[markKey{stage, d.ID}]
		return !marked
	}), nil
}

// DocumentsWithoutEmbedding returns documents with no embedding.
func (s *CorpusStore) DocumentsWithoutEmbedding(_ context.Context, afterID int64, limit int) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return page(s.documents, afterID, limit, func(d domain.Document) bool {
		_, ok := s.embeddings[d.ID]
		return !ok
	}), nil
}

// CountDocuments returns the number of documents.
func (s *CorpusStore) CountDocuments(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents), nil
}

// ==================== Entities ====================

// EntitiesForDocument returns a document's entities ordered by start offset.
func (s *CorpusStore) EntitiesForDocument(_ context.Context, documentID int64) ([]domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := page(s.entities, 0, 0, func(e domain.Entity) bool { return e.DocumentID == documentID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// PendingEntities returns entities of the given types with no mark for stage.
func (s *CorpusStore) PendingEntities(
	_ context.Context, stage domain.StageName, types []domain.EntityType, afterID int64, limit int,
) ([]domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return page(s.entities, afterID, limit, func(e domain.Entity) bool {
		if len(types) > 0 && !slices.Contains(types, e.Type) {
			return false
		}
		_, marked := s.marks[markKey{stage, e.ID}]
		return !marked
	}), nil
}

// FindEntities is an exact-match search on (value, type).
func (s *CorpusStore) FindEntities(
	_ context.Context, value string, typ domain.EntityType, limit int,
) ([]domain.EntityMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ents := page(s.entities, 0, limit, func(e domain.Entity) bool { return e.Value == value && e.Type == typ })
	out := make([]domain.EntityMatch, len(ents))
	for i, e := range ents {
		out[i] = domain.EntityMatch{EntityID: e.ID, DocumentID: e.DocumentID, Value: e.Value, Type: e.Type}
	}
	return out, nil
}

// ==================== Signals ====================

// LocationForValue returns the coordinates of the first geocoded entity named name.
func (s *CorpusStore) LocationForValue(_ context.Context, name string) (*domain.GeoPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range slices.Sorted(maps.Keys(s.locations)) {
		e, ok := s.entities[id]
		if !ok || !strings.EqualFold(e.Value, name) {
			continue
		}
		loc := s.locations[id]
		return &domain.GeoPoint{Lat: loc.Latitude, Lon: loc.Longitude}, nil
	}
	return nil, domain.ErrNotFound
}

// LocationsWithin returns geocoded entities inside box.
func (s *CorpusStore) LocationsWithin(_ context.Context, box domain.BoundingBox) ([]domain.GeoMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.GeoMatch
	for _, id := range slices.Sorted(maps.Keys(s.locations)) {
		loc := s.locations[id]
		if !box.Contains(domain.GeoPoint{Lat: loc.Latitude, Lon: loc.Longitude}) {
			continue
		}
		e := s.entities[id]
		out = append(out, domain.GeoMatch{
			DocumentID: e.DocumentID,
			EntityID:   id,
			Value:      e.Value,
			Lat:        loc.Latitude,
			Lon:        loc.Longitude,
		})
	}
	return out, nil
}

// GetSentiment returns the sentiment record for a subject.
func (s *CorpusStore) GetSentiment(
	_ context.Context, kind domain.SubjectKind, subjectID int64,
) (*domain.SentimentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sentiment[subjectKey{kind, subjectID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// TopicsForDocument returns a document's topic weights, heaviest first.
func (s *CorpusStore) TopicsForDocument(_ context.Context, documentID int64) ([]domain.DocumentTopic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.DocumentTopic
	for topicID, w := range s.docTopics[documentID] {
		out = append(out, domain.DocumentTopic{DocumentID: documentID, TopicID: topicID, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].TopicID < out[j].TopicID
	})
	return out, nil
}

// ListTopics returns every topic ordered by id.
func (s *CorpusStore) ListTopics(_ context.Context) ([]domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Topic, 0, len(s.topics))
	for _, id := range slices.Sorted(maps.Keys(s.topics)) {
		out = append(out, s.topics[id])
	}
	return out, nil
}

// Embeddings returns a page of embeddings.
func (s *CorpusStore) Embeddings(_ context.Context, afterID int64, limit int) ([]domain.EmbeddingVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return page(s.embeddings, afterID, limit, nil), nil
}

// CountEmbeddings returns the number of embeddings.
func (s *CorpusStore) CountEmbeddings(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.embeddings), nil
}

// LatestEmbeddingUpdate returns the newest embedding timestamp.
func (s *CorpusStore) LatestEmbeddingUpdate(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest time.Time
	for _, e := range s.embeddings {
		if e.UpdatedAt.After(latest) {
			latest = e.UpdatedAt
		}
	}
	return latest, nil
}

// MarkStatus returns the mark recorded for a subject, for tests and diagnostics.
func (s *CorpusStore) MarkStatus(stage domain.StageName, subjectID int64) (domain.MarkStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.marks[markKey{stage, subjectID}]
	return m.status, ok
}

// ==================== Index Mirror ====================

// ReplaceIndexEntries rewrites the mirror.
func (s *CorpusStore) ReplaceIndexEntries(_ context.Context, entries []domain.EmbeddingVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = make(map[int64][]byte, len(entries))
	for _, e := range entries {
		s.mirror[e.DocumentID] = slices.Clone(e.Bytes)
	}
	return nil
}

// CountIndexEntries returns the mirror size.
func (s *CorpusStore) CountIndexEntries(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mirror), nil
}
