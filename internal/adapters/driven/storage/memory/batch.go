package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

// ErrBatchDone is returned when a committed or rolled back batch is used.
var ErrBatchDone = errors.New("batch already finished")

// batch journals undo steps for every write it makes.
type batch struct {
	s     *CorpusStore
	undo  []func()
	done  bool
	inner bool
}

// BeginBatch opens a batch.
func (s *CorpusStore) BeginBatch(_ context.Context) (driven.BatchTx, error) {
	if err := s.Ping(context.Background()); err != nil {
		return nil, err
	}
	return &batch{s: s}, nil
}

// Apply runs fn; if it fails, fn's writes are undone and the batch stays usable.
func (b *batch) Apply(ctx context.Context, fn func(w driven.Writer) error) error {
	if b.done {
		return ErrBatchDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	mark := len(b.undo)
	b.inner = true
	err := fn(b)
	b.inner = false
	if err != nil {
		b.s.mu.Lock()
		b.rewind(mark)
		b.s.mu.Unlock()
		return err
	}
	return nil
}

// Commit keeps every applied write.
func (b *batch) Commit() error {
	if b.done {
		return ErrBatchDone
	}
	b.done = true
	b.undo = nil
	return nil
}

// Rollback undoes every write of an unfinished batch.
func (b *batch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	b.s.mu.Lock()
	b.rewind(0)
	b.s.mu.Unlock()
	return nil
}

// rewind undoes steps back to mark. Caller holds the store lock.
func (b *batch) rewind(mark int) {
	for i := len(b.undo) - 1; i >= mark; i-- {
		b.undo[i]()
	}
	b.undo = b.undo[:mark]
}

// begin locks the store for one write and runs the hook.
func (b *batch) begin(op string, subjectID int64) error {
	if !b.inner {
		return fmt.Errorf("%s: write outside Apply", op)
	}
	b.s.mu.Lock()
	if b.s.closed {
		b.s.mu.Unlock()
		return ErrClosed
	}
	if b.s.hook != nil {
		if err := b.s.hook(op, subjectID); err != nil {
			b.s.mu.Unlock()
			return err
		}
	}
	return nil
}

func (b *batch) end() { b.s.mu.Unlock() }

// InsertEntities inserts spans not already stored.
func (b *batch) InsertEntities(_ context.Context, entities []domain.Entity) (int, error) {
	if len(entities) == 0 {
		return 0, nil
	}
	if err := b.begin("insert_entities", entities[0].DocumentID); err != nil {
		return 0, err
	}
	defer b.end()

	s := b.s
	n := 0
	now := time.Now()
	for _, e := range entities {
		key := spanKey{e.DocumentID, e.Type, e.Start, e.End}
		if _, dup := s.spans[key]; dup {
			continue
		}
		s.nextEntity++
		e.ID = s.nextEntity
		e.CreatedAt = now
		s.entities[e.ID] = e
		s.spans[key] = e.ID
		id := e.ID
		b.undo = append(b.undo, func() {
			delete(s.entities, id)
			delete(s.spans, key)
		})
		n++
	}
	return n, nil
}

// InsertSentiment inserts a record unless the subject already has one.
func (b *batch) InsertSentiment(_ context.Context, rec domain.SentimentRecord) (bool, error) {
	if err := b.begin("insert_sentiment", rec.SubjectID); err != nil {
		return false, err
	}
	defer b.end()

	s := b.s
	key := subjectKey{rec.SubjectKind, rec.SubjectID}
	if _, dup := s.sentiment[key]; dup {
		return false, nil
	}
	s.nextSentiment++
	rec.ID = s.nextSentiment
	s.sentiment[key] = rec
	b.undo = append(b.undo, func() { delete(s.sentiment, key) })
	return true, nil
}

// UpsertTopic inserts or relabels a topic.
func (b *batch) UpsertTopic(_ context.Context, topic domain.Topic) error {
	if err := b.begin("upsert_topic", int64(topic.ID)); err != nil {
		return err
	}
	defer b.end()

	s := b.s
	prev, existed := s.topics[topic.ID]
	s.topics[topic.ID] = topic
	b.undo = append(b.undo, func() {
		if existed {
			s.topics[topic.ID] = prev
		} else {
			delete(s.topics, topic.ID)
		}
	})
	return nil
}

// PruneTopics deletes topics outside keep and their document weights.
func (b *batch) PruneTopics(_ context.Context, keep []int) (int, error) {
	if err := b.begin("prune_topics", 0); err != nil {
		return 0, err
	}
	defer b.end()

	s := b.s
	removed := 0
	for id, topic := range s.topics {
		if slices.Contains(keep, id) {
			continue
		}
		delete(s.topics, id)
		removed++
		b.undo = append(b.undo, func() { s.topics[id] = topic })
		for docID, weights := range s.docTopics {
			w, ok := weights[id]
			if !ok {
				continue
			}
			delete(weights, id)
			b.undo = append(b.undo, func() {
				if s.docTopics[docID] == nil {
					s.docTopics[docID] = make(map[int]float64)
				}
				s.docTopics[docID][id] = w
			})
			if len(weights) == 0 {
				delete(s.docTopics, docID)
			}
		}
	}
	return removed, nil
}

// ReplaceDocumentTopics sets a document's topic weights to exactly topics.
func (b *batch) ReplaceDocumentTopics(_ context.Context, documentID int64, topics []domain.DocumentTopic) error {
	if err := b.begin("replace_document_topics", documentID); err != nil {
		return err
	}
	defer b.end()

	s := b.s
	prev, existed := s.docTopics[documentID]
	next := make(map[int]float64, len(topics))
	for _, t := range topics {
		next[t.TopicID] = t.Weight
	}
	if len(next) == 0 {
		delete(s.docTopics, documentID)
	} else {
		s.docTopics[documentID] = next
	}
	b.undo = append(b.undo, func() {
		if existed {
			s.docTopics[documentID] = prev
		} else {
			delete(s.docTopics, documentID)
		}
	})
	return nil
}

// UpsertLocation stores a location unless the entity already has one.
func (b *batch) UpsertLocation(_ context.Context, loc domain.GeocodedLocation) (bool, error) {
	if err := b.begin("upsert_location", loc.EntityID); err != nil {
		return false, err
	}
	defer b.end()

	s := b.s
	if _, dup := s.locations[loc.EntityID]; dup {
		return false, nil
	}
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now()
	}
	s.locations[loc.EntityID] = loc
	b.undo = append(b.undo, func() { delete(s.locations, loc.EntityID) })
	return true, nil
}

// UpsertEmbedding stores or replaces a document's embedding.
func (b *batch) UpsertEmbedding(_ context.Context, emb domain.EmbeddingVector) error {
	if err := b.begin("upsert_embedding", emb.DocumentID); err != nil {
		return err
	}
	defer b.end()

	s := b.s
	prev, existed := s.embeddings[emb.DocumentID]
	emb.Bytes = slices.Clone(emb.Bytes)
	emb.Values = slices.Clone(emb.Values)
	emb.UpdatedAt = time.Now()
	s.embeddings[emb.DocumentID] = emb
	b.undo = append(b.undo, func() {
		if existed {
			s.embeddings[emb.DocumentID] = prev
		} else {
			delete(s.embeddings, emb.DocumentID)
		}
	})
	return nil
}

// Mark records a processed subject.
func (b *batch) Mark(
	_ context.Context, stage domain.StageName, subjectID int64, runID string, status domain.MarkStatus,
) error {
	if err := b.begin("mark", subjectID); err != nil {
		return err
	}
	defer b.end()

	s := b.s
	key := markKey{stage, subjectID}
	prev, existed := s.marks[key]
	s.marks[key] = stageMark{runID: runID, status: status, at: time.Now()}
	b.undo = append(b.undo, func() {
		if existed {
			s.marks[key] = prev
		} else {
			delete(s.marks, key)
		}
	})
	return nil
}

// Snapshot is a copy of the store's derived tables, for assertions in tests.
type Snapshot struct {
	Entities   []domain.Entity
	Sentiment  []domain.SentimentRecord
	Topics     []domain.Topic
	DocTopics  []domain.DocumentTopic
	Locations  []domain.GeocodedLocation
	Embeddings []int64
}

// Snapshot copies the derived tables in a deterministic order.
func (s *CorpusStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap Snapshot
	for _, id := range slices.Sorted(maps.Keys(s.entities)) {
		snap.Entities = append(snap.Entities, s.entities[id])
	}
	for _, rec := range s.sentiment {
		snap.Sentiment = append(snap.Sentiment, rec)
	}
	slices.SortFunc(snap.Sentiment, func(a, b domain.SentimentRecord) int { return int(a.ID - b.ID) })
	for _, id := range slices.Sorted(maps.Keys(s.topics)) {
		snap.Topics = append(snap.Topics, s.topics[id])
	}
	for _, docID := range slices.Sorted(maps.Keys(s.docTopics)) {
		for _, topicID := range slices.Sorted(maps.Keys(s.docTopics[docID])) {
			snap.DocTopics = append(snap.DocTopics, domain.DocumentTopic{
				DocumentID: docID, TopicID: topicID, Weight: s.docTopics[docID][topicID],
			})
		}
	}
	for _, id := range slices.Sorted(maps.Keys(s.locations)) {
		snap.Locations = append(snap.Locations, s.locations[id])
	}
	snap.Embeddings = slices.Sorted(maps.Keys(s.embeddings))
	return snap
}
