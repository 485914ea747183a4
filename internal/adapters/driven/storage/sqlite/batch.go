package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

// batchTx is one enrichment batch. Each Apply runs inside a SAVEPOINT so a
// failed item is rolled back without losing the rest of the batch.
type batchTx struct {
	tx   *sql.Tx
	seq  int
	done bool
}

var _ driven.BatchTx = (*batchTx)(nil)

// BeginBatch opens the transaction a batch commits.
func (s *Store) BeginBatch(ctx context.Context) (driven.BatchTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning batch: %w", classify(err))
	}
	return &batchTx{tx: tx}, nil
}

// Apply runs fn inside a savepoint.
func (b *batchTx) Apply(ctx context.Context, fn func(w driven.Writer) error) error {
	if b.done {
		return fmt.Errorf("%w: batch already finished", sql.ErrTxDone)
	}
	b.seq++
	name := fmt.Sprintf("item_%d", b.seq)

	if _, err := b.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint: %w", classify(err))
	}

	if err := fn(&writer{tx: b.tx}); err != nil {
		// The rollback must run even when ctx is what failed the item.
		bg := context.WithoutCancel(ctx)
		if _, rbErr := b.tx.ExecContext(bg, "ROLLBACK TO "+name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("%w: rollback to savepoint: %w", domain.ErrStoreUnavailable, rbErr))
		}
		if _, relErr := b.tx.ExecContext(bg, "RELEASE "+name); relErr != nil {
			return errors.Join(err, fmt.Errorf("%w: release savepoint: %w", domain.ErrStoreUnavailable, relErr))
		}
		return err
	}

	if _, err := b.tx.ExecContext(ctx, "RELEASE "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", classify(err))
	}
	return nil
}

// Commit commits the batch.
func (b *batchTx) Commit() error {
	if b.done {
		return sql.ErrTxDone
	}
	b.done = true
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", classify(err))
	}
	return nil
}

// Rollback discards the batch. It is a no-op after Commit.
func (b *batchTx) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	if err := b.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rolling back batch: %w", err)
	}
	return nil
}

// writer implements driven.Writer on the batch transaction.
type writer struct {
	tx *sql.Tx
}

// InsertEntities inserts spans; existing (document, type, start, end) rows are kept.
func (w *writer) InsertEntities(ctx context.Context, entities []domain.Entity) (int, error) {
	if len(entities) == 0 {
		return 0, nil
	}
	stmt, err := w.tx.PrepareContext(ctx, `
		INSERT INTO entities (document_id, entity_type, entity_value, start_offset, end_offset, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, entity_type, start_offset, end_offset) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", classify(err))
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted := 0
	for _, e := range entities {
		res, err := stmt.ExecContext(ctx, e.DocumentID, string(e.Type), e.Value, e.Start, e.End, now)
		if err != nil {
			return inserted, fmt.Errorf("saving entity: %w", classify(err))
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// InsertSentiment inserts a record unless the subject already has one.
func (w *writer) InsertSentiment(ctx context.Context, rec domain.SentimentRecord) (bool, error) {
	res, err := w.tx.ExecContext(ctx, `
		INSERT INTO sentiment_records (subject_kind, subject_id, pos, neg, neu, compound)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject_kind, subject_id) DO NOTHING
	`, string(rec.SubjectKind), rec.SubjectID, rec.Pos, rec.Neg, rec.Neu, rec.Compound)
	if err != nil {
		return false, fmt.Errorf("saving sentiment: %w", classify(err))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// UpsertTopic inserts or relabels a topic.
func (w *writer) UpsertTopic(ctx context.Context, topic domain.Topic) error {
	terms, err := json.Marshal(topic.Terms)
	if err != nil {
		return fmt.Errorf("marshalling topic terms: %w", err)
	}
	if topic.Terms == nil {
		terms = []byte("[]")
	}
	_, err = w.tx.ExecContext(ctx, `
		INSERT INTO topics (id, label, terms) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET label = excluded.label, terms = excluded.terms
	`, topic.ID, topic.Label, string(terms))
	if err != nil {
		return fmt.Errorf("saving topic: %w", classify(err))
	}
	return nil
}

// PruneTopics deletes topics outside keep and their document weights.
func (w *writer) PruneTopics(ctx context.Context, keep []int) (int, error) {
	// An empty keep set deletes every topic.
	outside := func(string) string { return "" }
	args := make([]any, 0, len(keep))
	if len(keep) > 0 {
		outside = func(column string) string {
			return " WHERE " + column + " NOT IN (?" + strings.Repeat(", ?", len(keep)-1) + ")"
		}
		for _, id := range keep {
			args = append(args, id)
		}
	}
	if _, err := w.tx.ExecContext(ctx, "DELETE FROM document_topics"+outside("topic_id"), args...); err != nil {
		return 0, fmt.Errorf("pruning document topics: %w", classify(err))
	}
	res, err := w.tx.ExecContext(ctx, "DELETE FROM topics"+outside("id"), args...)
	if err != nil {
		return 0, fmt.Errorf("pruning topics: %w", classify(err))
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ReplaceDocumentTopics sets a document's topic weights to exactly topics.
func (w *writer) ReplaceDocumentTopics(ctx context.Context, documentID int64, topics []domain.DocumentTopic) error {
	if _, err := w.tx.ExecContext(ctx, "DELETE FROM document_topics WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing document topics: %w", classify(err))
	}
	for _, t := range topics {
		_, err := w.tx.ExecContext(ctx, `
			INSERT INTO document_topics (document_id, topic_id, weight) VALUES (?, ?, ?)
			ON CONFLICT(document_id, topic_id) DO UPDATE SET weight = excluded.weight
		`, documentID, t.TopicID, t.Weight)
		if err != nil {
			return fmt.Errorf("saving document topic: %w", classify(err))
		}
	}
	return nil
}

// UpsertLocation stores an entity's location; an existing one is kept.
func (w *writer) UpsertLocation(ctx context.Context, loc domain.GeocodedLocation) (bool, error) {
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now().UTC()
	}
	res, err := w.tx.ExecContext(ctx, `
		INSERT INTO geocoded_locations (entity_id, latitude, longitude, source, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity_id) DO NOTHING
	`, loc.EntityID, loc.Latitude, loc.Longitude, loc.Source, loc.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("saving location: %w", classify(err))
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// UpsertEmbedding stores or replaces a document's embedding.
func (w *writer) UpsertEmbedding(ctx context.Context, emb domain.EmbeddingVector) error {
	values, err := json.Marshal(emb.Values)
	if err != nil {
		return fmt.Errorf("marshalling embedding values: %w", err)
	}
	_, err = w.tx.ExecContext(ctx, `
		INSERT INTO embeddings (document_id, vector_bytes, vector_values, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			vector_bytes = excluded.vector_bytes,
			vector_values = excluded.vector_values,
			updated_at = excluded.updated_at
	`, emb.DocumentID, emb.Bytes, string(values), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving embedding: %w", classify(err))
	}
	return nil
}

// Mark records that a stage processed a subject.
func (w *writer) Mark(
	ctx context.Context, stage domain.StageName, subjectID int64, runID string, status domain.MarkStatus,
) error {
	_, err := w.tx.ExecContext(ctx, `
		INSERT INTO stage_marks (stage, subject_id, run_id, status, processed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(stage, subject_id) DO UPDATE SET
			run_id = excluded.run_id,
			status = excluded.status,
			processed_at = excluded.processed_at
	`, string(stage), subjectID, runID, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving stage mark: %w", classify(err))
	}
	return nil
}

// MarkStatus returns the mark recorded for a subject, for diagnostics.
func (s *Store) MarkStatus(ctx context.Context, stage domain.StageName, subjectID int64) (domain.MarkStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		"SELECT status FROM stage_marks WHERE stage = ? AND subject_id = ?", string(stage), subjectID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying stage mark: %w", classify(err))
	}
	return domain.MarkStatus(status), nil
}
