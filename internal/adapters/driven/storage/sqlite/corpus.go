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
)

// ==================== Documents ====================

const documentColumns = "d.id, d.parent_id, d.title, d.body, d.created_at, d.updated_at"

// SaveDocument inserts a document, or updates it when doc.ID is set, and returns its id.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) (int64, error) {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	if doc.ID != 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO documents (id, parent_id, title, body, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				parent_id = excluded.parent_id,
				title = excluded.title,
				body = excluded.body,
				updated_at = excluded.updated_at
		`, doc.ID, doc.ParentID, doc.Title, doc.Body, doc.CreatedAt, doc.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("saving document: %w", classify(err))
		}
		return doc.ID, nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (parent_id, title, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, doc.ParentID, doc.Title, doc.Body, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("saving document: %w", classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading document id: %w", err)
	}
	doc.ID = id
	return id, nil
}

// GetDocument retrieves a document by id.
func (s *Store) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents d WHERE d.id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// ListDocuments returns a page of documents.
func (s *Store) ListDocuments(ctx context.Context, afterID int64, limit int) ([]domain.Document, error) {
	return s.queryDocuments(ctx, `
		SELECT `+documentColumns+` FROM documents d
		WHERE d.id > ? ORDER BY d.id LIMIT ?
	`, afterID, limit)
}

// PendingDocuments returns documents with no mark for stage.
func (s *Store) PendingDocuments(
	ctx context.Context, stage domain.StageName, afterID int64, limit int,
) ([]domain.Document, error) {
	return s.queryDocuments(ctx, `
		SELECT `+documentColumns+` FROM documents d
		WHERE d.id > ?
		  AND NOT EXISTS (SELECT 1 FROM stage_marks m WHERE m.stage = ? AND m.subject_id = d.id)
		ORDER BY d.id LIMIT ?
	`, afterID, string(stage), limit)
}

// DocumentsWithoutEmbedding returns documents with no embedding row.
func (s *Store) DocumentsWithoutEmbedding(ctx context.Context, afterID int64, limit int) ([]domain.Document, error) {
	return s.queryDocuments(ctx, `
		SELECT `+documentColumns+` FROM documents d
		WHERE d.id > ?
		  AND NOT EXISTS (SELECT 1 FROM embeddings e WHERE e.document_id = d.id)
		ORDER BY d.id LIMIT ?
	`, afterID, limit)
}

// CountDocuments returns the number of documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM documents")
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", classify(err))
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// ==================== Entities ====================

const entityColumns = "id, document_id, entity_type, entity_value, start_offset, end_offset, created_at"

// EntitiesForDocument returns a document's entities ordered by start offset.
func (s *Store) EntitiesForDocument(ctx context.Context, documentID int64) ([]domain.Entity, error) {
	return s.queryEntities(ctx, `
		SELECT `+entityColumns+` FROM entities
		WHERE document_id = ? ORDER BY start_offset, id
	`, documentID)
}

// PendingEntities returns entities of the given types (all types when empty)
// with no mark for stage.
func (s *Store) PendingEntities(
	ctx context.Context, stage domain.StageName, types []domain.EntityType, afterID int64, limit int,
) ([]domain.Entity, error) {
	args := []any{afterID, string(stage)}
	typeFilter := ""
	if len(types) > 0 {
		typeFilter = "AND e.entity_type IN (" + inPlaceholders(len(types)) + ")"
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	args = append(args, limit)

	return s.queryEntities(ctx, `
		SELECT `+entityColumns+` FROM entities e
		WHERE e.id > ?
		  AND NOT EXISTS (SELECT 1 FROM stage_marks m WHERE m.stage = ? AND m.subject_id = e.id)
		  `+typeFilter+`
		ORDER BY e.id LIMIT ?
	`, args...)
}

// FindEntities is an exact-match search on (value, type).
func (s *Store) FindEntities(
	ctx context.Context, value string, typ domain.EntityType, limit int,
) ([]domain.EntityMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, entity_value, entity_type FROM entities
		WHERE entity_value = ? AND entity_type = ?
		ORDER BY id LIMIT ?
	`, value, string(typ), limit)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", classify(err))
	}
	defer rows.Close()

	matches := []domain.EntityMatch{}
	for rows.Next() {
		var m domain.EntityMatch
		var typ string
		if err := rows.Scan(&m.EntityID, &m.DocumentID, &m.Value, &typ); err != nil {
			return nil, fmt.Errorf("scanning entity match: %w", err)
		}
		m.Type = domain.EntityType(typ)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *Store) queryEntities(ctx context.Context, query string, args ...any) ([]domain.Entity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", classify(err))
	}
	defer rows.Close()

	var out []domain.Entity //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.Entity
		var typ string
		if err := rows.Scan(&e.ID, &e.DocumentID, &typ, &e.Value, &e.Start, &e.End, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		e.Type = domain.EntityType(typ)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entities: %w", err)
	}
	return out, nil
}

// ==================== Signals ====================

// LocationForValue returns the coordinates of the lowest-id geocoded entity
// whose value matches name case-insensitively.
func (s *Store) LocationForValue(ctx context.Context, name string) (*domain.GeoPoint, error) {
	var p domain.GeoPoint
	err := s.db.QueryRowContext(ctx, `
		SELECT g.latitude, g.longitude
		FROM geocoded_locations g JOIN entities e ON e.id = g.entity_id
		WHERE e.entity_value = ? COLLATE NOCASE
		ORDER BY g.entity_id LIMIT 1
	`, name).Scan(&p.Lat, &p.Lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying location: %w", classify(err))
	}
	return &p, nil
}

// LocationsWithin returns geocoded entities inside box, ordered by entity id.
func (s *Store) LocationsWithin(ctx context.Context, box domain.BoundingBox) ([]domain.GeoMatch, error) {
	args := []any{box.MinLat, box.MaxLat}
	var lon []string
	for _, r := range box.LonRanges() {
		lon = append(lon, "g.longitude BETWEEN ? AND ?")
		args = append(args, r[0], r[1])
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.document_id, g.entity_id, e.entity_value, g.latitude, g.longitude
		FROM geocoded_locations g JOIN entities e ON e.id = g.entity_id
		WHERE g.latitude BETWEEN ? AND ?
		  AND (`+strings.Join(lon, " OR ")+`)
		ORDER BY g.entity_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", classify(err))
	}
	defer rows.Close()

	var out []domain.GeoMatch //nolint:prealloc // size unknown from query
	for rows.Next() {
		var m domain.GeoMatch
		if err := rows.Scan(&m.DocumentID, &m.EntityID, &m.Value, &m.Lat, &m.Lon); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetSentiment returns the sentiment record of a subject.
func (s *Store) GetSentiment(
	ctx context.Context, kind domain.SubjectKind, subjectID int64,
) (*domain.SentimentRecord, error) {
	rec := domain.SentimentRecord{SubjectKind: kind, SubjectID: subjectID}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, pos, neg, neu, compound FROM sentiment_records
		WHERE subject_kind = ? AND subject_id = ?
	`, string(kind), subjectID).Scan(&rec.ID, &rec.Pos, &rec.Neg, &rec.Neu, &rec.Compound)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying sentiment: %w", classify(err))
	}
	return &rec, nil
}

// TopicsForDocument returns a document's topic weights, heaviest first.
func (s *Store) TopicsForDocument(ctx context.Context, documentID int64) ([]domain.DocumentTopic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, topic_id, weight FROM document_topics
		WHERE document_id = ? ORDER BY weight DESC, topic_id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying document topics: %w", classify(err))
	}
	defer rows.Close()

	var out []domain.DocumentTopic //nolint:prealloc // size unknown from query
	for rows.Next() {
		var dt domain.DocumentTopic
		if err := rows.Scan(&dt.DocumentID, &dt.TopicID, &dt.Weight); err != nil {
			return nil, fmt.Errorf("scanning document topic: %w", err)
		}
		out = append(out, dt)
	}
	return out, rows.Err()
}

// ListTopics returns every topic ordered by id.
func (s *Store) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, label, terms FROM topics ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying topics: %w", classify(err))
	}
	defer rows.Close()

	var out []domain.Topic //nolint:prealloc // size unknown from query
	for rows.Next() {
		var t domain.Topic
		var terms string
		if err := rows.Scan(&t.ID, &t.Label, &terms); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		if terms != "" {
			if err := json.Unmarshal([]byte(terms), &t.Terms); err != nil {
				return nil, fmt.Errorf("unmarshaling topic terms: %w", err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ==================== Embeddings ====================

// Embeddings returns a page of embeddings ordered by document id.
func (s *Store) Embeddings(ctx context.Context, afterID int64, limit int) ([]domain.EmbeddingVector, error) {
	return s.queryEmbeddings(ctx, `
		SELECT e.document_id, e.vector_bytes, e.vector_values, e.updated_at FROM embeddings e
		WHERE e.document_id > ? ORDER BY e.document_id LIMIT ?
	`, afterID, limit)
}

// CountEmbeddings returns the number of embeddings.
func (s *Store) CountEmbeddings(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM embeddings")
}

// LatestEmbeddingUpdate returns the newest embedding timestamp, or the zero time.
func (s *Store) LatestEmbeddingUpdate(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx, "SELECT updated_at FROM embeddings ORDER BY updated_at DESC LIMIT 1").Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("querying latest embedding: %w", classify(err))
	}
	return t, nil
}

func (s *Store) queryEmbeddings(ctx context.Context, query string, args ...any) ([]domain.EmbeddingVector, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", classify(err))
	}
	defer rows.Close()

	var out []domain.EmbeddingVector //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.EmbeddingVector
		var values string
		if err := rows.Scan(&e.DocumentID, &e.Bytes, &values, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		if err := json.Unmarshal([]byte(values), &e.Values); err != nil {
			return nil, fmt.Errorf("unmarshaling embedding values for document %d: %w", e.DocumentID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}
	return out, nil
}

// ==================== Index Mirror ====================

// CountIndexEntries returns the mirror size.
func (s *Store) CountIndexEntries(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM vector_index_entries")
}

// ReplaceIndexEntries rewrites the mirror to exactly entries in one transaction.
func (s *Store) ReplaceIndexEntries(ctx context.Context, entries []domain.EmbeddingVector) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", classify(err))
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM vector_index_entries"); err != nil {
		return fmt.Errorf("clearing index entries: %w", classify(err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vector_index_entries (document_id, vector_bytes) VALUES (?, ?)
		ON CONFLICT(document_id) DO UPDATE SET vector_bytes = excluded.vector_bytes
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.DocumentID, e.Bytes); err != nil {
			return fmt.Errorf("saving index entry %d: %w", e.DocumentID, classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", classify(err))
	}
	return nil
}

// ==================== Helper Functions ====================

func (s *Store) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting: %w", classify(err))
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument scans one row selected with documentColumns.
func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var parentID sql.NullInt64
	if err := row.Scan(&doc.ID, &parentID, &doc.Title, &doc.Body, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	if parentID.Valid {
		doc.ParentID = &parentID.Int64
	}
	return &doc, nil
}
