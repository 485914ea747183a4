package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
	"github.com/inorbit222/Trinity-News-Indexer/internal/logger"
)

// Ensure IndexManager implements the interface.
var _ driving.IndexService = (*IndexManager)(nil)

// published is an immutable, fully built index together with its metadata.
type published struct {
	idx  driven.VectorIndex
	meta driven.SnapshotMeta
}

// IndexManager builds, extends, persists and serves the vector index.
//
// Queries always see a complete index: builders work on a private index and
// publish it with a single atomic pointer swap. Builders are serialised.
type IndexManager struct {
	source    driven.IndexSource
	factory   driven.VectorIndexFactory
	snapshot  driven.SnapshotStore
	dimension int
	batchSize int

	buildMu sync.Mutex
	current atomic.Pointer[published]
}

// NewIndexManager creates an index manager. snapshot may be nil, in which
// case the index lives only in memory.
func NewIndexManager(
	source driven.IndexSource,
	factory driven.VectorIndexFactory,
	snapshot driven.SnapshotStore,
	settings *domain.Settings,
) *IndexManager {
	return &IndexManager{
		source:    source,
		factory:   factory,
		snapshot:  snapshot,
		dimension: settings.Index.Dimension,
		batchSize: settings.Batch.Size,
	}
}

// Build rebuilds the index from every stored embedding.
// Every vector is checked against the configured dimension before the first
// insertion; a mismatch aborts the build and leaves the published index as it was.
func (m *IndexManager) Build(ctx context.Context) (driving.IndexInfo, error) {
	m.buildMu.Lock()
	defer m.buildMu.Unlock()

	logger.Section("Index Build")
	fresh, vectors, _, err := m.collect(ctx, nil)
	if err != nil {
		return driving.IndexInfo{}, fmt.Errorf("build index: %w", err)
	}

	idx := m.factory(m.dimension)
	if err := addAll(idx, fresh, vectors); err != nil {
		return driving.IndexInfo{}, fmt.Errorf("build index: %w", err)
	}
	if err := m.persistAndPublish(ctx, idx, fresh); err != nil {
		return driving.IndexInfo{}, fmt.Errorf("build index: %w", err)
	}
	logger.Info("Built index with %d vectors", idx.Len())
	return m.Info(ctx)
}

// Extend adds embeddings missing from the published index. Without a published
// index it falls back to a full build. The delta is taken from the published
// index itself, so a mirror left behind by an earlier failure is rewritten here.
func (m *IndexManager) Extend(ctx context.Context) (driving.IndexInfo, error) {
	if m.current.Load() == nil {
		return m.Build(ctx)
	}

	m.buildMu.Lock()
	defer m.buildMu.Unlock()

	logger.Section("Index Extend")
	// The published index may have been swapped while waiting for the lock.
	cur := m.current.Load()
	indexed := make(map[int64]struct{}, cur.idx.Len())
	for _, id := range cur.idx.IDs() {
		indexed[id] = struct{}{}
	}

	fresh, vectors, kept, err := m.collect(ctx, indexed)
	if err != nil {
		return driving.IndexInfo{}, fmt.Errorf("extend index: %w", err)
	}
	if len(fresh) == 0 {
		if err := m.repairMirror(ctx, kept, cur.idx.Len()); err != nil {
			return driving.IndexInfo{}, fmt.Errorf("extend index: %w", err)
		}
		logger.Info("Index is up to date")
		return m.Info(ctx)
	}

	idx := cur.idx.Clone()
	if err := addAll(idx, fresh, vectors); err != nil {
		return driving.IndexInfo{}, fmt.Errorf("extend index: %w", err)
	}
	if err := m.persistAndPublish(ctx, idx, append(kept, fresh...)); err != nil {
		return driving.IndexInfo{}, fmt.Errorf("extend index: %w", err)
	}
	logger.Info("Extended index by %d vectors to %d", len(fresh), idx.Len())
	return m.Info(ctx)
}

// repairMirror rewrites the mirror when its size disagrees with the published index.
func (m *IndexManager) repairMirror(ctx context.Context, entries []domain.EmbeddingVector, size int) error {
	mirrored, err := m.source.CountIndexEntries(ctx)
	if err != nil {
		return fmt.Errorf("count mirror: %w", err)
	}
	if mirrored == size && len(entries) == size {
		return nil
	}
	logger.Warn("Index mirror has %d entries, index has %d; rewriting", mirrored, size)
	if err := m.source.ReplaceIndexEntries(ctx, entries); err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}
	return nil
}

// Load restores the persisted snapshot and publishes it.
func (m *IndexManager) Load(_ context.Context) error {
	if m.snapshot == nil {
		return fmt.Errorf("load index: %w", domain.ErrNotFound)
	}
	idx, meta, err := m.snapshot.Load()
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	if idx.Dimension() != m.dimension {
		return fmt.Errorf("load index: %w: snapshot has %d dimensions, configured %d",
			domain.ErrDimensionMismatch, idx.Dimension(), m.dimension)
	}
	m.current.Store(&published{idx: idx, meta: meta})
	logger.Info("Loaded index snapshot %s (%d vectors)", meta.ID, meta.Count)
	return nil
}

// LoadOrBuild restores the snapshot, building the index when none exists.
func (m *IndexManager) LoadOrBuild(ctx context.Context) (driving.IndexInfo, error) {
	err := m.Load(ctx)
	switch {
	case err == nil:
		return m.Info(ctx)
	case errors.Is(err, domain.ErrNotFound):
		return m.Build(ctx)
	default:
		return driving.IndexInfo{}, err
	}
}

// Search returns the k nearest documents to vec in the published index.
func (m *IndexManager) Search(ctx context.Context, vec []float32, k int) ([]driven.VectorHit, error) {
	cur := m.current.Load()
	if cur == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if cur.idx.Len() == 0 {
		return nil, domain.ErrEmptyIndex
	}
	return cur.idx.Search(ctx, vec, k)
}

// Info describes the published index and how far it lags the store.
func (m *IndexManager) Info(ctx context.Context) (driving.IndexInfo, error) {
	info := driving.IndexInfo{Dimension: m.dimension}
	if m.snapshot != nil {
		info.SnapshotPath = m.snapshot.Path()
	}
	if cur := m.current.Load(); cur != nil {
		info.SnapshotID = cur.meta.ID
		info.Dimension = cur.meta.Dimension
		info.Size = cur.idx.Len()
		info.CreatedAt = cur.meta.CreatedAt
	}

	total, err := m.source.CountEmbeddings(ctx)
	if err != nil {
		return info, fmt.Errorf("count embeddings: %w", err)
	}
	info.Stale = max(0, total-info.Size)

	if !info.CreatedAt.IsZero() {
		latest, err := m.source.LatestEmbeddingUpdate(ctx)
		if err != nil {
			return info, fmt.Errorf("latest embedding: %w", err)
		}
		info.Outdated = latest.After(info.CreatedAt)
	}
	return info, nil
}

// collect pages through every stored embedding. Rows whose id is in indexed
// are returned as kept without decoding; the rest are decoded into fresh and
// vectors, failing on the first whose dimension does not match. Rows without a
// payload are skipped.
func (m *IndexManager) collect(
	ctx context.Context, indexed map[int64]struct{},
) (fresh []domain.EmbeddingVector, vectors [][]float32, kept []domain.EmbeddingVector, err error) {
	cur := NewCursor(m.source.Embeddings, embeddingKey, m.batchSize)
	for page, err := range cur.All(ctx) {
		if err != nil {
			return nil, nil, nil, err
		}
		for _, e := range page {
			if len(e.Bytes) == 0 {
				continue
			}
			if _, ok := indexed[e.DocumentID]; ok {
				kept = append(kept, e)
				continue
			}
			vec, err := e.Vector()
			if err != nil {
				return nil, nil, nil, fmt.Errorf("document %d: %w", e.DocumentID, err)
			}
			if len(vec) != m.dimension {
				return nil, nil, nil, fmt.Errorf("%w: document %d has %d dimensions, index has %d",
					domain.ErrDimensionMismatch, e.DocumentID, len(vec), m.dimension)
			}
			fresh = append(fresh, e)
			vectors = append(vectors, vec)
		}
	}
	return fresh, vectors, kept, nil
}

func addAll(idx driven.VectorIndex, entries []domain.EmbeddingVector, vectors [][]float32) error {
	for i, vec := range vectors {
		if err := idx.Add(entries[i].DocumentID, vec); err != nil {
			return fmt.Errorf("add document %d: %w", entries[i].DocumentID, err)
		}
	}
	return nil
}

// persistAndPublish saves idx, publishes it, then rewrites the mirror to
// entries. The mirror is written last so it never lists a vector the
// published index lacks.
func (m *IndexManager) persistAndPublish(ctx context.Context, idx driven.VectorIndex, entries []domain.EmbeddingVector) error {
	meta := driven.SnapshotMeta{
		ID:        ulid.Make().String(),
		Dimension: idx.Dimension(),
		Count:     idx.Len(),
		CreatedAt: time.Now().UTC(),
	}
	if m.snapshot != nil {
		if err := m.snapshot.Save(idx, meta); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}
	m.current.Store(&published{idx: idx, meta: meta})

	if err := m.source.ReplaceIndexEntries(ctx, entries); err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}
	return nil
}
