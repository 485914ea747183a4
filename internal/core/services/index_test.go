package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/storage/memory"
	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/vectorindex/flat"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

// seedEmbeddings stores one embedding per document via the embedding stage.
func seedEmbeddings(t *testing.T, store *memory.CorpusStore, settings *domain.Settings, bodies ...string) []int64 {
	t.Helper()
	ids := seedDocuments(t, store, bodies...)
	_, err := NewEmbeddingStage(store, &mockEmbeddingService{dims: settings.Embedding.Dimensions}, settings).Run(context.Background())
	require.NoError(t, err)
	return ids
}

// putEmbedding writes a raw embedding, bypassing the stage's dimension check.
func putEmbedding(t *testing.T, store *memory.CorpusStore, docID int64, vec []float32) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.BeginBatch(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Apply(ctx, func(w driven.Writer) error {
		return w.UpsertEmbedding(ctx, domain.NewEmbeddingVector(docID, vec))
	}))
	require.NoError(t, tx.Commit())
}

// faultySnapshot is an in-memory SnapshotStore whose Save fails while err is set.
type faultySnapshot struct {
	err   error
	saved int
}

func (f *faultySnapshot) Save(driven.VectorIndex, driven.SnapshotMeta) error {
	if f.err != nil {
		return f.err
	}
	f.saved++
	return nil
}

func (f *faultySnapshot) Load() (driven.VectorIndex, driven.SnapshotMeta, error) {
	return nil, driven.SnapshotMeta{}, domain.ErrNotFound
}

func (f *faultySnapshot) Path() string { return "memory" }

func TestIndexManager_Build(t *testing.T) {
	store := memory.NewCorpusStore()
	settings := testSettings()
	ids := seedEmbeddings(t, store, settings, "one", "two", "three")
	m := NewIndexManager(store, flat.Factory, nil, settings)

	info, err := m.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, info.Size)
	assert.Equal(t, 8, info.Dimension)
	assert.Equal(t, 0, info.Stale)
	assert.NotEmpty(t, info.SnapshotID)

	mirrored, err := store.CountIndexEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, mirrored)

	// A stored vector is its own nearest neighbour.
	vec := (&mockEmbeddingService{}).vector("two")
	hits, err := m.Search(context.Background(), vec, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, ids[1], hits[0].DocumentID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-6)
}

func TestIndexManager_DimensionMismatchKeepsPublishedIndex(t *testing.T) {
	store := memory.NewCorpusStore()
	settings := testSettings()
	seedEmbeddings(t, store, settings, "one", "two")
	m := NewIndexManager(store, flat.Factory, nil, settings)

	before, err := m.Build(context.Background())
	require.NoError(t, err)

	odd := seedDocuments(t, store, "odd one out")
	putEmbedding(t, store, odd[0], make([]float32, 5))

	_, err = m.Build(context.Background())
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)

	after, err := m.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before.SnapshotID, after.SnapshotID)
	assert.Equal(t, 2, after.Size)
	assert.Equal(t, 1, after.Stale)

	mirrored, err := store.CountIndexEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, mirrored, "the mirror is untouched by a failed build")
}

func TestIndexManager_Extend(t *testing.T) {
	store := memory.NewCorpusStore()
	settings := testSettings()
	seedEmbeddings(t, store, settings, "one", "two")
	m := NewIndexManager(store, flat.Factory, nil, settings)

	first, err := m.Build(context.Background())
	require.NoError(t, err)

	ids := seedEmbeddings(t, store, settings, "three")
	info, err := m.Extend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, info.Size)
	assert.NotEqual(t, first.SnapshotID, info.SnapshotID)

	hits, err := m.Search(context.Background(), (&mockEmbeddingService{}).vector("three"), 1)
	require.NoError(t, err)
	assert.Equal(t, ids[0], hits[0].DocumentID)

	// Nothing new: the snapshot is kept.
	again, err := m.Extend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, info.SnapshotID, again.SnapshotID)
}

func TestIndexManager_ExtendWithoutIndexBuilds(t *testing.T) {
	store := memory.NewCorpusStore()
	settings := testSettings()
	seedEmbeddings(t, store, settings, "one")

	info, err := NewIndexManager(store, flat.Factory, nil, settings).Extend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, info.Size)
}

func TestIndexManager_SnapshotRoundTrip(t *testing.T) {
	store := memory.NewCorpusStore()
	settings := testSettings()
	seedEmbeddings(t, store, settings, "one", "two", "three")
	path := filepath.Join(t.TempDir(), "index.trn")

	built, err := NewIndexManager(store, flat.Factory, flat.NewSnapshotFile(path), settings).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, built.SnapshotPath)

	restarted := NewIndexManager(store, flat.Factory, flat.NewSnapshotFile(path), settings)
	info, err := restarted.LoadOrBuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, built.SnapshotID, info.SnapshotID)
	assert.Equal(t, 3, info.Size)

	hits, err := restarted.Search(context.Background(), (&mockEmbeddingService{}).vector("one"), 3)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestIndexManager_LoadOrBuildWithoutSnapshot(t *testing.T) {
	store := memory.NewCorpusStore()
	settings := testSettings()
	seedEmbeddings(t, store, settings, "one")
	path := filepath.Join(t.TempDir(), "missing.trn")

	info, err := NewIndexManager(store, flat.Factory, flat.NewSnapshotFile(path), settings).LoadOrBuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, info.Size)
	assert.FileExists(t, path)
}

func TestIndexManager_LoadRejectsOtherDimension(t *testing.T) {
	store := memory.NewCorpusStore()
	settings := testSettings()
	seedEmbeddings(t, store, settings, "one")
	path := filepath.Join(t.TempDir(), "index.trn")

	_, err := NewIndexManager(store, flat.Factory, flat.NewSnapshotFile(path), settings).Build(context.Background())
	require.NoError(t, err)

	other := testSettings()
	other.Index.Dimension = 4
	err = NewIndexManager(store, flat.Factory, flat.NewSnapshotFile(path), other).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestIndexManager_SearchStates(t *testing.T) {
	store := memory.NewCorpusStore()
	m := NewIndexManager(store, flat.Factory, nil, testSettings())
	vec := make([]float32, 8)

	_, err := m.Search(context.Background(), vec, 5)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)

	_, err = m.Build(context.Background())
	require.NoError(t, err)
	_, err = m.Search(context.Background(), vec, 5)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
}

func TestIndexManager_ExtendRetriesAfterFailedSave(t *testing.T) {
	store := memory.NewCorpusStore()
	settings := testSettings()
	seedEmbeddings(t, store, settings, "one", "two")
	snap := &faultySnapshot{}
	m := NewIndexManager(store, flat.Factory, snap, settings)
	ctx := context.Background()

	_, err := m.Build(ctx)
	require.NoError(t, err)

	ids := seedEmbeddings(t, store, settings, "three")
	snap.err = errors.New("disk full")
	_, err = m.Extend(ctx)
	require.ErrorIs(t, err, snap.err)

	mirrored, err := store.CountIndexEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, mirrored, "the mirror never runs ahead of the published index")

	info, err := m.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Size)
	assert.Equal(t, 1, info.Stale)

	snap.err = nil
	info, err = m.Extend(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Size)
	assert.Zero(t, info.Stale)

	mirrored, err = store.CountIndexEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, mirrored)

	hits, err := m.Search(ctx, (&mockEmbeddingService{}).vector("three"), 1)
	require.NoError(t, err)
	assert.Equal(t, ids[0], hits[0].DocumentID)
}

func TestIndexManager_BuildFailedSaveKeepsMirror(t *testing.T) {
	store := memory.NewCorpusStore()
	settings := testSettings()
	seedEmbeddings(t, store, settings, "one", "two")
	snap := &faultySnapshot{err: errors.New("read-only file system")}
	m := NewIndexManager(store, flat.Factory, snap, settings)

	_, err := m.Build(context.Background())
	require.Error(t, err)

	mirrored, err := store.CountIndexEntries(context.Background())
	require.NoError(t, err)
	assert.Zero(t, mirrored)

	_, err = m.Search(context.Background(), make([]float32, 8), 1)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestIndexManager_InfoOutdatedAfterRewrite(t *testing.T) {
	store := memory.NewCorpusStore()
	settings := testSettings()
	ids := seedEmbeddings(t, store, settings, "one", "two")
	m := NewIndexManager(store, flat.Factory, nil, settings)

	info, err := m.Build(context.Background())
	require.NoError(t, err)
	assert.False(t, info.Outdated)

	putEmbedding(t, store, ids[0], (&mockEmbeddingService{}).vector("changed"))

	info, err = m.Info(context.Background())
	require.NoError(t, err)
	assert.True(t, info.Outdated)
	assert.Zero(t, info.Stale)

	info, err = m.Build(context.Background())
	require.NoError(t, err)
	assert.False(t, info.Outdated)
}
