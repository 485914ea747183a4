package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/storage/memory"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

func seedN(t *testing.T, store *memory.CorpusStore, n int) {
	t.Helper()
	bodies := make([]string, n)
	for i := range bodies {
		bodies[i] = fmt.Sprintf("article %d", i)
	}
	seedDocuments(t, store, bodies...)
}

func markAll(t *testing.T, store *memory.CorpusStore, stage domain.StageName, docs []domain.Document) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.BeginBatch(ctx)
	require.NoError(t, err)
	for _, d := range docs {
		require.NoError(t, tx.Apply(ctx, func(w driven.Writer) error {
			return w.Mark(ctx, stage, d.ID, "run", domain.MarkDone)
		}))
	}
	require.NoError(t, tx.Commit())
}

func TestCursor_CompleteUnderFilterDrift(t *testing.T) {
	store := memory.NewCorpusStore()
	seedN(t, store, 250)
	ctx := context.Background()

	cur := NewCursor(func(ctx context.Context, after int64, limit int) ([]domain.Document, error) {
		return store.PendingDocuments(ctx, domain.StageEntities, after, limit)
	}, documentKey, 100)

	seen := make(map[int64]bool)
	var last int64
	for docs, err := range cur.All(ctx) {
		require.NoError(t, err)
		for _, d := range docs {
			assert.False(t, seen[d.ID], "document %d visited twice", d.ID)
			assert.Greater(t, d.ID, last, "ids must ascend")
			seen[d.ID] = true
			last = d.ID
		}
		// Processing makes the page ineligible for the filter.
		markAll(t, store, domain.StageEntities, docs)
	}

	assert.Len(t, seen, 250)
	assert.Equal(t, 3, cur.Pages())

	remaining, err := store.PendingDocuments(ctx, domain.StageEntities, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

// An offset pager over the same drifting filter under-processes the corpus.
func TestOffsetPagination_SkipsRowsUnderFilterDrift(t *testing.T) {
	store := memory.NewCorpusStore()
	seedN(t, store, 250)
	ctx := context.Background()

	offsetPage := func(offset, limit int) []domain.Document {
		all, err := store.PendingDocuments(ctx, domain.StageEntities, 0, 0)
		require.NoError(t, err)
		if offset >= len(all) {
			return nil
		}
		return all[offset:min(offset+limit, len(all))]
	}

	visited := 0
	for offset := 0; ; offset += 100 {
		docs := offsetPage(offset, 100)
		if len(docs) == 0 {
			break
		}
		visited += len(docs)
		markAll(t, store, domain.StageEntities, docs)
	}
	assert.Equal(t, 150, visited)
}

func TestCursor_StartAfter(t *testing.T) {
	store := memory.NewCorpusStore()
	seedN(t, store, 10)

	cur := NewCursor(store.ListDocuments, documentKey, 4).StartAfter(6)

	var ids []int64
	for docs, err := range cur.All(context.Background()) {
		require.NoError(t, err)
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
	}
	assert.Equal(t, []int64{7, 8, 9, 10}, ids)
	assert.Equal(t, int64(10), cur.LastID())
}

func TestCursor_Empty(t *testing.T) {
	cur := NewCursor(memory.NewCorpusStore().ListDocuments, documentKey, 100)

	rows, err := cur.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rows)
	assert.Equal(t, 0, cur.Pages())
}

func TestCursor_RejectsNonAdvancingPage(t *testing.T) {
	stuck := func(_ context.Context, _ int64, _ int) ([]domain.Document, error) {
		return []domain.Document{{ID: 1}, {ID: 2}}, nil
	}
	cur := NewCursor(stuck, documentKey, 2)

	_, err := cur.Next(context.Background())
	require.NoError(t, err)

	_, err = cur.Next(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCursor_FetchError(t *testing.T) {
	failing := func(_ context.Context, _ int64, _ int) ([]domain.Document, error) {
		return nil, errModelDown
	}

	var got error
	for _, err := range NewCursor(failing, documentKey, 10).All(context.Background()) {
		got = err
	}
	assert.ErrorIs(t, got, errModelDown)
}
