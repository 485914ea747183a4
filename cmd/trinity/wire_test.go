package main

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/storage/sqlite"
	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driving/cli"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

type stubLists struct {
	aliases map[string]string
	words   []string
	err     error
}

func (s stubLists) Aliases(string) (map[string]string, error) { return s.aliases, s.err }
func (s stubLists) Stopwords(string) ([]string, error)        { return s.words, s.err }

// hashEmbedder maps text to a fixed pseudo-random vector.
type hashEmbedder struct{ dims int }

func (h hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f := fnv.New32a()
	_, _ = f.Write([]byte(text))
	seed := f.Sum32()
	vec := make([]float32, h.dims)
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000) / 1000
	}
	return vec, nil
}

func (h hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = h.Embed(ctx, text)
	}
	return out, nil
}

func (h hashEmbedder) Dimensions() int { return h.dims }
func (h hashEmbedder) ModelName() string { return "hash" }
func (h hashEmbedder) Ping(context.Context) error { return nil }
func (h hashEmbedder) Close() error { return nil }

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "corpus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBuildServices_WiresEveryStage(t *testing.T) {
	store := newStore(t)

	svc, err := buildServices(store, driven.ModelServices{}, stubLists{}, domain.DefaultSettings())
	require.NoError(t, err)

	assert.Equal(t, domain.AllStages(), svc.Pipeline.Stages())
	assert.NotNil(t, svc.Index)
	assert.NotNil(t, svc.Query)
	assert.NotNil(t, svc.Document)
	assert.NoError(t, svc.Health.Ping(context.Background()))
}

func TestBuildServices_SnapshotNextToDatabase(t *testing.T) {
	store := newStore(t)

	svc, err := buildServices(store, driven.ModelServices{}, stubLists{}, domain.DefaultSettings())
	require.NoError(t, err)

	info, err := svc.Index.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(store.Path()), snapshotFile), info.SnapshotPath)
	assert.Zero(t, info.Stale)
}

func TestBuildServices_QueryWithoutModels(t *testing.T) {
	store := newStore(t)

	svc, err := buildServices(store, driven.ModelServices{}, stubLists{}, domain.DefaultSettings())
	require.NoError(t, err)

	result, err := svc.Query.Query(context.Background(), "fire near Weaverville", domain.QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Semantic)
	assert.Contains(t, result.Errors, domain.LegSemantic)
	assert.Nil(t, result.Entity)
}

func TestBuildServices_ListError(t *testing.T) {
	store := newStore(t)

	_, err := buildServices(store, driven.ModelServices{}, stubLists{err: errors.New("bad yaml")}, domain.DefaultSettings())
	assert.EqualError(t, err, "bad yaml")
}

func TestBootstrap_ConfigOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	svc, cleanup, err := bootstrap(context.Background(), cli.Options{ConfigPath: path, ConfigOnly: true})
	require.NoError(t, err)
	assert.Nil(t, cleanup)
	require.NotNil(t, svc.Settings)
	assert.Nil(t, svc.Query)
	assert.Equal(t, path, svc.Settings.Path())
}

func TestBuildServices_QueryUsesSnapshotFromEarlierRun(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "corpus.db")
	settings := domain.DefaultSettings()
	settings.Embedding.Dimensions = 4
	settings.Index.Dimension = 4
	models := driven.ModelServices{Embedding: hashEmbedder{dims: 4}}

	first, err := sqlite.NewStore(dbPath)
	require.NoError(t, err)
	svc, err := buildServices(first, models, stubLists{}, settings)
	require.NoError(t, err)

	var lines strings.Builder
	for i := range 6 {
		fmt.Fprintf(&lines, "{\"title\":\"t%d\",\"body\":\"body text %d\"}\n", i, i)
	}
	report, err := svc.Document.Import(ctx, strings.NewReader(lines.String()))
	require.NoError(t, err)
	require.Equal(t, 6, report.Imported)

	_, err = svc.Pipeline.Run(ctx, domain.StageEmbeddings)
	require.NoError(t, err)
	info, err := svc.Index.Build(ctx)
	require.NoError(t, err)
	require.Equal(t, 6, info.Size)
	require.NoError(t, first.Close())

	second, err := sqlite.NewStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })
	restarted, err := buildServices(second, models, stubLists{}, settings)
	require.NoError(t, err)

	require.NoError(t, restarted.Index.Load(ctx))
	result, err := restarted.Query.Query(ctx, "body text", domain.QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Semantic, 5)
	assert.NotContains(t, result.Errors, domain.LegSemantic)
}
