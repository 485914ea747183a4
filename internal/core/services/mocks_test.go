package services

import (
	"context"
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/storage/memory"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockExtractor tags every occurrence of known words in the text.
type mockExtractor struct {
	mu     sync.Mutex
	words  map[string]string // word -> tag
	fail   map[string]error  // text substring -> error
	calls  int
	inputs []string
}

func newMockExtractor(words map[string]string) *mockExtractor {
	return &mockExtractor{words: words, fail: map[string]error{}}
}

func (m *mockExtractor) Extract(_ context.Context, text string) ([]domain.RawTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.inputs = append(m.inputs, text)
	for sub, err := range m.fail {
		if strings.Contains(text, sub) {
			return nil, err
		}
	}

	var tags []domain.RawTag
	runes := []rune(text)
	pos := 0
	for _, field := range strings.Fields(text) {
		// Fields are separated by single spaces in cleaned text.
		start := indexRunes(runes, []rune(field), pos)
		end := start + len([]rune(field))
		pos = end
		if tag, ok := m.words[field]; ok {
			tags = append(tags, domain.RawTag{Type: tag, Value: field, Start: start, End: end, Score: 0.99})
		}
	}
	return tags, nil
}

func indexRunes(haystack, needle []rune, from int) int {
	for i := from; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return i
		}
	}
	return -1
}

// mockScorer returns fixed scores, optionally failing for some texts.
type mockScorer struct {
	mu     sync.Mutex
	scores domain.SentimentScores
	fail   map[string]error
	inputs []string
}

func (m *mockScorer) Score(_ context.Context, text string) (domain.SentimentScores, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, text)
	for sub, err := range m.fail {
		if strings.Contains(text, sub) {
			return domain.SentimentScores{}, err
		}
	}
	return m.scores, nil
}

// mockTopicModel assigns every document to topic 0 and, when it mentions
// "election", also to topic 1. With single set it fits topic 0 only.
type mockTopicModel struct {
	calls  int
	docs   [][]string
	err    error
	single bool
}

func (m *mockTopicModel) Fit(_ context.Context, docs [][]string, _, _ int) (domain.TopicModelResult, error) {
	m.calls++
	m.docs = docs
	if m.err != nil {
		return domain.TopicModelResult{}, m.err
	}
	res := domain.TopicModelResult{
		Topics: map[int][]string{
			0: {"harbor", "ship", "cargo"},
			1: {"election", "vote", "county"},
		},
	}
	if m.single {
		res.Topics = map[int][]string{0: {"harbor", "ship", "cargo"}}
		for range docs {
			res.Documents = append(res.Documents, []domain.TopicWeight{{TopicID: 0, Weight: 1}})
		}
		return res, nil
	}
	for _, doc := range docs {
		dist := []domain.TopicWeight{{TopicID: 0, Weight: 0.7}, {TopicID: 1, Weight: 0.005}}
		for _, tok := range doc {
			if tok == "election" {
				dist = []domain.TopicWeight{{TopicID: 0, Weight: 0.4}, {TopicID: 1, Weight: 0.6}}
				break
			}
		}
		res.Documents = append(res.Documents, dist)
	}
	return res, nil
}

// mockGeocoder answers from a fixed table and counts calls.
type mockGeocoder struct {
	mu      sync.Mutex
	places  map[string]domain.GeoResult
	err     error
	calls   int
	queries []string
}

func (m *mockGeocoder) Geocode(_ context.Context, place string) (domain.GeoResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.queries = append(m.queries, place)
	if m.err != nil {
		return domain.GeoResult{}, m.err
	}
	return m.places[place], nil
}

func (m *mockGeocoder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockEmbeddingService returns a deterministic pseudo-random vector per text.
type mockEmbeddingService struct {
	dims     int
	embedErr error
	batchErr error
	calls    int
	batches  int
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	vec := make([]float32, m.Dimensions())
	for i := range vec {
		vec[i] = r.Float32()*2 - 1
	}
	return vec
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batches++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 8
}

func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }

func (m *mockEmbeddingService) Close() error { return nil }

var errModelDown = errors.New("model returned 500")

// --- Fixtures ---

func testSettings() *domain.Settings {
	s := &domain.Settings{}
	s.Embedding.Dimensions = 8
	s.ApplyDefaults()
	s.Geocode.MinInterval.Duration = 0
	s.Topics.NoBelow = 1
	s.Topics.NoAbove = 1
	return s
}

func seedDocuments(t *testing.T, store *memory.CorpusStore, bodies ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(bodies))
	for i, body := range bodies {
		id, err := store.SaveDocument(context.Background(), &domain.Document{
			Title: "Article " + string(rune('A'+i%26)),
			Body:  body,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

// seedPlace stores a LOC entity for docID and its geocoded location.
func seedPlace(t *testing.T, store *memory.CorpusStore, docID int64, name string, lat, lon float64) int64 {
	t.Helper()
	ctx := context.Background()
	tx, err := store.BeginBatch(ctx)
	require.NoError(t, err)

	var entityID int64
	err = tx.Apply(ctx, func(w driven.Writer) error {
		if _, err := w.InsertEntities(ctx, []domain.Entity{{
			DocumentID: docID, Type: domain.EntityLoc, Value: name, Start: 0, End: len([]rune(name)),
		}}); err != nil {
			return err
		}
		matches, err := store.FindEntities(ctx, name, domain.EntityLoc, 100)
		if err != nil {
			return err
		}
		for _, m := range matches {
			if m.DocumentID == docID {
				entityID = m.EntityID
			}
		}
		_, err = w.UpsertLocation(ctx, domain.GeocodedLocation{
			EntityID: entityID, Latitude: lat, Longitude: lon, Source: name + ", California",
		})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return entityID
}

func newSeededStore(t *testing.T) *memory.CorpusStore {
	t.Helper()
	store := memory.NewCorpusStore()
	seedDocuments(t, store, corpusBodies...)
	return store
}
