package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
)

// newTestClient serves routes and returns a client pointed at them.
func newTestClient(t *testing.T, routes map[string]http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second})
}

func reply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{})
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
}

func TestPing(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{"GET /health": reply(`{"status":"ok"}`)})
	assert.NoError(t, c.Ping(context.Background()))

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	down := NewClient(Config{BaseURL: srv.URL})
	assert.ErrorIs(t, down.Ping(context.Background()), domain.ErrModelUnavailable)
}

func TestEntityExtractor(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"POST /ner": func(w http.ResponseWriter, r *http.Request) {
			var req nerRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Fire near Weaverville", req.Text)
			_, _ = w.Write([]byte(`{"entities":[{"type":"B-LOC","value":"Weaverville","start":10,"end":21,"score":0.99}]}`))
		},
	})

	tags, err := NewEntityExtractor(c).Extract(context.Background(), "Fire near Weaverville")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, domain.RawTag{Type: "B-LOC", Value: "Weaverville", Start: 10, End: 21, Score: 0.99}, tags[0])
}

func TestEntityExtractor_BadOutput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing field", `{}`},
		{"span past end", `{"entities":[{"type":"LOC","value":"x","start":3,"end":99}]}`},
		{"not json", `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, map[string]http.HandlerFunc{"POST /ner": reply(tt.body)})
			_, err := NewEntityExtractor(c).Extract(context.Background(), "short")
			assert.ErrorIs(t, err, domain.ErrUnexpectedOutput)
		})
	}
}

func TestEntityExtractor_NoEntities(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{"POST /ner": reply(`{"entities":[]}`)})
	tags, err := NewEntityExtractor(c).Extract(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestSentimentScorer_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want domain.SentimentScores
	}{
		{"label", `{"label":"NEGATIVE","score":0.9}`, domain.SentimentScores{Neg: 0.9, Compound: -0.9}},
		{"label list", `[{"label":"POSITIVE","score":0.8},{"label":"NEGATIVE","score":0.2}]`,
			domain.SentimentScores{Pos: 0.8, Compound: 0.8}},
		{"components", `{"pos":0.1,"neg":0.2,"neu":0.7,"compound":-0.05}`,
			domain.SentimentScores{Pos: 0.1, Neg: 0.2, Neu: 0.7, Compound: -0.05}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, map[string]http.HandlerFunc{"POST /sentiment": reply(tt.body)})
			got, err := NewSentimentScorer(c).Score(context.Background(), "text")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSentimentScorer_BadOutput(t *testing.T) {
	for _, body := range []string{`{"label":"POSITIVE"}`, `[]`, `"positive"`} {
		c := newTestClient(t, map[string]http.HandlerFunc{"POST /sentiment": reply(body)})
		_, err := NewSentimentScorer(c).Score(context.Background(), "text")
		assert.ErrorIs(t, err, domain.ErrUnexpectedOutput, body)
	}
}

func TestTopicModel(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"POST /topics": func(w http.ResponseWriter, r *http.Request) {
			var req topicsRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, 2, req.NumTopics)
			assert.Equal(t, 15, req.Passes)
			assert.Len(t, req.Documents, 2)
			_, _ = w.Write([]byte(`{"topics":{"0":["harbor","ship"],"1":["vote"]},` +
				`"documents":[[{"topic_id":0,"weight":0.9}],[{"topic_id":1,"weight":0.6},{"topic_id":0,"weight":0.4}]]}`))
		},
	})

	res, err := NewTopicModel(c).Fit(context.Background(), [][]string{{"harbor", "ship"}, {"vote"}}, 2, 15)
	require.NoError(t, err)
	assert.Equal(t, []string{"harbor", "ship"}, res.Topics[0])
	require.Len(t, res.Documents, 2)
	assert.Equal(t, domain.TopicWeight{TopicID: 1, Weight: 0.6}, res.Documents[1][0])
}

func TestTopicModel_BadOutput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"count", `{"topics":{"0":["a"]},"documents":[]}`},
		{"unknown topic", `{"topics":{"0":["a"]},"documents":[[{"topic_id":3,"weight":0.5}]]}`},
		{"weight", `{"topics":{"0":["a"]},"documents":[[{"topic_id":0,"weight":1.5}]]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, map[string]http.HandlerFunc{"POST /topics": reply(tt.body)})
			_, err := NewTopicModel(c).Fit(context.Background(), [][]string{{"a"}}, 1, 1)
			assert.ErrorIs(t, err, domain.ErrUnexpectedOutput)
		})
	}
}

func TestEmbeddingService(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"POST /embed": func(w http.ResponseWriter, r *http.Request) {
			var req embedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, DefaultEmbeddingModel, req.Model)
			out := embedResponse{}
			for range req.Texts {
				out.Embeddings = append(out.Embeddings, []float32{0.5, -0.5})
			}
			_ = json.NewEncoder(w).Encode(out)
		},
	})

	svc := NewEmbeddingService(c, "", 2)
	assert.Equal(t, 2, svc.Dimensions())
	assert.Equal(t, DefaultEmbeddingModel, svc.ModelName())

	vec, err := svc.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.5}, vec)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)

	vecs, err = svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestClient_Status(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"POST /ner": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		"POST /sentiment": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "text too long", http.StatusUnprocessableEntity)
		},
	})

	_, err := NewEntityExtractor(c).Extract(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)

	_, err = NewSentimentScorer(c).Score(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrModelUnavailable)
	assert.Contains(t, err.Error(), "text too long")
}

func TestClient_TimeoutIsPerItem(t *testing.T) {
	block := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ner", func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(block) })

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := NewEntityExtractor(c).Extract(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrModelUnavailable)
	assert.Contains(t, err.Error(), "timed out")
}
