package inference

import (
	"context"

	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/modelerr"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultEmbeddingModel is the sentence encoder served by default.
const DefaultEmbeddingModel = "sentence-transformers/gtr-t5-large"

type embedRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbeddingService calls the server's /embed endpoint.
type EmbeddingService struct {
	c          *Client
	model      string
	dimensions int
}

// NewEmbeddingService creates an embedding client on c.
func NewEmbeddingService(c *Client, model string, dimensions int) *EmbeddingService {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &EmbeddingService{c: c, model: model, dimensions: dimensions}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request, returning vectors in input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var resp embedResponse
	if err := s.c.postJSON(ctx, "embed", "/embed", embedRequest{Texts: texts, Model: s.model}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, modelerr.Output("embed", "got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

// Dimensions returns the configured vector size.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns the served model name.
func (s *EmbeddingService) ModelName() string { return s.model }

// Ping checks the server is reachable.
func (s *EmbeddingService) Ping(ctx context.Context) error { return s.c.Ping(ctx) }

// Close releases resources.
func (s *EmbeddingService) Close() error { return nil }
