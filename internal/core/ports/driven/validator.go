package driven

import (
	"context"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
)

// ModelValidator checks that configured model services are reachable.
type ModelValidator interface {
	// ValidateEmbedding pings the configured embedding provider.
	// Returns nil if no provider is configured.
	ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings, models domain.ModelSettings) error

	// ValidateInference pings the inference server hosting NER, sentiment and topics.
	ValidateInference(ctx context.Context, models domain.ModelSettings) error
}
