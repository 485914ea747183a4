package ai

import (
	"context"

	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/inference"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.ModelValidator = (*ConfigValidator)(nil)

// ConfigValidator pings configured model services.
type ConfigValidator struct{}

// NewConfigValidator creates a new model config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding pings the embedding provider.
func (v *ConfigValidator) ValidateEmbedding(
	ctx context.Context, settings *domain.EmbeddingSettings, models domain.ModelSettings,
) error {
	svc, err := CreateAndValidateEmbeddingService(ctx, settings, models)
	if svc != nil {
		svc.Close()
	}
	return err
}

// ValidateInference pings the inference server.
func (v *ConfigValidator) ValidateInference(ctx context.Context, models domain.ModelSettings) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return inference.NewClient(inference.Config{BaseURL: models.InferenceURL, Timeout: models.Timeout.Duration}).Ping(ctx)
}
