// Package ai provides factory functions for creating model service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/embedding/openai"
	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/geocode/nominatim"
	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/inference"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateModelServices builds every model client the settings describe.
// No connection is made; call Ping on the services that matter.
func CreateModelServices(settings *domain.Settings) (driven.ModelServices, error) {
	client := inference.NewClient(inference.Config{
		BaseURL: settings.Models.InferenceURL,
		Timeout: settings.Models.Timeout.Duration,
	})

	embedder, err := CreateEmbeddingService(&settings.Embedding, settings.Models)
	if err != nil {
		return driven.ModelServices{}, fmt.Errorf("embedding: %w", err)
	}

	return driven.ModelServices{
		Entities:  inference.NewEntityExtractor(client),
		Sentiment: inference.NewSentimentScorer(client),
		Topics:    inference.NewTopicModel(client),
		Geocoder:  CreateGeocoder(settings.Geocode),
		Embedding: embedder,
	}, nil
}

// CreateGeocoder creates the Nominatim geocoder.
func CreateGeocoder(settings domain.GeocodeSettings) driven.Geocoder {
	return nominatim.NewGeocoder(nominatim.Config{
		BaseURL:   settings.BaseURL,
		UserAgent: settings.UserAgent,
		Timeout:   settings.Timeout.Duration,
	})
}

// CreateEmbeddingService creates the embedding service for the configured provider.
// Returns nil if no provider is configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, models domain.ModelSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderInference:
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = models.InferenceURL
		}
		client := inference.NewClient(inference.Config{BaseURL: baseURL, Timeout: models.Timeout.Duration})
		return inference.NewEmbeddingService(client, settings.Model, settings.Dimensions), nil

	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
func CreateAndValidateEmbeddingService(
	ctx context.Context, settings *domain.EmbeddingSettings, models domain.ModelSettings,
) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings, models)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'trinity config show' to check", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}
