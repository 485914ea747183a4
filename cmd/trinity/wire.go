package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/ai"
	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/config/file"
	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/storage/sqlite"
	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/vectorindex/flat"
	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driving/cli"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/services"
	"github.com/inorbit222/Trinity-News-Indexer/internal/logger"
)

const snapshotFile = "index.snap"

// bootstrap builds every service from the settings file.
// Settings are loaded once here and shared by reference.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, func() error, error) {
	configStore, err := file.NewConfigStore(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	if opts.ConfigOnly {
		return &cli.Services{Settings: settingsService}, nil, nil
	}

	settings, err := configStore.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger.Debug("Config: %s", configStore.Path())

	store, err := sqlite.NewStore(settings.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	schema, err := store.SchemaVersion(ctx)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("%w: read schema version: %w", domain.ErrStoreUnavailable, err)
	}
	logger.Debug("Corpus store: %s (schema version %d)", store.Path(), schema)

	models, err := ai.CreateModelServices(settings)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	svc, err := buildServices(store, models, file.NewListLoader(), settings)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	svc.Settings = settingsService

	cleanup := func() error {
		var errs []error
		if models.Embedding != nil {
			errs = append(errs, models.Embedding.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
	return svc, cleanup, nil
}

// buildServices wires the enrichment pipeline, the vector index and the query
// federator around one corpus store.
func buildServices(
	store *sqlite.Store, models driven.ModelServices, lists driven.ListLoader, settings *domain.Settings,
) (*cli.Services, error) {
	aliases, err := lists.Aliases(settings.Geocode.AliasesFile)
	if err != nil {
		return nil, err
	}
	words, err := lists.Stopwords(settings.Topics.StopwordsFile)
	if err != nil {
		return nil, err
	}

	cache, err := services.NewGeocodeCache(
		models.Geocoder, settings.Geocode.MinInterval.Duration, aliases, settings.Geocode.CacheSize)
	if err != nil {
		return nil, err
	}

	pipeline := services.NewPipeline(
		services.NewEntityStage(store, models.Entities, settings),
		services.NewSentimentStage(store, models.Sentiment, settings),
		services.NewTopicStage(store, models.Topics, services.NewStopwords(words), settings),
		services.NewGeocodeStage(store, cache, settings),
		services.NewEmbeddingStage(store, models.Embedding, settings),
	)

	snapshotPath := settings.Index.SnapshotPath
	if snapshotPath == "" {
		snapshotPath = filepath.Join(filepath.Dir(store.Path()), snapshotFile)
	}
	index := services.NewIndexManager(store, flat.Factory, flat.NewSnapshotFile(snapshotPath), settings)

	federator := services.NewQueryFederator(store, models.Embedding, index, models.Entities, settings)
	federator.SetGeocoder(cache)

	return &cli.Services{
		Pipeline: pipeline,
		Index:    index,
		Query:    federator,
		Document: services.NewDocumentService(store),
		Health:   store,
	}, nil
}
