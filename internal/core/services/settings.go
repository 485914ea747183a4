package services

import (
	"context"
	"fmt"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// SettingsService manages the settings file.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.ModelValidator
}

// NewSettingsService creates a new settings service. validator may be nil,
// in which case Check reports nothing.
func NewSettingsService(configStore driven.ConfigStore, validator driven.ModelValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		validator:   validator,
	}
}

// Get loads the current settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	return s.configStore.Load()
}

// Init writes the default settings.
func (s *SettingsService) Init(force bool) error {
	if s.configStore.Exists() && !force {
		return fmt.Errorf("%w: %s already exists (use --force to overwrite)", domain.ErrInvalidInput, s.configStore.Path())
	}
	return s.configStore.Save(domain.DefaultSettings())
}

// Path returns the settings file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// Check pings the inference server and the embedding provider.
func (s *SettingsService) Check(ctx context.Context) []driving.ServiceCheck {
	if s.validator == nil {
		return nil
	}
	settings, err := s.configStore.Load()
	if err != nil {
		return []driving.ServiceCheck{{Name: "config", Err: err.Error()}}
	}

	checks := []driving.ServiceCheck{
		result("inference", s.validator.ValidateInference(ctx, settings.Models)),
	}
	if settings.Embedding.IsConfigured() {
		name := "embedding (" + settings.Embedding.Provider.Description() + ")"
		checks = append(checks, result(name, s.validator.ValidateEmbedding(ctx, &settings.Embedding, settings.Models)))
	}
	return checks
}

func result(name string, err error) driving.ServiceCheck {
	if err != nil {
		return driving.ServiceCheck{Name: name, Err: err.Error()}
	}
	return driving.ServiceCheck{Name: name, OK: true}
}
