package memory

import (
	"sync"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is an in-memory implementation of driven.ConfigStore.
// Use for testing only.
type ConfigStore struct {
	mu       sync.RWMutex
	settings *domain.Settings
}

// NewConfigStore creates a new in-memory config store with nothing saved.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{}
}

// Load returns a copy of the saved settings, or the defaults.
func (s *ConfigStore) Load() (*domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings == nil {
		return domain.DefaultSettings(), nil
	}
	cp := *s.settings
	cp.ApplyDefaults()
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Save stores a copy of settings without secrets.
func (s *ConfigStore) Save(settings *domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *settings
	cp.Embedding.APIKey = ""
	s.settings = &cp
	return nil
}

// Exists reports whether settings were saved.
func (s *ConfigStore) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings != nil
}

// Path returns an empty string as there is no file.
func (s *ConfigStore) Path() string {
	return ""
}
