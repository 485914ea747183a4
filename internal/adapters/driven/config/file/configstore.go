package file

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore reads and writes the settings TOML file.
type ConfigStore struct {
	mu       sync.Mutex
	filePath string
}

// NewConfigStore creates a store for the settings file at path.
// If path is empty, defaults to ~/.trinity/config.toml.
func NewConfigStore(path string) (*ConfigStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".trinity", "config.toml")
	}
	return &ConfigStore{filePath: path}, nil
}

// Load reads the settings file. Unknown keys are rejected so typos surface.
// A .env file next to the settings file is loaded first; variables already set
// in the environment take precedence.
func (s *ConfigStore) Load() (*domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := &domain.Settings{}
	data, err := os.ReadFile(s.filePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No config file yet; every default applies.
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(settings); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, fmt.Errorf("%w: %s: %s", domain.ErrInvalidInput, s.filePath, strict.String())
			}
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, s.filePath, err)
		}
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(s.filePath), ".env")); err != nil {
		return nil, err
	}

	settings.ApplyDefaults()
	if env := settings.Embedding.APIKeyEnv; env != "" {
		settings.Embedding.APIKey = os.Getenv(env)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Save writes settings with restricted permissions, creating the directory.
func (s *ConfigStore) Save(settings *domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Exists reports whether the settings file exists.
func (s *ConfigStore) Exists() bool {
	_, err := os.Stat(s.filePath)
	return err == nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// loadDotEnv loads path into the environment if it exists.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
