package driven

import "github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"

// ConfigStore persists the process settings.
type ConfigStore interface {
	// Load reads the settings file, applying defaults and resolving secrets from
	// the environment. A missing file yields the defaults.
	Load() (*domain.Settings, error)

	// Save writes settings to the file. Secrets are never written.
	Save(settings *domain.Settings) error

	// Exists reports whether the settings file exists.
	Exists() bool

	// Path returns the configuration file path.
	Path() string
}

// ListLoader reads the auxiliary word lists referenced from settings.
type ListLoader interface {
	// Aliases returns the geocode alias table. An empty path yields no aliases.
	Aliases(path string) (map[string]string, error)

	// Stopwords returns the topic stopword list. An empty path yields nil.
	Stopwords(path string) ([]string, error)
}
