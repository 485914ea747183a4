package driving

import (
	"context"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
)

// SettingsService manages the settings file.
type SettingsService interface {
	// Get loads the current settings with defaults applied.
	Get() (*domain.Settings, error)

	// Init writes a settings file holding every default. An existing file is
	// kept unless force is set.
	Init(force bool) error

	// Path returns the settings file path.
	Path() string

	// Check pings every configured model service.
	Check(ctx context.Context) []ServiceCheck
}

// ServiceCheck is the outcome of pinging one model service.
type ServiceCheck struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
	Err  string `json:"error,omitempty"`
}
