// Package cli implements the trinity command line with cobra.
//
// Commands reach the core only through driving ports. The services are built
// lazily by a Bootstrap function, once flags are parsed, so that --config and
// --verbose apply to every command.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
	"github.com/inorbit222/Trinity-News-Indexer/internal/logger"
)

// Command annotations controlling what the bootstrap builds.
const (
	annotationNoServices = "trinity/no-services"
	annotationConfigOnly = "trinity/config-only"
)

var version = "dev"

// Global flags.
var (
	configPath string
	verbose    bool
)

// Services wired by SetServices.
var (
	pipeline        driving.Pipeline
	indexService    driving.IndexService
	queryService    driving.QueryService
	documentService driving.DocumentService
	settingsService driving.SettingsService
	healthChecker   HealthChecker
)

// HealthChecker reports whether the corpus store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Services is the set of driving ports the commands use.
// Any field may be nil; commands that need a missing service fail.
type Services struct {
	Pipeline driving.Pipeline
	Index    driving.IndexService
	Query    driving.QueryService
	Document driving.DocumentService
	Settings driving.SettingsService
	Health   HealthChecker
}

// Options are the global flag values handed to a Bootstrap.
type Options struct {
	ConfigPath string
	Verbose    bool

	// ConfigOnly asks for the settings service alone, without opening the
	// store or contacting model services.
	ConfigOnly bool
}

// Bootstrap builds the services for one command. The returned cleanup
// releases them and may be nil.
type Bootstrap func(ctx context.Context, opts Options) (*Services, func() error, error)

var (
	bootstrap Bootstrap
	cleanup   func() error
)

var rootCmd = &cobra.Command{
	Use:   "trinity",
	Short: "Enrich a news corpus and query it",
	Long: `Trinity enriches a corpus of historical newspaper articles with entities,
sentiment, topics, coordinates and embeddings, then answers free-text queries
with semantic, entity, geospatial and sentiment results side by side.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.trinity/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap installs the function that builds services once flags are parsed.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices injects services directly, bypassing the bootstrap.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	pipeline = s.Pipeline
	indexService = s.Index
	queryService = s.Query
	documentService = s.Document
	settingsService = s.Settings
	healthChecker = s.Health
}

// Execute runs the root command and releases the services afterwards.
func Execute(ctx context.Context) error {
	defer func() {
		if cleanup == nil {
			return
		}
		if err := cleanup(); err != nil {
			logger.Warn("cleanup: %v", err)
		}
		cleanup = nil
	}()
	return rootCmd.ExecuteContext(ctx)
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if bootstrap == nil || hasAnnotation(cmd, annotationNoServices) || cmd.Name() == "help" {
		return nil
	}

	opts := Options{
		ConfigPath: configPath,
		Verbose:    verbose,
		ConfigOnly: hasAnnotation(cmd, annotationConfigOnly),
	}
	svc, done, err := bootstrap(cmd.Context(), opts)
	if err != nil {
		return err
	}
	SetServices(svc)
	cleanup = done
	return nil
}

// hasAnnotation looks for key on cmd and its parents.
func hasAnnotation(cmd *cobra.Command, key string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[key] == "true" {
			return true
		}
	}
	return false
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

var errNotConfigured = errors.New("service not configured")
