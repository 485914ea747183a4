package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Manage the configuration file",
	Long:        `Create, show and check the TOML configuration file.`,
	Annotations: map[string]string{annotationConfigOnly: "true"},
	RunE:        runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every default",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the configured model services respond",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings service: %w", errNotConfigured)
	}
	if err := settingsService.Init(configInitForce); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	cmd.Printf("Wrote %s\n", settingsService.Path())
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings service: %w", errNotConfigured)
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to render settings: %w", err)
	}

	if _, statErr := os.Stat(settingsService.Path()); errors.Is(statErr, os.ErrNotExist) {
		cmd.Printf("# %s does not exist; showing defaults\n", settingsService.Path())
	} else {
		cmd.Printf("# %s\n", settingsService.Path())
	}
	if settings.Embedding.APIKeyEnv != "" {
		state := "not set"
		if settings.Embedding.APIKey != "" {
			state = "set"
		}
		cmd.Printf("# %s: %s\n", settings.Embedding.APIKeyEnv, state)
	}
	cmd.Print(string(data))
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings service: %w", errNotConfigured)
	}
	cmd.Println(settingsService.Path())
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings service: %w", errNotConfigured)
	}

	checks := settingsService.Check(commandContext(cmd))
	failed := 0
	for _, c := range checks {
		if c.OK {
			cmd.Printf("  ok    %s\n", c.Name)
			continue
		}
		failed++
		cmd.Printf("  FAIL  %s: %s\n", c.Name, c.Err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	return nil
}
