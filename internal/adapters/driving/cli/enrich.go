package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
)

var (
	enrichJSON bool
	enrichList bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [stage...]",
	Short: "Run enrichment stages",
	Long: `Runs enrichment stages over every document not yet processed by them.

Stages: entities, sentiment, topics, geocode, embeddings.
With no arguments every available stage runs. Stages are independent:
a failing stage is reported and the others still run.`,
	Args: validateStageArgs,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichJSON, "json", false, "output reports as JSON")
	enrichCmd.Flags().BoolVar(&enrichList, "list", false, "list available stages and exit")
	rootCmd.AddCommand(enrichCmd)
}

func validateStageArgs(_ *cobra.Command, args []string) error {
	for _, a := range args {
		if !domain.StageName(a).IsValid() {
			return fmt.Errorf("unknown stage %q (want one of %v)", a, domain.AllStages())
		}
	}
	return nil
}

func runEnrich(cmd *cobra.Command, args []string) error {
	if pipeline == nil {
		return fmt.Errorf("enrichment pipeline: %w", errNotConfigured)
	}

	if enrichList {
		for _, s := range pipeline.Stages() {
			cmd.Println(s)
		}
		return nil
	}

	names := make([]domain.StageName, len(args))
	for i, a := range args {
		names[i] = domain.StageName(a)
	}

	reports, runErr := pipeline.Run(commandContext(cmd), names...)
	if enrichJSON {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal reports: %w", err)
		}
		cmd.Println(string(data))
	} else {
		printReports(cmd, reports)
	}
	if runErr != nil {
		return fmt.Errorf("enrichment failed: %w", runErr)
	}
	return nil
}

func printReports(cmd *cobra.Command, reports []driving.StageReport) {
	if len(reports) == 0 {
		cmd.Println("No stages ran.")
		return
	}

	cmd.Printf("%-12s %8s %10s %8s %8s %10s\n", "STAGE", "BATCHES", "PROCESSED", "WRITTEN", "SKIPPED", "DURATION")
	for i := range reports {
		r := &reports[i]
		cmd.Printf("%-12s %8d %10d %8d %8d %10s\n",
			r.Stage, r.Batches, r.Processed, r.Written, r.Skipped, r.Duration.Round(time.Millisecond))
		if r.Error != "" {
			cmd.Printf("  error: %s\n", r.Error)
		}
	}
}
