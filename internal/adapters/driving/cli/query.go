package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/logger"
)

var (
	queryK      int
	queryRadius float64
	queryJSON   bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Run a federated query",
	Long: `Answers a free-text query with four independent result lists:
semantically similar documents, exact matches of the recognised entity,
documents near the entity's location and the entity's sentiment.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "k", "k", 0, "number of similar documents (default from config)")
	queryCmd.Flags().Float64Var(&queryRadius, "radius", 0, "geospatial radius in km (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return fmt.Errorf("query service: %w", errNotConfigured)
	}

	ctx := commandContext(cmd)
	loadIndex(ctx)

	text := strings.Join(args, " ")
	opts := domain.QueryOptions{K: queryK, RadiusKm: queryRadius}
	result, err := queryService.Query(ctx, text, opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printQueryResult(cmd, &result)
	return nil
}

// loadIndex publishes the persisted snapshot for the semantic leg. A missing
// or unreadable snapshot leaves the leg to report itself unavailable.
func loadIndex(ctx context.Context) {
	if indexService == nil {
		return
	}
	err := indexService.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		logger.Debug("No index snapshot; run 'trinity index build' for semantic results")
	default:
		logger.Warn("Vector index not loaded, semantic results disabled: %v", err)
	}
}

func printQueryResult(cmd *cobra.Command, r *domain.QueryResult) {
	cmd.Printf("Query: %s\n\n", r.Query)

	if r.Entity != nil {
		cmd.Printf("Entity: %s (%s)", r.Entity.Value, r.Entity.Type)
		if r.Entity.Location != nil {
			cmd.Printf(" at %.4f, %.4f", r.Entity.Location.Lat, r.Entity.Location.Lon)
		}
		cmd.Println()
	} else {
		cmd.Println("Entity: (none recognised)")
	}
	cmd.Println()

	cmd.Println("[Semantic]")
	if len(r.Semantic) == 0 {
		cmd.Println("  (no results)")
	}
	for i, id := range r.Semantic {
		cmd.Printf("  [%d] document %d\n", i+1, id)
	}
	cmd.Println()

	cmd.Println("[Entity matches]")
	if len(r.Entities) == 0 {
		cmd.Println("  (no results)")
	}
	for _, m := range r.Entities {
		cmd.Printf("  document %d  entity %d  %s\n", m.DocumentID, m.EntityID, m.Value)
	}
	cmd.Println()

	cmd.Println("[Geospatial]")
	if len(r.Geospatial) == 0 {
		cmd.Println("  (no results)")
	}
	for _, g := range r.Geospatial {
		cmd.Printf("  document %d  %s  %.1f km\n", g.DocumentID, g.Value, g.DistanceKm)
	}
	cmd.Println()

	cmd.Println("[Sentiment]")
	if r.Sentiment == nil {
		cmd.Println("  (none)")
	} else {
		s := r.Sentiment
		cmd.Printf("  compound %.3f  (pos %.3f, neg %.3f, neu %.3f)\n", s.Compound, s.Pos, s.Neg, s.Neu)
	}

	if len(r.Errors) > 0 {
		cmd.Println()
		cmd.Println("[Errors]")
		for _, leg := range []string{domain.LegSemantic, domain.LegEntity, domain.LegGeospatial, domain.LegSentiment} {
			if msg, ok := r.Errors[leg]; ok {
				cmd.Printf("  %s: %s\n", leg, msg)
			}
		}
	}
}
