package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
)

var indexJSON bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector index",
	Long:  `Build, extend and inspect the nearest-neighbour index over document embeddings.`,
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the index from every stored embedding",
	Args:  cobra.NoArgs,
	RunE:  runIndexBuild,
}

var indexExtendCmd = &cobra.Command{
	Use:   "extend",
	Short: "Add embeddings missing from the index",
	Args:  cobra.NoArgs,
	RunE:  runIndexExtend,
}

var indexInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show index metadata",
	Args:  cobra.NoArgs,
	RunE:  runIndexInfo,
}

func init() {
	indexCmd.PersistentFlags().BoolVar(&indexJSON, "json", false, "output as JSON")
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexExtendCmd)
	indexCmd.AddCommand(indexInfoCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexBuild(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return fmt.Errorf("index service: %w", errNotConfigured)
	}
	info, err := indexService.Build(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}
	return printIndexInfo(cmd, info)
}

func runIndexExtend(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return fmt.Errorf("index service: %w", errNotConfigured)
	}
	ctx := commandContext(cmd)
	if _, err := indexService.LoadOrBuild(ctx); err != nil {
		return fmt.Errorf("index extend failed: %w", err)
	}
	info, err := indexService.Extend(ctx)
	if err != nil {
		return fmt.Errorf("index extend failed: %w", err)
	}
	return printIndexInfo(cmd, info)
}

func runIndexInfo(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return fmt.Errorf("index service: %w", errNotConfigured)
	}
	ctx := commandContext(cmd)
	// A missing snapshot is not an error here; Info reports an empty index.
	_ = indexService.Load(ctx)
	info, err := indexService.Info(ctx)
	if err != nil {
		return fmt.Errorf("index info failed: %w", err)
	}
	return printIndexInfo(cmd, info)
}

func printIndexInfo(cmd *cobra.Command, info driving.IndexInfo) error {
	if indexJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal index info: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println("Vector Index")
	cmd.Println("============")
	if info.SnapshotID == "" {
		cmd.Println("  Snapshot:  (none)")
	} else {
		cmd.Printf("  Snapshot:  %s\n", info.SnapshotID)
		cmd.Printf("  Created:   %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if info.SnapshotPath != "" {
		cmd.Printf("  Path:      %s\n", info.SnapshotPath)
	}
	cmd.Printf("  Dimension: %d\n", info.Dimension)
	cmd.Printf("  Vectors:   %d\n", info.Size)
	cmd.Printf("  Stale:     %d\n", info.Stale)
	return nil
}
