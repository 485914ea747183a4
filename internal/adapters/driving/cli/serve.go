package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driving/httpapi"
	"github.com/inorbit222/Trinity-News-Indexer/internal/logger"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP query API",
	Long: `Starts the HTTP query API:

  GET  /healthz
  GET  /query?q=...&k=...&radius=...
  GET  /documents/{id}
  GET  /index
  POST /index/rebuild
  POST /index/extend

The vector index is loaded from its snapshot (or built when none exists).
With --watch the snapshot file is reloaded whenever another process rewrites it.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "reload the index when its snapshot changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if queryService == nil {
		return fmt.Errorf("query service: %w", errNotConfigured)
	}

	addr := serveAddr
	if addr == "" && settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		addr = settings.Server.Addr
	}
	if addr == "" {
		return fmt.Errorf("no listen address: pass --addr")
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	if indexService != nil {
		info, err := indexService.LoadOrBuild(ctx)
		if err != nil {
			logger.Warn("Vector index not ready, semantic results disabled: %v", err)
		} else {
			logger.Info("Vector index ready: %d vectors", info.Size)
		}

		path := info.SnapshotPath
		if path == "" {
			// Info reports the path even when the store cannot be counted.
			current, _ := indexService.Info(ctx)
			path = current.SnapshotPath
		}
		if serveWatch && path != "" {
			w, err := newSnapshotWatcher(path, indexService.Load)
			if err != nil {
				logger.Warn("Snapshot watch disabled: %v", err)
			} else {
				go w.Run(ctx)
			}
		}
	}

	server, err := httpapi.NewServer(httpapi.Ports{
		Query:    queryService,
		Document: documentService,
		Index:    indexService,
		Health:   healthChecker,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Query API listening on http://%s\n", addr)
	return server.Run(ctx, addr)
}
