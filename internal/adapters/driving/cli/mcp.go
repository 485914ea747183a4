package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driving/mcp"
	"github.com/inorbit222/Trinity-News-Indexer/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes a "query" tool running federated queries, an "index_info"
tool, and trinity://documents/{id} resources with each document's entities,
topics and sentiment.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default)
  trinity mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  trinity mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ctx := commandContext(cmd)
	if indexService != nil {
		if _, err := indexService.LoadOrBuild(ctx); err != nil {
			logger.Warn("Vector index not ready, semantic results disabled: %v", err)
		}
	}

	ports := &mcp.Ports{
		Query:    queryService,
		Document: documentService,
		Index:    indexService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	var addr string
	if port > 0 {
		addr = fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s/mcp\n", addr)
	}
	return server.Serve(ctx, addr)
}
