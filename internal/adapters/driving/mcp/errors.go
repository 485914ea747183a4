// Package mcp provides an MCP (Model Context Protocol) server adapter for Trinity.
// It lets AI assistants run federated queries over the enriched news corpus
// and read document details.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
