package mcp

import (
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query runs federated queries.
	Query driving.QueryService

	// Document reads documents and their signals.
	Document driving.DocumentService

	// Index describes the vector index.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
