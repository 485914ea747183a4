package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
)

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Query    string  `json:"query" jsonschema:"free-text query, e.g. a place or person with some context"`
	K        int     `json:"k,omitempty" jsonschema:"number of semantically similar documents (default from config)"`
	RadiusKm float64 `json:"radius_km,omitempty" jsonschema:"radius in kilometres for nearby documents (default from config)"`
}

// QueryOutput is the output schema for the query tool. Each list is ranked on its own.
type QueryOutput struct {
	Entity     *domain.QueryEntity     `json:"entity,omitempty"`
	Semantic   []int64                 `json:"semantic"`
	Entities   []domain.EntityMatch    `json:"entity_matches"`
	Geospatial []domain.GeoMatch       `json:"geospatial"`
	Sentiment  *domain.SentimentScores `json:"sentiment,omitempty"`
	Errors     map[string]string       `json:"errors,omitempty"`
}

// IndexInfoInput is the (empty) input schema for the index_info tool.
type IndexInfoInput struct{}

// IndexInfoOutput is the output schema for the index_info tool.
type IndexInfoOutput struct {
	SnapshotID string `json:"snapshot_id"`
	Dimension  int    `json:"dimension"`
	Size       int    `json:"size"`
	Stale      int    `json:"stale"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "query",
		Description: "Federated query over the news corpus: nearest documents by meaning, " +
			"exact entity matches, documents near the recognised place and its sentiment",
	}, s.handleQuery)

	if s.ports.Index != nil {
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "index_info",
			Description: "Describe the vector index: size, dimension and embeddings not yet indexed",
		}, s.handleIndexInfo)
	}
}

// handleQuery handles the query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	opts := domain.QueryOptions{K: input.K, RadiusKm: input.RadiusKm}
	result, err := s.ports.Query.Query(ctx, input.Query, opts)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	return nil, QueryOutput{
		Entity:     result.Entity,
		Semantic:   result.Semantic,
		Entities:   result.Entities,
		Geospatial: result.Geospatial,
		Sentiment:  result.Sentiment,
		Errors:     result.Errors,
	}, nil
}

// handleIndexInfo handles the index_info tool invocation.
func (s *Server) handleIndexInfo(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ IndexInfoInput,
) (*mcp.CallToolResult, IndexInfoOutput, error) {
	if s.ports.Index == nil {
		return nil, IndexInfoOutput{}, errors.New("index service not configured")
	}
	info, err := s.ports.Index.Info(ctx)
	if err != nil {
		return nil, IndexInfoOutput{}, err
	}

	out := IndexInfoOutput{
		SnapshotID: info.SnapshotID,
		Dimension:  info.Dimension,
		Size:       info.Size,
		Stale:      info.Stale,
	}
	if !info.CreatedAt.IsZero() {
		out.CreatedAt = info.CreatedAt.Format(time.RFC3339)
	}
	return nil, out, nil
}
