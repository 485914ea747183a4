package driving

import (
	"context"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
)

// QueryService answers federated queries.
type QueryService interface {
	// Query runs every leg for the free-text input and bundles their results.
	// Leg failures are reported inside the result; an error is returned only
	// for input that cannot be queried at all.
	Query(ctx context.Context, text string, opts domain.QueryOptions) (domain.QueryResult, error)
}
