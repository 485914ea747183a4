package driven

import (
	"context"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
)

// EntityExtractor runs a named-entity model over text.
// Offsets in the returned tags are character offsets into text.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]domain.RawTag, error)
}

// SentimentScorer runs a sentiment model over text.
type SentimentScorer interface {
	Score(ctx context.Context, text string) (domain.SentimentScores, error)
}

// TopicModel fits an unsupervised topic model over a tokenised corpus.
type TopicModel interface {
	// Fit returns topics and one distribution per input document, in input order.
	Fit(ctx context.Context, docs [][]string, numTopics, passes int) (domain.TopicModelResult, error)
}

// Geocoder resolves a place name. A miss is reported as GeoResult{Found: false}
// with a nil error; errors are reserved for failed calls.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (domain.GeoResult, error)
}

// ModelServices bundles the black-box models consumed by the pipeline.
// Any member may be nil when its stage is not in use.
type ModelServices struct {
	Entities  EntityExtractor
	Sentiment SentimentScorer
	Topics    TopicModel
	Geocoder  Geocoder
	Embedding EmbeddingService
}
