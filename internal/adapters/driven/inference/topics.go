package inference

import (
	"context"

	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/modelerr"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

var _ driven.TopicModel = (*TopicModel)(nil)

type topicsRequest struct {
	Documents [][]string `json:"documents"`
	NumTopics int        `json:"num_topics"`
	Passes    int        `json:"passes"`
}

// TopicModel calls the server's /topics endpoint.
type TopicModel struct {
	c *Client
}

// NewTopicModel creates a topic model client on c.
func NewTopicModel(c *Client) *TopicModel {
	return &TopicModel{c: c}
}

// Fit fits a topic model over docs. The server returns one distribution per
// document and topic ids in [0, numTopics).
func (m *TopicModel) Fit(ctx context.Context, docs [][]string, numTopics, passes int) (domain.TopicModelResult, error) {
	var res domain.TopicModelResult
	req := topicsRequest{Documents: docs, NumTopics: numTopics, Passes: passes}
	if err := m.c.postJSON(ctx, "topics", "/topics", req, &res); err != nil {
		return domain.TopicModelResult{}, err
	}

	if len(res.Documents) != len(docs) {
		return domain.TopicModelResult{}, modelerr.Output("topics",
			"got %d distributions for %d documents", len(res.Documents), len(docs))
	}
	for i, dist := range res.Documents {
		for _, w := range dist {
			if _, ok := res.Topics[w.TopicID]; !ok {
				return domain.TopicModelResult{}, modelerr.Output("topics",
					"document %d references unknown topic %d", i, w.TopicID)
			}
			if w.Weight < 0 || w.Weight > 1 {
				return domain.TopicModelResult{}, modelerr.Output("topics",
					"document %d weight %v outside [0,1]", i, w.Weight)
			}
		}
	}
	return res, nil
}
