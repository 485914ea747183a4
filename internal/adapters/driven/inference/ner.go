package inference

import (
	"context"
	"unicode/utf8"

	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/modelerr"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

var _ driven.EntityExtractor = (*EntityExtractor)(nil)

type nerRequest struct {
	Text string `json:"text"`
}

type nerResponse struct {
	Entities *[]domain.RawTag `json:"entities"`
}

// EntityExtractor calls the server's /ner endpoint.
type EntityExtractor struct {
	c *Client
}

// NewEntityExtractor creates an entity extractor on c.
func NewEntityExtractor(c *Client) *EntityExtractor {
	return &EntityExtractor{c: c}
}

// Extract returns the token tags for text. Offsets must lie within text.
func (e *EntityExtractor) Extract(ctx context.Context, text string) ([]domain.RawTag, error) {
	var resp nerResponse
	if err := e.c.postJSON(ctx, "ner", "/ner", nerRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	if resp.Entities == nil {
		return nil, modelerr.Output("ner", "response has no entities field")
	}

	n := utf8.RuneCountInString(text)
	tags := *resp.Entities
	for i, t := range tags {
		if t.Start < 0 || t.End < t.Start || t.End > n {
			return nil, modelerr.Output("ner", "tag %d span [%d,%d) outside text of %d characters", i, t.Start, t.End, n)
		}
	}
	return tags, nil
}
