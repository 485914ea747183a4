package inference

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/modelerr"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

var _ driven.SentimentScorer = (*SentimentScorer)(nil)

type sentimentRequest struct {
	Text string `json:"text"`
}

// sentimentShape accepts both the label/score and the four-component form.
type sentimentShape struct {
	Label    *string  `json:"label"`
	Score    *float64 `json:"score"`
	Pos      *float64 `json:"pos"`
	Neg      *float64 `json:"neg"`
	Neu      *float64 `json:"neu"`
	Compound *float64 `json:"compound"`
}

// SentimentScorer calls the server's /sentiment endpoint.
type SentimentScorer struct {
	c *Client
}

// NewSentimentScorer creates a sentiment scorer on c.
func NewSentimentScorer(c *Client) *SentimentScorer {
	return &SentimentScorer{c: c}
}

// Score returns four-component scores for text.
func (s *SentimentScorer) Score(ctx context.Context, text string) (domain.SentimentScores, error) {
	raw, err := s.c.post(ctx, "sentiment", "/sentiment", sentimentRequest{Text: text})
	if err != nil {
		return domain.SentimentScores{}, err
	}
	return decodeSentiment(raw)
}

func decodeSentiment(raw []byte) (domain.SentimentScores, error) {
	var shape sentimentShape
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		// Classifier pipelines return a list; the first entry is the top label.
		var list []sentimentShape
		if err := json.Unmarshal(raw, &list); err != nil {
			return domain.SentimentScores{}, modelerr.Output("sentiment", "decode response: %v", err)
		}
		if len(list) == 0 {
			return domain.SentimentScores{}, modelerr.Output("sentiment", "empty label list")
		}
		shape = list[0]
	} else if err := json.Unmarshal(raw, &shape); err != nil {
		return domain.SentimentScores{}, modelerr.Output("sentiment", "decode response: %v", err)
	}

	switch {
	case shape.Compound != nil:
		return domain.SentimentScores{
			Pos:      deref(shape.Pos),
			Neg:      deref(shape.Neg),
			Neu:      deref(shape.Neu),
			Compound: *shape.Compound,
		}, nil
	case shape.Label != nil && shape.Score != nil:
		return domain.SentimentLabel{Label: *shape.Label, Score: *shape.Score}.Scores(), nil
	default:
		return domain.SentimentScores{}, modelerr.Output("sentiment", "response has neither label/score nor compound")
	}
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
