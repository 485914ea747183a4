package domain

import "strings"

// Topic is one topic of an unsupervised topic model run.
type Topic struct {
	ID    int      `json:"id"`
	Label string   `json:"label"`
	Terms []string `json:"terms,omitempty"`
}

// DocumentTopic is a weighted edge between a document and a topic.
// Weight is in [0, 1].
type DocumentTopic struct {
	DocumentID int64   `json:"document_id"`
	TopicID    int     `json:"topic_id"`
	Weight     float64 `json:"weight"`
}

// TopicWeight is one (topic, weight) pair of a per-document distribution.
type TopicWeight struct {
	TopicID int     `json:"topic_id"`
	Weight  float64 `json:"weight"`
}

// TopicModelResult is the output of one topic model run over a corpus.
type TopicModelResult struct {
	// Topics maps topic id to its top terms, most probable first.
	Topics map[int][]string `json:"topics"`

	// Documents holds one distribution per input document, in input order.
	Documents [][]TopicWeight `json:"documents"`
}

// TopicLabel derives a display label from a topic's top terms.
// At most n terms are joined and the result is cut to maxLen runes.
func TopicLabel(terms []string, n, maxLen int) string {
	if n > 0 && len(terms) > n {
		terms = terms[:n]
	}
	label := strings.Join(terms, ", ")
	if maxLen <= 0 {
		return label
	}
	r := []rune(label)
	if len(r) <= maxLen {
		return label
	}
	return strings.TrimRight(string(r[:maxLen]), ", ")
}
