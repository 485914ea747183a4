package services

import (
	"strings"
	"unicode"
)

// Token length bounds applied by Tokenize.
const (
	minTokenLen = 2
	maxTokenLen = 15
)

// defaultStopwords is the English stopword list used when no file is configured.
var defaultStopwords = []string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an", "and", "any", "are", "as", "at",
	"be", "because", "been", "before", "being", "below", "between", "both", "but", "by",
	"can", "could", "did", "do", "does", "doing", "down", "during", "each", "few", "for", "from", "further",
	"had", "has", "have", "having", "he", "her", "here", "hers", "herself", "him", "himself", "his", "how",
	"if", "in", "into", "is", "it", "its", "itself", "just", "me", "more", "most", "my", "myself",
	"no", "nor", "not", "now", "of", "off", "on", "once", "only", "or", "other", "our", "ours", "ourselves",
	"out", "over", "own", "same", "she", "should", "so", "some", "such",
	"than", "that", "the", "their", "theirs", "them", "themselves", "then", "there", "these", "they",
	"this", "those", "through", "to", "too", "under", "until", "up", "very",
	"was", "we", "were", "what", "when", "where", "which", "while", "who", "whom", "why", "will", "with",
	"would", "you", "your", "yours", "yourself", "yourselves",
	"mr", "mrs", "said", "also", "one", "two", "new", "may", "upon",
}

// Stopwords is a set of lowercase words removed during tokenisation.
type Stopwords map[string]struct{}

// NewStopwords builds a set from words. An empty list selects the default English list.
func NewStopwords(words []string) Stopwords {
	if len(words) == 0 {
		words = defaultStopwords
	}
	set := make(Stopwords, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// Contains reports whether w is a stopword.
func (s Stopwords) Contains(w string) bool {
	_, ok := s[w]
	return ok
}

// Tokenize splits text into lowercase alphabetic tokens with stopwords removed.
// Tokens shorter than 2 or longer than 15 letters are dropped.
func Tokenize(text string, stop Stopwords) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		n := len([]rune(f))
		if n < minTokenLen || n > maxTokenLen || stop.Contains(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// PhraseDetector joins frequently co-occurring token pairs into bigrams ("new_york").
//
// A pair (a, b) is joined when
//
//	(count(a b) - minCount) * vocab / (count(a) * count(b)) > threshold
//
// where vocab is the number of distinct unigrams and bigrams seen while training.
type PhraseDetector struct {
	minCount  int
	threshold float64
	unigrams  map[string]int
	bigrams   map[[2]string]int
}

// TrainPhrases counts unigrams and adjacent pairs across docs.
func TrainPhrases(docs [][]string, minCount int, threshold float64) *PhraseDetector {
	p := &PhraseDetector{
		minCount:  minCount,
		threshold: threshold,
		unigrams:  make(map[string]int),
		bigrams:   make(map[[2]string]int),
	}
	for _, doc := range docs {
		for i, tok := range doc {
			p.unigrams[tok]++
			if i > 0 {
				p.bigrams[[2]string{doc[i-1], tok}]++
			}
		}
	}
	return p
}

// Score returns the phrase score of the pair (a, b), or -1 if it is never seen.
func (p *PhraseDetector) Score(a, b string) float64 {
	ab := p.bigrams[[2]string{a, b}]
	ca, cb := p.unigrams[a], p.unigrams[b]
	if ab == 0 || ca == 0 || cb == 0 {
		return -1
	}
	vocab := float64(len(p.unigrams) + len(p.bigrams))
	return float64(ab-p.minCount) * vocab / (float64(ca) * float64(cb))
}

// Apply rewrites doc, joining every pair scoring above the threshold.
// Pairs are consumed left to right; a token joins at most one bigram.
func (p *PhraseDetector) Apply(doc []string) []string {
	out := make([]string, 0, len(doc))
	for i := 0; i < len(doc); i++ {
		if i+1 < len(doc) && p.Score(doc[i], doc[i+1]) > p.threshold {
			out = append(out, doc[i]+"_"+doc[i+1])
			i++
			continue
		}
		out = append(out, doc[i])
	}
	return out
}

// FilterExtremes drops tokens appearing in fewer than noBelow documents or in
// more than noAbove (a fraction) of all documents.
func FilterExtremes(docs [][]string, noBelow int, noAbove float64) [][]string {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, tok := range doc {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	maxDocs := noAbove * float64(len(docs))
	out := make([][]string, len(docs))
	for i, doc := range docs {
		kept := make([]string, 0, len(doc))
		for _, tok := range doc {
			n := df[tok]
			if n < noBelow || float64(n) > maxDocs {
				continue
			}
			kept = append(kept, tok)
		}
		out[i] = kept
	}
	return out
}
