package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	stop := NewStopwords(nil)

	got := Tokenize("The Harbor at San-Francisco was CLOSED in 1906, a quake!", stop)

	assert.Equal(t, []string{"harbor", "san", "francisco", "closed", "quake"}, got)
}

func TestTokenize_LengthBounds(t *testing.T) {
	got := Tokenize("x ab supercalifragilistic", NewStopwords([]string{"zz"}))
	assert.Equal(t, []string{"ab"}, got)
}

func TestNewStopwords_Custom(t *testing.T) {
	stop := NewStopwords([]string{" Harbor ", ""})
	assert.True(t, stop.Contains("harbor"))
	assert.False(t, stop.Contains("the"))
}

func TestPhraseDetector(t *testing.T) {
	var docs [][]string
	for i := 0; i < 20; i++ {
		docs = append(docs, []string{"san", "francisco", "harbor"})
		docs = append(docs, []string{"cargo", "ship", "docked"})
	}
	docs = append(docs, []string{"harbor", "cargo"})

	p := TrainPhrases(docs, 5, 0.1)

	// (20 - 5) * 11 / (20 * 20): 6 unigrams and 5 bigrams were seen.
	assert.InDelta(t, 0.4125, p.Score("san", "francisco"), 1e-9)
	assert.Equal(t, -1.0, p.Score("docked", "san"))
	assert.Equal(t, []string{"san_francisco", "harbor"}, p.Apply([]string{"san", "francisco", "harbor"}))
	assert.Equal(t, []string{"harbor", "cargo"}, p.Apply([]string{"harbor", "cargo"}))
}

func TestFilterExtremes(t *testing.T) {
	docs := [][]string{
		{"the", "fire", "mill"},
		{"the", "fire", "flood"},
		{"the", "harbor"},
		{"the", "fire", "mill"},
	}

	got := FilterExtremes(docs, 2, 0.8)

	// "the" is in every document; "flood" and "harbor" appear once.
	assert.Equal(t, [][]string{{"fire", "mill"}, {"fire"}, {}, {"fire", "mill"}}, got)
}
