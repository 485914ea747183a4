package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, AIProviderInference, s.Embedding.Provider)
	assert.Equal(t, DefaultDimension, s.Embedding.Dimensions)
	assert.Equal(t, s.Embedding.Dimensions, s.Index.Dimension)
	assert.Equal(t, DefaultBatchSize, s.Batch.Size)
	assert.Equal(t, 2, s.NER.MinLength)
	assert.False(t, s.NER.Lowercase)
	assert.Equal(t, SubjectDocument, s.Sentiment.Subject)
	assert.Equal(t, 512, s.Sentiment.MaxChars)
	assert.Equal(t, 10, s.Topics.NumTopics)
	assert.Equal(t, 5, s.Topics.NoBelow)
	assert.InDelta(t, 0.5, s.Topics.NoAbove, 1e-9)
	assert.Equal(t, time.Second, s.Geocode.MinInterval.Duration)
	assert.Equal(t, 10*time.Second, s.Geocode.Timeout.Duration)
	assert.Zero(t, s.Geocode.CacheSize)
	assert.Equal(t, DefaultQueryK, s.Query.K)
	assert.InDelta(t, DefaultRadiusKm, s.Query.RadiusKm, 1e-9)
	assert.False(t, s.Query.GeocodeFallback)
	assert.Empty(t, s.Embedding.APIKeyEnv)
	require.NoError(t, s.Validate())
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	s := &Settings{
		Embedding: EmbeddingSettings{Provider: AIProviderOpenAI, Dimensions: 1536},
		Query:     QuerySettings{K: 12},
	}
	s.ApplyDefaults()

	assert.Equal(t, 1536, s.Index.Dimension)
	assert.Equal(t, "OPENAI_API_KEY", s.Embedding.APIKeyEnv)
	assert.Equal(t, 12, s.Query.K)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Settings)
		want   string
	}{
		{"batch size", func(s *Settings) { s.Batch.Size = -1 }, "batch.size"},
		{"dimension", func(s *Settings) { s.Index.Dimension = -3 }, "index.dimension"},
		{"provider", func(s *Settings) { s.Embedding.Provider = "anthropic" }, "embedding.provider"},
		{"subject", func(s *Settings) { s.Sentiment.Subject = "paragraph" }, "sentiment.subject"},
		{"no_above", func(s *Settings) { s.Topics.NoAbove = 1.5 }, "topics.no_above"},
		{"k", func(s *Settings) { s.Query.K = -1 }, "query.k"},
		{"radius", func(s *Settings) { s.Query.RadiusKm = -5 }, "query.radius_km"},
		{"interval", func(s *Settings) { s.Geocode.MinInterval.Duration = -time.Second }, "geocode.min_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(s)
			err := s.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1500ms")))
	assert.Equal(t, 1500*time.Millisecond, d.Duration)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", string(text))

	assert.ErrorIs(t, d.UnmarshalText([]byte("soon")), ErrInvalidInput)
}

func TestAIProvider(t *testing.T) {
	assert.True(t, AIProviderOllama.IsValid())
	assert.False(t, AIProvider("anthropic").IsValid())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.False(t, AIProviderInference.RequiresAPIKey())
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
	assert.Equal(t, "Unknown", AIProvider("x").Description())
}
