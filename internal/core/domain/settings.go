package domain

import (
	"errors"
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// Duration wraps time.Duration so it can be written as "1s" or "250ms" in config files.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %w", ErrInvalidInput, string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// AIProvider identifies a model service provider.
type AIProvider string

// Available providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI API or a compatible server.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderInference is the project's JSON inference server
	// (NER, sentiment, topics and embeddings behind one base URL).
	AIProviderInference AIProvider = "inference"
)

// IsValid returns true if the provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderInference:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderInference:
		return "Inference server"
	default:
		return unknownDescription
	}
}

// DatabaseSettings configures the corpus store.
type DatabaseSettings struct {
	// Path is the SQLite database file.
	Path string `toml:"path"`
}

// ModelSettings configures the inference server hosting NER, sentiment and topic models.
type ModelSettings struct {
	InferenceURL string   `toml:"inference_url"`
	Timeout      Duration `toml:"timeout"`
}

// EmbeddingSettings configures the embedding model.
type EmbeddingSettings struct {
	Provider   AIProvider `toml:"provider"`
	Model      string     `toml:"model"`
	BaseURL    string     `toml:"base_url,omitempty"`
	Dimensions int        `toml:"dimensions"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env,omitempty"`

	// APIKey is resolved from APIKeyEnv at load time and never written back.
	APIKey string `toml:"-"`
}

// IsConfigured returns true if an embedding provider is selected.
func (s EmbeddingSettings) IsConfigured() bool {
	return s.Provider != ""
}

// BatchSettings configures batch cursors.
type BatchSettings struct {
	Size int `toml:"size"`
}

// NERSettings configures the entity extractor stage.
type NERSettings struct {
	// Lowercase lowercases the cleaned text before extraction.
	Lowercase bool `toml:"lowercase"`

	// MinLength discards entities with fewer characters.
	MinLength int `toml:"min_length"`
}

// SentimentSettings configures the sentiment scorer stage.
type SentimentSettings struct {
	Subject       SubjectKind `toml:"subject"`
	MaxChars      int         `toml:"max_chars"`
	ContextWindow int         `toml:"context_window"`
}

// TopicSettings configures the topic assigner stage and its preprocessing.
type TopicSettings struct {
	NumTopics      int     `toml:"num_topics"`
	Passes         int     `toml:"passes"`
	Bigrams        bool    `toml:"bigrams"`
	BigramMinCount int     `toml:"bigram_min_count"`
	BigramThresh   float64 `toml:"bigram_threshold"`
	NoBelow        int     `toml:"no_below"`
	NoAbove        float64 `toml:"no_above"`
	MinWeight      float64 `toml:"min_weight"`
	LabelTerms     int     `toml:"label_terms"`
	LabelLength    int     `toml:"label_length"`
	StopwordsFile  string  `toml:"stopwords_file,omitempty"`
}

// GeocodeSettings configures the geocoder and its cache.
type GeocodeSettings struct {
	BaseURL     string   `toml:"base_url"`
	UserAgent   string   `toml:"user_agent"`
	MinInterval Duration `toml:"min_interval"`
	Timeout     Duration `toml:"timeout"`
	AliasesFile string   `toml:"aliases_file,omitempty"`

	// CacheSize bounds the cache with LRU eviction. Zero means unbounded for the run.
	CacheSize int `toml:"cache_size"`
}

// IndexSettings configures the vector index.
type IndexSettings struct {
	SnapshotPath string `toml:"snapshot_path"`
	Dimension    int    `toml:"dimension"`
}

// QuerySettings configures the query federator.
type QuerySettings struct {
	K               int      `toml:"k"`
	RadiusKm        float64  `toml:"radius_km"`
	LegTimeout      Duration `toml:"leg_timeout"`
	GeocodeFallback bool     `toml:"geocode_fallback"`
}

// ServerSettings configures the HTTP query API.
type ServerSettings struct {
	Addr string `toml:"addr"`
}

// Settings is the process configuration. It is constructed once at start-up
// and passed by reference to every component.
type Settings struct {
	Database  DatabaseSettings  `toml:"database"`
	Models    ModelSettings     `toml:"models"`
	Embedding EmbeddingSettings `toml:"embedding"`
	Batch     BatchSettings     `toml:"batch"`
	NER       NERSettings       `toml:"ner"`
	Sentiment SentimentSettings `toml:"sentiment"`
	Topics    TopicSettings     `toml:"topics"`
	Geocode   GeocodeSettings   `toml:"geocode"`
	Index     IndexSettings     `toml:"index"`
	Query     QuerySettings     `toml:"query"`
	Server    ServerSettings    `toml:"server"`
}

// Default values.
const (
	DefaultDimension     = 768
	DefaultBatchSize     = 100
	DefaultQueryK        = 5
	DefaultRadiusKm      = 50.0
	DefaultLabelLength   = 100
	DefaultInferenceURL  = "http://localhost:8000"
	DefaultNominatimURL  = "https://nominatim.openstreetmap.org"
	DefaultGeocodeAgent  = "trinity-news-indexer"
	DefaultServerAddr    = "127.0.0.1:8088"
	DefaultEmbeddingName = "sentence-transformers/gtr-t5-large"
)

// DefaultSettings returns settings with every default applied.
func DefaultSettings() *Settings {
	s := &Settings{}
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills zero-valued fields with defaults.
//
//nolint:gocyclo // Flat list of independent defaults
func (s *Settings) ApplyDefaults() {
	if s.Models.InferenceURL == "" {
		s.Models.InferenceURL = DefaultInferenceURL
	}
	if s.Models.Timeout.Duration == 0 {
		s.Models.Timeout.Duration = 60 * time.Second
	}
	if s.Embedding.Provider == "" {
		s.Embedding.Provider = AIProviderInference
	}
	if s.Embedding.Model == "" {
		s.Embedding.Model = DefaultEmbeddingName
	}
	if s.Embedding.Dimensions == 0 {
		s.Embedding.Dimensions = DefaultDimension
	}
	if s.Embedding.Provider == AIProviderOpenAI && s.Embedding.APIKeyEnv == "" {
		s.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if s.Batch.Size <= 0 {
		s.Batch.Size = DefaultBatchSize
	}
	if s.NER.MinLength == 0 {
		s.NER.MinLength = 2
	}
	if s.Sentiment.Subject == "" {
		s.Sentiment.Subject = SubjectDocument
	}
	if s.Sentiment.MaxChars == 0 {
		s.Sentiment.MaxChars = 512
	}
	if s.Sentiment.ContextWindow == 0 {
		s.Sentiment.ContextWindow = 200
	}
	s.applyTopicDefaults()
	if s.Geocode.BaseURL == "" {
		s.Geocode.BaseURL = DefaultNominatimURL
	}
	if s.Geocode.UserAgent == "" {
		s.Geocode.UserAgent = DefaultGeocodeAgent
	}
	if s.Geocode.MinInterval.Duration == 0 {
		s.Geocode.MinInterval.Duration = time.Second
	}
	if s.Geocode.Timeout.Duration == 0 {
		s.Geocode.Timeout.Duration = 10 * time.Second
	}
	if s.Index.Dimension == 0 {
		s.Index.Dimension = s.Embedding.Dimensions
	}
	if s.Query.K == 0 {
		s.Query.K = DefaultQueryK
	}
	if s.Query.RadiusKm == 0 {
		s.Query.RadiusKm = DefaultRadiusKm
	}
	if s.Query.LegTimeout.Duration == 0 {
		s.Query.LegTimeout.Duration = 30 * time.Second
	}
	if s.Server.Addr == "" {
		s.Server.Addr = DefaultServerAddr
	}
}

func (s *Settings) applyTopicDefaults() {
	t := &s.Topics
	if t.NumTopics == 0 {
		t.NumTopics = 10
	}
	if t.Passes == 0 {
		t.Passes = 15
	}
	if t.BigramMinCount == 0 {
		t.BigramMinCount = 5
	}
	if t.BigramThresh == 0 {
		t.BigramThresh = 100
	}
	if t.NoBelow == 0 {
		t.NoBelow = 5
	}
	if t.NoAbove == 0 {
		t.NoAbove = 0.5
	}
	if t.MinWeight == 0 {
		t.MinWeight = 0.01
	}
	if t.LabelTerms == 0 {
		t.LabelTerms = 5
	}
	if t.LabelLength == 0 {
		t.LabelLength = DefaultLabelLength
	}
}

// Validate rejects settings no component can work with.
func (s *Settings) Validate() error {
	var errs []error
	if s.Batch.Size <= 0 {
		errs = append(errs, errors.New("batch.size must be positive"))
	}
	if s.Index.Dimension <= 0 {
		errs = append(errs, errors.New("index.dimension must be positive"))
	}
	if s.Embedding.IsConfigured() && !s.Embedding.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("embedding.provider %q is not supported", s.Embedding.Provider))
	}
	if !s.Sentiment.Subject.IsValid() {
		errs = append(errs, fmt.Errorf("sentiment.subject %q is not supported", s.Sentiment.Subject))
	}
	if s.Topics.NoAbove <= 0 || s.Topics.NoAbove > 1 {
		errs = append(errs, errors.New("topics.no_above must be in (0, 1]"))
	}
	if s.Query.K <= 0 {
		errs = append(errs, errors.New("query.k must be positive"))
	}
	if s.Query.RadiusKm <= 0 {
		errs = append(errs, errors.New("query.radius_km must be positive"))
	}
	if s.Geocode.MinInterval.Duration < 0 {
		errs = append(errs, errors.New("geocode.min_interval must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}
