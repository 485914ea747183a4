// Package nominatim provides a geocoder backed by the OpenStreetMap Nominatim search API.
//
// The adapter makes one request per call. Spacing between calls and caching
// of answers are the caller's concern.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/modelerr"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
)

// Ensure Geocoder implements the interface.
var _ driven.Geocoder = (*Geocoder)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "trinity-news-indexer"
	DefaultTimeout   = 10 * time.Second
)

const service = "nominatim"

// Config holds configuration for the Nominatim geocoder.
type Config struct {
	BaseURL string

	// UserAgent identifies the application, as the usage policy requires.
	UserAgent string

	// Timeout bounds each request.
	Timeout time.Duration
}

// Geocoder resolves place names with Nominatim.
type Geocoder struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// place is one search hit. Nominatim encodes coordinates as strings.
type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewGeocoder creates a Nominatim geocoder.
func NewGeocoder(cfg Config) *Geocoder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Geocoder{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
	}
}

// Geocode returns the best match for name. No match is GeoResult{Found: false}.
func (g *Geocoder) Geocode(ctx context.Context, name string) (domain.GeoResult, error) {
	q := url.Values{}
	q.Set("q", name)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+q.Encode(), http.NoBody)
	if err != nil {
		return domain.GeoResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.GeoResult{}, modelerr.Transport(service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.GeoResult{}, modelerr.Status(service, resp.StatusCode, body)
	}

	var hits []place
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return domain.GeoResult{}, modelerr.Output(service, "decode response: %v", err)
	}
	if len(hits) == 0 {
		return domain.GeoResult{Found: false}, nil
	}

	lat, err := strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return domain.GeoResult{}, modelerr.Output(service, "lat %q: %v", hits[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return domain.GeoResult{}, modelerr.Output(service, "lon %q: %v", hits[0].Lon, err)
	}
	res := domain.GeoResult{Found: true, Lat: lat, Lon: lon, DisplayName: hits[0].DisplayName}
	if !res.Point().Valid() {
		return domain.GeoResult{}, modelerr.Output(service, "coordinates (%v, %v) out of range", lat, lon)
	}
	return res, nil
}
