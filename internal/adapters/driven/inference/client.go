// Package inference provides clients for the JSON inference server that hosts
// the entity, sentiment, topic and embedding models behind one base URL.
//
// Endpoints:
//
//	GET  /health     liveness
//	POST /ner        {"text"} -> {"entities": [{"type","value","start","end","score"}]}
//	POST /sentiment  {"text"} -> {"label","score"} | [{"label","score"}] | {"pos","neg","neu","compound"}
//	POST /topics     {"documents","num_topics","passes"} -> {"topics": {...}, "documents": [[...]]}
//	POST /embed      {"texts","model"} -> {"embeddings": [[...]]}
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/inorbit222/Trinity-News-Indexer/internal/adapters/driven/modelerr"
)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 60 * time.Second
)

// maxResponse bounds a decoded response body.
const maxResponse = 64 << 20

// Config holds configuration for the inference server clients.
type Config struct {
	// BaseURL is the server base URL (default: http://localhost:8000).
	BaseURL string

	// Timeout bounds each request (default: 60s).
	Timeout time.Duration

	// HTTPClient overrides the default client. Its Timeout is left as is.
	HTTPClient *http.Client
}

// Client is the shared transport of every model client in this package.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a client for the inference server.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{http: hc, baseURL: strings.TrimRight(cfg.BaseURL, "/")}
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Ping checks the /health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return modelerr.Transport("inference", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return modelerr.Status("inference", resp.StatusCode, body)
	}
	return nil
}

// post sends in as JSON to path and returns the raw response body.
func (c *Client) post(ctx context.Context, service, path string, in any) ([]byte, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, modelerr.Transport(service, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return nil, modelerr.Transport(service, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, modelerr.Status(service, resp.StatusCode, raw)
	}
	return raw, nil
}

// postJSON is post followed by decoding into out.
func (c *Client) postJSON(ctx context.Context, service, path string, in, out any) error {
	raw, err := c.post(ctx, service, path, in)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return modelerr.Output(service, "decode response: %v", err)
	}
	return nil
}
