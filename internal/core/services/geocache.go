package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
	"github.com/inorbit222/Trinity-News-Indexer/internal/logger"
)

// Ensure GeocodeCache can stand in for the geocoder it wraps.
var _ driven.Geocoder = (*GeocodeCache)(nil)

// geoEntries is the storage behind the cache: a plain map for one run,
// or an LRU when a size bound is configured.
type geoEntries interface {
	Get(key string) (domain.GeoResult, bool)
	Add(key string, value domain.GeoResult)
	Len() int
}

type mapEntries map[string]domain.GeoResult

func (m mapEntries) Get(key string) (domain.GeoResult, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapEntries) Add(key string, value domain.GeoResult) { m[key] = value }

func (m mapEntries) Len() int { return len(m) }

type lruEntries struct {
	c *lru.Cache[string, domain.GeoResult]
}

func (l lruEntries) Get(key string) (domain.GeoResult, bool) { return l.c.Get(key) }

func (l lruEntries) Add(key string, value domain.GeoResult) { l.c.Add(key, value) }

func (l lruEntries) Len() int { return l.c.Len() }

// GeocodeStats counts cache activity.
type GeocodeStats struct {
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
	Calls   int `json:"calls"`
	Entries int `json:"entries"`
}

// inflight is a lookup waiting on the external call for its key.
type inflight struct {
	done chan struct{}
	res  domain.GeoResult
	err  error
}

// GeocodeCache normalises place names and memoises geocoder answers,
// "not found" included. External calls are spaced by a minimum interval;
// hits never wait. Safe for concurrent use.
type GeocodeCache struct {
	geocoder driven.Geocoder
	limiter  *rate.Limiter
	aliases  map[string]string

	mu      sync.Mutex
	entries geoEntries
	pending map[string]*inflight
	stats   GeocodeStats
}

// NewGeocodeCache wraps geocoder. Aliases map noisy names to canonical ones and
// are normalised on load. A positive size bounds the cache with LRU eviction.
func NewGeocodeCache(
	geocoder driven.Geocoder, minInterval time.Duration, aliases map[string]string, size int,
) (*GeocodeCache, error) {
	var entries geoEntries = mapEntries{}
	if size > 0 {
		c, err := lru.New[string, domain.GeoResult](size)
		if err != nil {
			return nil, fmt.Errorf("create geocode lru: %w", err)
		}
		entries = lruEntries{c: c}
	}

	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}

	normalised := make(map[string]string, len(aliases))
	for from, to := range aliases {
		key := normalizeKey(from)
		if key == "" {
			continue
		}
		normalised[key] = titleCase(normalizeKey(to))
	}

	return &GeocodeCache{
		geocoder: geocoder,
		limiter:  rate.NewLimiter(limit, 1),
		aliases:  normalised,
		entries:  entries,
		pending:  make(map[string]*inflight),
	}, nil
}

// Normalize maps a raw place name to its cache key: lowercase, letters only,
// single spaces, then either the alias target or the title-cased name.
func (c *GeocodeCache) Normalize(raw string) string {
	key := normalizeKey(raw)
	if key == "" {
		return ""
	}
	if canonical, ok := c.aliases[key]; ok {
		return canonical
	}
	return titleCase(key)
}

// Geocode implements driven.Geocoder through the cache.
func (c *GeocodeCache) Geocode(ctx context.Context, place string) (domain.GeoResult, error) {
	return c.Lookup(ctx, place)
}

// Lookup resolves raw through the cache. A miss makes exactly one external call
// per key; concurrent lookups of the same key wait for it. Failed calls are not
// cached.
func (c *GeocodeCache) Lookup(ctx context.Context, raw string) (domain.GeoResult, error) {
	key := c.Normalize(raw)
	if key == "" {
		return domain.GeoResult{}, nil
	}

	c.mu.Lock()
	if res, ok := c.entries.Get(key); ok {
		c.stats.Hits++
		c.mu.Unlock()
		return res, nil
	}
	if call, ok := c.pending[key]; ok {
		c.stats.Hits++
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.res, call.err
		case <-ctx.Done():
			return domain.GeoResult{}, ctx.Err()
		}
	}
	call := &inflight{done: make(chan struct{})}
	c.pending[key] = call
	c.stats.Misses++
	c.mu.Unlock()

	call.res, call.err = c.fetch(ctx, key)

	c.mu.Lock()
	delete(c.pending, key)
	if call.err == nil {
		c.entries.Add(key, call.res)
	}
	c.mu.Unlock()
	close(call.done)

	return call.res, call.err
}

func (c *GeocodeCache) fetch(ctx context.Context, key string) (domain.GeoResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.GeoResult{}, fmt.Errorf("geocode rate limit: %w", err)
	}

	c.mu.Lock()
	c.stats.Calls++
	c.mu.Unlock()

	logger.Debug("Geocoding %q", key)
	res, err := c.geocoder.Geocode(ctx, key)
	if err != nil {
		return domain.GeoResult{}, fmt.Errorf("geocode %q: %w", key, err)
	}
	return res, nil
}

// Stats returns a snapshot of the cache counters.
func (c *GeocodeCache) Stats() GeocodeStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.entries.Len()
	return s
}

// normalizeKey lowercases, drops non-letters and collapses whitespace.
func normalizeKey(raw string) string {
	return CleanText(raw, true)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
