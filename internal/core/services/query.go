package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
	"github.com/inorbit222/Trinity-News-Indexer/internal/logger"
)

// Ensure QueryFederator implements the interface.
var _ driving.QueryService = (*QueryFederator)(nil)

// entityMatchLimit caps the exact-match entity leg.
const entityMatchLimit = 100

// VectorSearcher finds nearest documents to a query vector.
type VectorSearcher interface {
	Search(ctx context.Context, vec []float32, k int) ([]driven.VectorHit, error)
}

// QueryReader is the part of the corpus store the federator reads.
type QueryReader interface {
	driven.EntityReader
	driven.SignalReader
}

// QueryFederator answers free-text queries with four independent legs:
// semantic neighbours, exact entity matches, documents near the entity's
// location and the entity's sentiment. Each leg ranks its own results.
type QueryFederator struct {
	store     QueryReader
	embedder  driven.EmbeddingService
	index     VectorSearcher
	extractor driven.EntityExtractor
	geocoder  *GeocodeCache
	settings  *domain.Settings
}

// NewQueryFederator creates a federator. embedder, index, extractor and
// geocoder are optional; a missing dependency empties its legs.
func NewQueryFederator(
	store QueryReader,
	embedder driven.EmbeddingService,
	index VectorSearcher,
	extractor driven.EntityExtractor,
	settings *domain.Settings,
) *QueryFederator {
	return &QueryFederator{
		store:     store,
		embedder:  embedder,
		index:     index,
		extractor: extractor,
		settings:  settings,
	}
}

// SetGeocoder enables resolving query locations the store has no coordinates for.
// It is used only when query.geocode_fallback is set.
func (q *QueryFederator) SetGeocoder(cache *GeocodeCache) {
	q.geocoder = cache
}

// Query runs every leg for text. Leg failures are recorded in the result's
// Errors map and never fail the query.
func (q *QueryFederator) Query(ctx context.Context, text string, opts domain.QueryOptions) (domain.QueryResult, error) {
	logger.Section("Query")
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.QueryResult{}, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	logger.Debug("Query: %q", text)

	k := opts.K
	if k <= 0 {
		k = q.settings.Query.K
	}
	radius := opts.RadiusKm
	if radius <= 0 {
		radius = q.settings.Query.RadiusKm
	}

	result := domain.NewQueryResult(text)
	var mu sync.Mutex
	setError := func(leg string, err error) {
		mu.Lock()
		defer mu.Unlock()
		logger.Warn("%s leg failed: %v", leg, err)
		result.SetError(leg, err)
	}

	// The semantic leg runs alongside the entity chain.
	var wg sync.WaitGroup
	var semantic []int64
	wg.Add(1)
	go func() {
		defer wg.Done()
		ids, err := q.semanticLeg(ctx, text, k)
		if err != nil {
			setError(domain.LegSemantic, err)
			return
		}
		semantic = ids
	}()

	entity, matches, err := q.entityLeg(ctx, text)
	if err != nil {
		setError(domain.LegEntity, err)
	}

	var geo []domain.GeoMatch
	var sentiment *domain.SentimentScores
	if entity != nil {
		if entity.Location != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rows, err := q.geospatialLeg(ctx, *entity.Location, radius)
				if err != nil {
					setError(domain.LegGeospatial, err)
					return
				}
				geo = rows
			}()
		}
		if len(matches) > 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				scores, err := q.sentimentLeg(ctx, matches[0])
				if err != nil {
					setError(domain.LegSentiment, err)
					return
				}
				sentiment = scores
			}()
		}
	}
	wg.Wait()

	result.Entity = entity
	if semantic != nil {
		result.Semantic = semantic
	}
	if matches != nil {
		result.Entities = matches
	}
	if geo != nil {
		result.Geospatial = geo
	}
	result.Sentiment = sentiment

	logger.Info("Query legs: semantic=%d entity=%d geospatial=%d sentiment=%t",
		len(result.Semantic), len(result.Entities), len(result.Geospatial), result.Sentiment != nil)
	return result, nil
}

func (q *QueryFederator) legCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := q.settings.Query.LegTimeout.Duration; d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// semanticLeg embeds text with the document model and returns the k nearest ids.
func (q *QueryFederator) semanticLeg(ctx context.Context, text string, k int) ([]int64, error) {
	if q.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if q.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}

	ctx, cancel := q.legCtx(ctx)
	defer cancel()

	vec, err := q.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := q.index.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.DocumentID
	}
	return ids, nil
}

// entityLeg extracts the first entity of text, runs the exact-match search and
// resolves coordinates for place-like entities. No entity is not an error.
func (q *QueryFederator) entityLeg(ctx context.Context, text string) (*domain.QueryEntity, []domain.EntityMatch, error) {
	if q.extractor == nil {
		return nil, nil, nil
	}

	ctx, cancel := q.legCtx(ctx)
	defer cancel()

	cleaned := CleanText(text, q.settings.NER.Lowercase)
	tags, err := q.extractor.Extract(ctx, cleaned)
	if err != nil {
		return nil, nil, fmt.Errorf("extract: %w", err)
	}
	ents := MergeEntities(tags, q.settings.NER.MinLength)
	if len(ents) == 0 {
		logger.Debug("No entity in query")
		return nil, nil, nil
	}

	first := ents[0]
	entity := &domain.QueryEntity{Value: first.Value, Type: first.Type}
	logger.Debug("Query entity: %s %q", entity.Type, entity.Value)

	// The exact-match search and the location lookup are independent: a failure
	// of one still lets the other feed its leg.
	var errs []error
	matches, err := q.store.FindEntities(ctx, first.Value, first.Type, entityMatchLimit)
	if err != nil {
		errs = append(errs, fmt.Errorf("find entities: %w", err))
		matches = nil
	}
	if len(matches) > 0 {
		id := matches[0].EntityID
		entity.EntityID = &id
	}

	if first.Type.IsPlaceLike() {
		loc, err := q.resolveLocation(ctx, first.Value)
		if err != nil {
			errs = append(errs, err)
		}
		entity.Location = loc
	}
	return entity, matches, errors.Join(errs...)
}

// resolveLocation looks up stored coordinates, then optionally the geocoder.
func (q *QueryFederator) resolveLocation(ctx context.Context, name string) (*domain.GeoPoint, error) {
	loc, err := q.store.LocationForValue(ctx, name)
	if err == nil {
		return loc, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("location for %q: %w", name, err)
	}
	if !q.settings.Query.GeocodeFallback || q.geocoder == nil {
		return nil, nil
	}

	res, err := q.geocoder.Lookup(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", name, err)
	}
	if !res.Found {
		return nil, nil
	}
	p := res.Point()
	return &p, nil
}

// geospatialLeg returns geocoded entities within radiusKm of center, nearest first.
func (q *QueryFederator) geospatialLeg(ctx context.Context, center domain.GeoPoint, radiusKm float64) ([]domain.GeoMatch, error) {
	ctx, cancel := q.legCtx(ctx)
	defer cancel()

	start := time.Now()
	candidates, err := q.store.LocationsWithin(ctx, domain.BoundingBoxAround(center, radiusKm))
	if err != nil {
		return nil, fmt.Errorf("locations within: %w", err)
	}

	out := make([]domain.GeoMatch, 0, len(candidates))
	for _, c := range candidates {
		d := domain.HaversineKm(center, domain.GeoPoint{Lat: c.Lat, Lon: c.Lon})
		if d > radiusKm {
			continue
		}
		c.DistanceKm = d
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	logger.Debug("Geospatial: %d of %d candidates within %.1f km (%s)", len(out), len(candidates), radiusKm, time.Since(start))
	return out, nil
}

// sentimentLeg fetches the sentiment of the matched entity, falling back to
// the sentiment of the document it appears in.
func (q *QueryFederator) sentimentLeg(ctx context.Context, match domain.EntityMatch) (*domain.SentimentScores, error) {
	ctx, cancel := q.legCtx(ctx)
	defer cancel()

	rec, err := q.store.GetSentiment(ctx, domain.SubjectEntity, match.EntityID)
	if errors.Is(err, domain.ErrNotFound) {
		rec, err = q.store.GetSentiment(ctx, domain.SubjectDocument, match.DocumentID)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sentiment: %w", err)
	}
	scores := rec.SentimentScores
	return &scores, nil
}
