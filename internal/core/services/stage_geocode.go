package services

import (
	"context"
	"fmt"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
)

// Ensure GeocodeStage implements the interface.
var _ driving.Stage = (*GeocodeStage)(nil)

// GeocodeStage geocodes place-like entities through a GeocodeCache.
// Entities the geocoder cannot resolve are marked not_found and not retried.
type GeocodeStage struct {
	store    driven.CorpusStore
	cache    *GeocodeCache
	settings *domain.Settings
}

// NewGeocodeStage creates the geocoder stage. The cache belongs to this stage;
// it may be shared only because GeocodeCache locks its own state.
func NewGeocodeStage(store driven.CorpusStore, cache *GeocodeCache, settings *domain.Settings) *GeocodeStage {
	return &GeocodeStage{store: store, cache: cache, settings: settings}
}

// Name identifies the stage.
func (s *GeocodeStage) Name() domain.StageName {
	return domain.StageGeocode
}

// Run geocodes every pending LOC, GPE and FAC entity.
func (s *GeocodeStage) Run(ctx context.Context) (driving.StageReport, error) {
	run := newStageRun(s.store, domain.StageGeocode, domain.StageGeocode, s.settings.Geocode.Timeout.Duration)
	if s.cache == nil {
		return run.finish(fmt.Errorf("%w: no geocoder configured", domain.ErrModelUnavailable))
	}

	cur := NewCursor(func(ctx context.Context, after int64, limit int) ([]domain.Entity, error) {
		return s.store.PendingEntities(ctx, domain.StageGeocode, domain.PlaceLikeTypes(), after, limit)
	}, entityKey, s.settings.Batch.Size)

	for ents, err := range cur.All(ctx) {
		if err != nil {
			return run.finish(fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err))
		}
		if err := run.batch(ctx, func(tx driven.BatchTx) error {
			for _, e := range ents {
				if err := s.processEntity(ctx, run, tx, e); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return run.finish(err)
		}
	}

	stats := s.cache.Stats()
	run.log.Info("cache: hits=%d misses=%d calls=%d entries=%d", stats.Hits, stats.Misses, stats.Calls, stats.Entries)
	return run.finish(nil)
}

func (s *GeocodeStage) processEntity(ctx context.Context, run *stageRun, tx driven.BatchTx, e domain.Entity) error {
	run.report.Processed++

	callCtx, cancel := run.callCtx(ctx)
	res, err := s.cache.Lookup(callCtx, e.Value)
	cancel()
	if err == nil && res.Found && !res.Point().Valid() {
		err = fmt.Errorf("%w: coordinates (%v, %v)", domain.ErrUnexpectedOutput, res.Lat, res.Lon)
	}
	if err != nil {
		return run.itemFailed(ctx, e.ID, err)
	}

	return run.write(ctx, tx, e.ID, func(w driven.Writer) (int, domain.MarkStatus, error) {
		if !res.Found {
			return 0, domain.MarkNotFound, nil
		}
		loc := domain.GeocodedLocation{
			EntityID:  e.ID,
			Latitude:  res.Lat,
			Longitude: res.Lon,
			Source:    res.DisplayName,
		}
		inserted, err := w.UpsertLocation(ctx, loc)
		if inserted {
			return 1, domain.MarkDone, err
		}
		return 0, domain.MarkDone, err
	})
}
