package services

import (
	"context"
	"fmt"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
)

// Ensure EntityStage implements the interface.
var _ driving.Stage = (*EntityStage)(nil)

// EntityStage extracts named entities from documents not yet processed.
type EntityStage struct {
	store     driven.CorpusStore
	extractor driven.EntityExtractor
	settings  *domain.Settings
}

// NewEntityStage creates the entity extractor stage.
func NewEntityStage(store driven.CorpusStore, extractor driven.EntityExtractor, settings *domain.Settings) *EntityStage {
	return &EntityStage{store: store, extractor: extractor, settings: settings}
}

// Name identifies the stage.
func (s *EntityStage) Name() domain.StageName {
	return domain.StageEntities
}

// Run extracts, merges and stores entities batch by batch.
func (s *EntityStage) Run(ctx context.Context) (driving.StageReport, error) {
	run := newStageRun(s.store, domain.StageEntities, domain.StageEntities, s.settings.Models.Timeout.Duration)
	if s.extractor == nil {
		return run.finish(fmt.Errorf("%w: no entity extractor configured", domain.ErrModelUnavailable))
	}

	cur := NewCursor(func(ctx context.Context, after int64, limit int) ([]domain.Document, error) {
		return s.store.PendingDocuments(ctx, domain.StageEntities, after, limit)
	}, documentKey, s.settings.Batch.Size)

	for docs, err := range cur.All(ctx) {
		if err != nil {
			return run.finish(fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err))
		}
		run.log.Debug("batch %d: %d documents, ids %d..%d", cur.Pages(), len(docs), docs[0].ID, cur.LastID())
		if err := run.batch(ctx, func(tx driven.BatchTx) error {
			for _, doc := range docs {
				if err := s.processDocument(ctx, run, tx, doc); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return run.finish(err)
		}
	}
	return run.finish(nil)
}

func (s *EntityStage) processDocument(ctx context.Context, run *stageRun, tx driven.BatchTx, doc domain.Document) error {
	run.report.Processed++
	cleaned := CleanText(doc.Body, s.settings.NER.Lowercase)

	callCtx, cancel := run.callCtx(ctx)
	tags, err := s.extractor.Extract(callCtx, cleaned)
	cancel()
	if err != nil {
		return run.itemFailed(ctx, doc.ID, fmt.Errorf("extract: %w", err))
	}

	entities := MergeEntities(tags, s.settings.NER.MinLength)
	for i := range entities {
		entities[i].DocumentID = doc.ID
	}

	return run.write(ctx, tx, doc.ID, func(w driven.Writer) (int, domain.MarkStatus, error) {
		if len(entities) == 0 {
			return 0, domain.MarkEmpty, nil
		}
		n, err := w.InsertEntities(ctx, entities)
		return n, domain.MarkDone, err
	})
}
