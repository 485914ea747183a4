package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
)

// Ensure SentimentStage implements the interface.
var _ driving.Stage = (*SentimentStage)(nil)

// SentimentStage scores documents, or entities in their surrounding context.
// The subject is chosen by sentiment.subject.
type SentimentStage struct {
	store    driven.CorpusStore
	scorer   driven.SentimentScorer
	settings *domain.Settings
}

// NewSentimentStage creates the sentiment scorer stage.
func NewSentimentStage(store driven.CorpusStore, scorer driven.SentimentScorer, settings *domain.Settings) *SentimentStage {
	return &SentimentStage{store: store, scorer: scorer, settings: settings}
}

// Name identifies the stage.
func (s *SentimentStage) Name() domain.StageName {
	return domain.StageSentiment
}

// Run scores every pending subject.
func (s *SentimentStage) Run(ctx context.Context) (driving.StageReport, error) {
	kind := s.settings.Sentiment.Subject
	run := newStageRun(s.store, domain.StageSentiment, domain.SentimentMarkStage(kind), s.settings.Models.Timeout.Duration)
	if s.scorer == nil {
		return run.finish(fmt.Errorf("%w: no sentiment scorer configured", domain.ErrModelUnavailable))
	}

	var err error
	switch kind {
	case domain.SubjectEntity:
		err = s.runEntities(ctx, run)
	default:
		err = s.runDocuments(ctx, run)
	}
	return run.finish(err)
}

func (s *SentimentStage) runDocuments(ctx context.Context, run *stageRun) error {
	cur := NewCursor(func(ctx context.Context, after int64, limit int) ([]domain.Document, error) {
		return s.store.PendingDocuments(ctx, run.mark, after, limit)
	}, documentKey, s.settings.Batch.Size)

	for docs, err := range cur.All(ctx) {
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		items := make([]domain.TextItem, len(docs))
		for i, d := range docs {
			items[i] = domain.TextItem{ID: d.ID, DocumentID: d.ID, Text: d.Body}
		}
		if err := s.scoreBatch(ctx, run, domain.SubjectDocument, items); err != nil {
			return err
		}
	}
	return nil
}

func (s *SentimentStage) runEntities(ctx context.Context, run *stageRun) error {
	cur := NewCursor(func(ctx context.Context, after int64, limit int) ([]domain.Entity, error) {
		return s.store.PendingEntities(ctx, run.mark, nil, after, limit)
	}, entityKey, s.settings.Batch.Size)

	for ents, err := range cur.All(ctx) {
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		items, err := s.entityContexts(ctx, ents)
		if err != nil {
			return err
		}
		if err := s.scoreBatch(ctx, run, domain.SubjectEntity, items); err != nil {
			return err
		}
	}
	return nil
}

// entityContexts pairs each entity with the cleaned text around its span.
func (s *SentimentStage) entityContexts(ctx context.Context, ents []domain.Entity) ([]domain.TextItem, error) {
	cleaned := make(map[int64]string)
	items := make([]domain.TextItem, 0, len(ents))
	for _, e := range ents {
		text, ok := cleaned[e.DocumentID]
		if !ok {
			doc, err := s.store.GetDocument(ctx, e.DocumentID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				text = ""
			case err != nil:
				return nil, fmt.Errorf("%w: load document %d: %w", domain.ErrStoreUnavailable, e.DocumentID, err)
			default:
				text = CleanText(doc.Body, s.settings.NER.Lowercase)
			}
			cleaned[e.DocumentID] = text
		}

		window := contextWindow(text, e.Start, e.End, s.settings.Sentiment.ContextWindow)
		if window == "" {
			window = e.Value
		}
		items = append(items, domain.TextItem{ID: e.ID, DocumentID: e.DocumentID, Text: window})
	}
	return items, nil
}

func (s *SentimentStage) scoreBatch(
	ctx context.Context, run *stageRun, kind domain.SubjectKind, items []domain.TextItem,
) error {
	return run.batch(ctx, func(tx driven.BatchTx) error {
		for _, item := range items {
			run.report.Processed++

			callCtx, cancel := run.callCtx(ctx)
			scores, err := s.scorer.Score(callCtx, truncateRunes(item.Text, s.settings.Sentiment.MaxChars))
			cancel()
			if err == nil {
				err = scores.Validate()
			}
			if err != nil {
				if err := run.itemFailed(ctx, item.ID, fmt.Errorf("score: %w", err)); err != nil {
					return err
				}
				continue
			}

			rec := domain.SentimentRecord{SubjectKind: kind, SubjectID: item.ID, SentimentScores: scores}
			if err := run.write(ctx, tx, item.ID, func(w driven.Writer) (int, domain.MarkStatus, error) {
				inserted, err := w.InsertSentiment(ctx, rec)
				if inserted {
					return 1, domain.MarkDone, err
				}
				return 0, domain.MarkDone, err
			}); err != nil {
				return err
			}
		}
		return nil
	})
}
