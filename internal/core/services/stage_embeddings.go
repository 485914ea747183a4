package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
)

// Ensure EmbeddingStage implements the interface.
var _ driving.Stage = (*EmbeddingStage)(nil)

// EmbeddingStage embeds documents that have no embedding yet.
type EmbeddingStage struct {
	store    driven.CorpusStore
	embedder driven.EmbeddingService
	settings *domain.Settings
}

// NewEmbeddingStage creates the embedder stage.
func NewEmbeddingStage(store driven.CorpusStore, embedder driven.EmbeddingService, settings *domain.Settings) *EmbeddingStage {
	return &EmbeddingStage{store: store, embedder: embedder, settings: settings}
}

// Name identifies the stage.
func (s *EmbeddingStage) Name() domain.StageName {
	return domain.StageEmbeddings
}

// Run embeds each batch with one model call, falling back to one call per
// document when the batch call fails.
func (s *EmbeddingStage) Run(ctx context.Context) (driving.StageReport, error) {
	run := newStageRun(s.store, domain.StageEmbeddings, domain.StageEmbeddings, s.settings.Models.Timeout.Duration)
	if s.embedder == nil {
		return run.finish(fmt.Errorf("%w: no embedding service configured", domain.ErrEmbeddingUnavailable))
	}
	run.log.Info("model %s (%d dimensions)", s.embedder.ModelName(), s.embedder.Dimensions())

	cur := NewCursor(s.store.DocumentsWithoutEmbedding, documentKey, s.settings.Batch.Size)
	for docs, err := range cur.All(ctx) {
		if err != nil {
			return run.finish(fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err))
		}
		vectors, err := s.embed(ctx, run, docs)
		if err != nil {
			return run.finish(err)
		}
		if err := run.batch(ctx, func(tx driven.BatchTx) error {
			for i, doc := range docs {
				if err := s.persist(ctx, run, tx, doc, vectors[i]); err != nil {
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

// embed returns one vector per document; nil marks a failed item.
func (s *EmbeddingStage) embed(ctx context.Context, run *stageRun, docs []domain.Document) ([][]float32, error) {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Body
	}
	run.report.Processed += len(docs)

	callCtx, cancel := run.callCtx(ctx)
	vectors, err := s.embedder.EmbedBatch(callCtx, texts)
	cancel()
	if err == nil && len(vectors) == len(docs) {
		return vectors, nil
	}
	switch {
	case err == nil:
		run.log.Warn("batch embed returned %d vectors for %d documents, embedding one by one", len(vectors), len(docs))
	case errors.Is(err, domain.ErrModelUnavailable) || ctx.Err() != nil:
		return nil, fmt.Errorf("embed batch: %w", err)
	default:
		run.log.Warn("batch embed failed, embedding one by one: %v", err)
	}

	vectors = make([][]float32, len(docs))
	for i, text := range texts {
		callCtx, cancel := run.callCtx(ctx)
		vec, err := s.embedder.Embed(callCtx, text)
		cancel()
		if err != nil {
			if err := run.itemFailed(ctx, docs[i].ID, fmt.Errorf("embed: %w", err)); err != nil {
				return nil, err
			}
			continue
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (s *EmbeddingStage) persist(
	ctx context.Context, run *stageRun, tx driven.BatchTx, doc domain.Document, vec []float32,
) error {
	if vec == nil {
		return nil
	}
	if want := s.settings.Embedding.Dimensions; want > 0 && len(vec) != want {
		run.skip(doc.ID, fmt.Errorf("%w: got %d dimensions, want %d", domain.ErrDimensionMismatch, len(vec), want))
		return nil
	}

	emb := domain.NewEmbeddingVector(doc.ID, vec)
	return run.write(ctx, tx, doc.ID, func(w driven.Writer) (int, domain.MarkStatus, error) {
		return 1, domain.MarkDone, w.UpsertEmbedding(ctx, emb)
	})
}
