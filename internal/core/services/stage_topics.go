package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
)

// Ensure TopicStage implements the interface.
var _ driving.Stage = (*TopicStage)(nil)

// TopicStage fits one topic model over the whole corpus and refreshes
// every document's topic weights wholesale.
type TopicStage struct {
	store     driven.CorpusStore
	model     driven.TopicModel
	stopwords Stopwords
	settings  *domain.Settings
}

// NewTopicStage creates the topic assigner stage.
// A nil stopword set selects the default English list.
func NewTopicStage(
	store driven.CorpusStore, model driven.TopicModel, stopwords Stopwords, settings *domain.Settings,
) *TopicStage {
	if stopwords == nil {
		stopwords = NewStopwords(nil)
	}
	return &TopicStage{store: store, model: model, stopwords: stopwords, settings: settings}
}

// Name identifies the stage.
func (s *TopicStage) Name() domain.StageName {
	return domain.StageTopics
}

// Run tokenises the corpus, fits the model once and writes the results.
func (s *TopicStage) Run(ctx context.Context) (driving.StageReport, error) {
	run := newStageRun(s.store, domain.StageTopics, domain.StageTopics, s.settings.Models.Timeout.Duration)
	if s.model == nil {
		return run.finish(fmt.Errorf("%w: no topic model configured", domain.ErrModelUnavailable))
	}

	ids, corpus, err := s.loadCorpus(ctx)
	if err != nil {
		return run.finish(err)
	}
	if len(ids) == 0 {
		run.log.Info("no documents")
		return run.finish(nil)
	}
	corpus = s.Preprocess(corpus)

	// Documents left with no tokens are marked empty and kept out of the fit.
	var fitIDs []int64
	var fitDocs [][]string
	var emptyIDs []int64
	for i, toks := range corpus {
		if len(toks) == 0 {
			emptyIDs = append(emptyIDs, ids[i])
			continue
		}
		fitIDs = append(fitIDs, ids[i])
		fitDocs = append(fitDocs, toks)
	}
	run.log.Info("fitting %d topics over %d documents (%d empty)", s.settings.Topics.NumTopics, len(fitDocs), len(emptyIDs))

	var result domain.TopicModelResult
	if len(fitDocs) > 0 {
		// The fit is one call over the corpus; its failure fails the stage.
		callCtx, cancel := run.callCtx(ctx)
		result, err = s.model.Fit(callCtx, fitDocs, s.settings.Topics.NumTopics, s.settings.Topics.Passes)
		cancel()
		if err != nil {
			return run.finish(fmt.Errorf("fit topic model: %w", err))
		}
		if len(result.Documents) != len(fitDocs) {
			return run.finish(fmt.Errorf("%w: %d distributions for %d documents",
				domain.ErrUnexpectedOutput, len(result.Documents), len(fitDocs)))
		}
	}

	if err := s.writeTopics(ctx, run, result); err != nil {
		return run.finish(err)
	}
	if err := s.writeAssignments(ctx, run, fitIDs, result.Documents, emptyIDs); err != nil {
		return run.finish(err)
	}
	return run.finish(nil)
}

// Preprocess applies phrase detection and dictionary filtering to tokenised documents.
func (s *TopicStage) Preprocess(docs [][]string) [][]string {
	t := s.settings.Topics
	if t.Bigrams {
		phrases := TrainPhrases(docs, t.BigramMinCount, t.BigramThresh)
		for i, doc := range docs {
			docs[i] = phrases.Apply(doc)
		}
	}
	return FilterExtremes(docs, t.NoBelow, t.NoAbove)
}

// loadCorpus reads and tokenises every document in id order.
func (s *TopicStage) loadCorpus(ctx context.Context) ([]int64, [][]string, error) {
	cur := NewCursor(s.store.ListDocuments, documentKey, s.settings.Batch.Size)

	var ids []int64
	var corpus [][]string
	for docs, err := range cur.All(ctx) {
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		for _, d := range docs {
			ids = append(ids, d.ID)
			corpus = append(corpus, Tokenize(d.Title+" "+d.Body, s.stopwords))
		}
	}
	return ids, corpus, nil
}

func (s *TopicStage) writeTopics(ctx context.Context, run *stageRun, result domain.TopicModelResult) error {
	if len(result.Topics) == 0 {
		return nil
	}
	topicIDs := make([]int, 0, len(result.Topics))
	for id := range result.Topics {
		topicIDs = append(topicIDs, id)
	}
	sort.Ints(topicIDs)

	return run.batch(ctx, func(tx driven.BatchTx) error {
		return tx.Apply(ctx, func(w driven.Writer) error {
			for _, id := range topicIDs {
				terms := result.Topics[id]
				topic := domain.Topic{
					ID:    id,
					Label: domain.TopicLabel(terms, s.settings.Topics.LabelTerms, s.settings.Topics.LabelLength),
					Terms: terms,
				}
				if err := w.UpsertTopic(ctx, topic); err != nil {
					return fmt.Errorf("%w: upsert topic %d: %w", domain.ErrStoreUnavailable, id, err)
				}
			}
			if _, err := w.PruneTopics(ctx, topicIDs); err != nil {
				return fmt.Errorf("%w: prune topics: %w", domain.ErrStoreUnavailable, err)
			}
			return nil
		})
	})
}

func (s *TopicStage) writeAssignments(
	ctx context.Context, run *stageRun, ids []int64, dists [][]domain.TopicWeight, emptyIDs []int64,
) error {
	size := s.settings.Batch.Size
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		if err := run.batch(ctx, func(tx driven.BatchTx) error {
			for i := start; i < end; i++ {
				run.report.Processed++
				docID := ids[i]
				weights := s.documentTopics(docID, dists[i])
				if err := run.write(ctx, tx, docID, func(w driven.Writer) (int, domain.MarkStatus, error) {
					err := w.ReplaceDocumentTopics(ctx, docID, weights)
					if len(weights) == 0 {
						return 0, domain.MarkEmpty, err
					}
					return len(weights), domain.MarkDone, err
				}); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}

	for start := 0; start < len(emptyIDs); start += size {
		end := min(start+size, len(emptyIDs))
		if err := run.batch(ctx, func(tx driven.BatchTx) error {
			for _, docID := range emptyIDs[start:end] {
				run.report.Processed++
				if err := run.write(ctx, tx, docID, func(w driven.Writer) (int, domain.MarkStatus, error) {
					return 0, domain.MarkEmpty, w.ReplaceDocumentTopics(ctx, docID, nil)
				}); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// documentTopics keeps weights at or above topics.min_weight, clamped to [0, 1].
func (s *TopicStage) documentTopics(docID int64, dist []domain.TopicWeight) []domain.DocumentTopic {
	out := make([]domain.DocumentTopic, 0, len(dist))
	for _, tw := range dist {
		w := min(1, max(0, tw.Weight))
		if w < s.settings.Topics.MinWeight {
			continue
		}
		out = append(out, domain.DocumentTopic{DocumentID: docID, TopicID: tw.TopicID, Weight: w})
	}
	return out
}
