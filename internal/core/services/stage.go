package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driven"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
	"github.com/inorbit222/Trinity-News-Indexer/internal/logger"
)

// stageRun tracks one run of an enrichment stage.
type stageRun struct {
	store   driven.CorpusStore
	mark    domain.StageName
	timeout time.Duration
	log     logger.Scoped
	report  driving.StageReport
	started time.Time
}

func newStageRun(store driven.CorpusStore, name, mark domain.StageName, timeout time.Duration) *stageRun {
	runID := uuid.NewString()
	return &stageRun{
		store:   store,
		mark:    mark,
		timeout: timeout,
		log:     logger.With(string(name) + " " + runID[:8]),
		report:  driving.StageReport{Stage: name, RunID: runID},
		started: time.Now(),
	}
}

// finish stamps the duration and records a fatal error.
func (r *stageRun) finish(err error) (driving.StageReport, error) {
	r.report.Duration = time.Since(r.started)
	if err != nil {
		r.report.Error = err.Error()
		r.log.Error("aborted after %d batches: %v", r.report.Batches, err)
		return r.report, fmt.Errorf("stage %s: %w", r.report.Stage, err)
	}
	r.log.Info("done: batches=%d processed=%d written=%d skipped=%d in %s",
		r.report.Batches, r.report.Processed, r.report.Written, r.report.Skipped,
		r.report.Duration.Round(time.Millisecond))
	return r.report, nil
}

// callCtx bounds one external model call.
func (r *stageRun) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// batch opens one transaction, hands it to fn and commits exactly once.
// Nothing of the batch is committed if fn fails.
func (r *stageRun) batch(ctx context.Context, fn func(tx driven.BatchTx) error) error {
	tx, err := r.store.BeginBatch(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin batch: %w", domain.ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit batch: %w", domain.ErrStoreUnavailable, err)
	}
	r.report.Batches++
	return nil
}

// write applies one item's writes plus its stage mark. A failed write is
// rolled back on its own and counted as skipped; the batch continues.
func (r *stageRun) write(
	ctx context.Context, tx driven.BatchTx, subjectID int64, fn func(w driven.Writer) (int, domain.MarkStatus, error),
) error {
	var written int
	err := tx.Apply(ctx, func(w driven.Writer) error {
		n, status, err := fn(w)
		if err != nil {
			return err
		}
		written = n
		return w.Mark(ctx, r.mark, subjectID, r.report.RunID, status)
	})
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) || ctx.Err() != nil {
			return err
		}
		r.skip(subjectID, fmt.Errorf("persist: %w", err))
		return nil
	}
	r.report.Written += written
	return nil
}

// itemFailed classifies a model-call failure. Unreachable services abort the
// run; anything else, timeouts included, skips only the item.
func (r *stageRun) itemFailed(ctx context.Context, subjectID int64, err error) error {
	if errors.Is(err, domain.ErrModelUnavailable) || ctx.Err() != nil {
		return err
	}
	r.skip(subjectID, err)
	return nil
}

func (r *stageRun) skip(subjectID int64, err error) {
	r.report.Skipped++
	r.log.Warn("skip %d: %v", subjectID, err)
}
