package driving

import (
	"context"
	"time"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
)

// Stage is one enrichment stage.
type Stage interface {
	// Name identifies the stage.
	Name() domain.StageName

	// Run processes every pending subject, one commit per batch.
	Run(ctx context.Context) (StageReport, error)
}

// Pipeline runs enrichment stages independently of each other.
type Pipeline interface {
	// Run executes the named stages, or all registered stages when none are given.
	// A failing stage does not stop the others; failures are joined.
	Run(ctx context.Context, names ...domain.StageName) ([]StageReport, error)

	// Stages lists the registered stage names.
	Stages() []domain.StageName
}

// StageReport summarises one stage run.
type StageReport struct {
	// Stage identifies the stage.
	Stage domain.StageName `json:"stage"`

	// RunID is the unique id of this run, recorded in stage marks.
	RunID string `json:"run_id"`

	// Batches is the number of committed batches.
	Batches int `json:"batches"`

	// Processed is the number of subjects handed to the model.
	Processed int `json:"processed"`

	// Written is the number of rows newly written.
	Written int `json:"written"`

	// Skipped is the number of subjects that failed and were left unmarked.
	Skipped int `json:"skipped"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration"`

	// Error holds the fatal error that aborted the run, if any.
	Error string `json:"error,omitempty"`
}
