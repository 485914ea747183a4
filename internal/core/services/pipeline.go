package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
	"github.com/inorbit222/Trinity-News-Indexer/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.Pipeline = (*Pipeline)(nil)

// Pipeline runs enrichment stages one after another. Stages never depend on
// each other's output, so a failed stage does not stop the rest.
type Pipeline struct {
	order  []domain.StageName
	stages map[domain.StageName]driving.Stage
}

// NewPipeline registers stages in run order. Nil stages are ignored.
func NewPipeline(stages ...driving.Stage) *Pipeline {
	p := &Pipeline{stages: make(map[domain.StageName]driving.Stage)}
	for _, s := range stages {
		if s == nil {
			continue
		}
		if _, dup := p.stages[s.Name()]; !dup {
			p.order = append(p.order, s.Name())
		}
		p.stages[s.Name()] = s
	}
	return p
}

// Stages lists the registered stage names.
func (p *Pipeline) Stages() []domain.StageName {
	return append([]domain.StageName(nil), p.order...)
}

// Run executes the named stages, or every registered stage when names is empty.
func (p *Pipeline) Run(ctx context.Context, names ...domain.StageName) ([]driving.StageReport, error) {
	if len(names) == 0 {
		names = p.order
	}

	for _, name := range names {
		if _, ok := p.stages[name]; !ok {
			return nil, fmt.Errorf("%w: stage %q is not available", domain.ErrUnsupportedType, name)
		}
	}

	reports := make([]driving.StageReport, 0, len(names))
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		logger.Section("Stage " + string(name))
		report, err := p.stages[name].Run(ctx)
		reports = append(reports, report)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}
