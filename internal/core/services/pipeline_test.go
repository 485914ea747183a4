package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
)

type stubStage struct {
	name domain.StageName
	err  error
	runs int
}

func (s *stubStage) Name() domain.StageName { return s.name }

func (s *stubStage) Run(_ context.Context) (driving.StageReport, error) {
	s.runs++
	return driving.StageReport{Stage: s.name, Processed: 1}, s.err
}

func TestPipeline_RunsEveryStageInOrder(t *testing.T) {
	a := &stubStage{name: domain.StageEntities}
	b := &stubStage{name: domain.StageEmbeddings}
	p := NewPipeline(a, nil, b)

	assert.Equal(t, []domain.StageName{domain.StageEntities, domain.StageEmbeddings}, p.Stages())

	reports, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, domain.StageEntities, reports[0].Stage)
	assert.Equal(t, domain.StageEmbeddings, reports[1].Stage)
}

func TestPipeline_FailedStageDoesNotStopOthers(t *testing.T) {
	boom := errors.New("boom")
	a := &stubStage{name: domain.StageEntities, err: boom}
	b := &stubStage{name: domain.StageTopics}

	reports, err := NewPipeline(a, b).Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Len(t, reports, 2)
	assert.Equal(t, 1, b.runs)
}

func TestPipeline_NamedStages(t *testing.T) {
	a := &stubStage{name: domain.StageEntities}
	b := &stubStage{name: domain.StageTopics}
	p := NewPipeline(a, b)

	_, err := p.Run(context.Background(), domain.StageTopics)
	require.NoError(t, err)
	assert.Equal(t, 0, a.runs)
	assert.Equal(t, 1, b.runs)

	_, err = p.Run(context.Background(), domain.StageTopics, domain.StageGeocode)
	require.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.Equal(t, 1, b.runs, "nothing runs when a name is unknown")
}

func TestPipeline_CancelledContext(t *testing.T) {
	a := &stubStage{name: domain.StageEntities}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := NewPipeline(a).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, reports)
	assert.Equal(t, 0, a.runs)
}

func TestPipeline_RealStages(t *testing.T) {
	store := newSeededStore(t)
	settings := testSettings()
	p := NewPipeline(
		NewEntityStage(store, newTestExtractor(), settings),
		NewSentimentStage(store, nil, settings),
		NewEmbeddingStage(store, &mockEmbeddingService{}, settings),
	)

	reports, err := p.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrModelUnavailable)
	require.Len(t, reports, 3)
	assert.Equal(t, 3, reports[0].Written)
	assert.NotEmpty(t, reports[1].Error)
	assert.Equal(t, 3, reports[2].Written)
}
