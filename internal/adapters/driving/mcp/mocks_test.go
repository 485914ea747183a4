package mcp

import (
	"context"
	"io"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
	"github.com/inorbit222/Trinity-News-Indexer/internal/core/ports/driving"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	result domain.QueryResult
	err    error
	text   string
	opts   domain.QueryOptions
}

func (m *mockQueryService) Query(_ context.Context, text string, opts domain.QueryOptions) (domain.QueryResult, error) {
	m.text = text
	m.opts = opts
	return m.result, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	details *driving.DocumentDetails
	err     error
}

func (m *mockDocumentService) Import(_ context.Context, _ io.Reader) (driving.ImportReport, error) {
	return driving.ImportReport{}, m.err
}

func (m *mockDocumentService) List(_ context.Context, _ int64, _ int) ([]domain.Document, error) {
	return nil, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ int64) (*domain.Document, error) {
	if m.details == nil {
		return nil, m.err
	}
	return &m.details.Document, m.err
}

func (m *mockDocumentService) Details(_ context.Context, _ int64) (*driving.DocumentDetails, error) {
	return m.details, m.err
}

func (m *mockDocumentService) Count(context.Context) (int, error) {
	return 0, m.err
}

func (m *mockDocumentService) Topics(context.Context) ([]domain.Topic, error) {
	return nil, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	info driving.IndexInfo
	err  error
}

func (m *mockIndexService) Build(_ context.Context) (driving.IndexInfo, error)  { return m.info, m.err }
func (m *mockIndexService) Extend(_ context.Context) (driving.IndexInfo, error) { return m.info, m.err }
func (m *mockIndexService) Load(_ context.Context) error                        { return m.err }
func (m *mockIndexService) LoadOrBuild(_ context.Context) (driving.IndexInfo, error) {
	return m.info, m.err
}
func (m *mockIndexService) Info(_ context.Context) (driving.IndexInfo, error) { return m.info, m.err }
