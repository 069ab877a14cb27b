package mcp

import (
	"context"

	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results   []domain.SearchResult
	info      domain.CollectionInfo
	err       error
	lastQuery domain.SearchQuery
}

func (m *mockSearchService) Search(_ context.Context, query domain.SearchQuery) ([]domain.SearchResult, error) {
	m.lastQuery = query
	return m.results, m.err
}

func (m *mockSearchService) Collection(_ context.Context) (domain.CollectionInfo, error) {
	return m.info, m.err
}

func (m *mockSearchService) EnsureCollection(_ context.Context) (domain.CollectionInfo, error) {
	return m.info, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	result  *domain.IndexResult
	err     error
	lastReq domain.IndexRequest
	deleted []string
}

func (m *mockIndexService) Index(_ context.Context, req domain.IndexRequest) (*domain.IndexResult, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockIndexService) Delete(_ context.Context, documentID string) error {
	m.deleted = append(m.deleted, documentID)
	return m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	result   *domain.IndexResult
	err      error
	lastURL  string
	lastMeta domain.RecordMetadata
}

func (m *mockIngestService) IndexURL(_ context.Context, url string, meta domain.RecordMetadata) (*domain.IndexResult, error) {
	m.lastURL = url
	m.lastMeta = meta
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockIngestService) IngestAll(
	_ context.Context, _ driven.Connector, _ func(domain.IngestOutcome),
) (*domain.IngestSummary, error) {
	return &domain.IngestSummary{}, m.err
}

func (m *mockIngestService) Follow(_ context.Context, _ driven.Connector, _ func(domain.IngestOutcome)) error {
	return m.err
}
