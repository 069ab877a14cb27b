package mcp

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/medindex/internal/core/domain"
)

// SearchInput is the input schema for the search_records tool.
type SearchInput struct {
	Query     string `json:"query" jsonschema:"natural language description of the information sought"`
	PatientID string `json:"patient_id,omitempty" jsonschema:"restrict results to this patient"`
	TopK      int    `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default 5, max 100)"`
}

// SearchOutput is the output schema for the search_records tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single ranked chunk.
type SearchResultOutput struct {
	PointID    string         `json:"point_id"`
	DocumentID string         `json:"document_id"`
	ChunkIndex int            `json:"chunk_index"`
	Score      float64        `json:"score"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// IndexInput is the input schema for the index_record tool.
type IndexInput struct {
	Path       string         `json:"path,omitempty" jsonschema:"local file to index"`
	URL        string         `json:"url,omitempty" jsonschema:"http(s) URL to download and index"`
	PatientID  string         `json:"patient_id" jsonschema:"patient the record belongs to"`
	RecordID   string         `json:"record_id,omitempty" jsonschema:"stable record id; defaults to a content hash"`
	Title      string         `json:"title,omitempty"`
	RecordType string         `json:"record_type,omitempty" jsonschema:"e.g. lab_result or discharge_summary"`
	DoctorName string         `json:"doctor_name,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty" jsonschema:"additional metadata copied onto every chunk"`
}

// IndexOutput is the output schema for the index_record tool.
type IndexOutput struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_records",
		Description: "Semantic search over indexed clinical records, optionally for one patient",
	}, s.handleSearch)

	if s.ports.Index != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_record",
			Description: "Index a clinical record from a local path or URL with its metadata",
		}, s.handleIndex)
	}
}

// handleSearch handles the search_records tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.ports.Search.Search(ctx, domain.SearchQuery{
		Text:      input.Query,
		TopK:      input.TopK,
		PatientID: input.PatientID,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		metadata := make(map[string]any, len(results[i].Payload))
		for k, v := range results[i].Payload {
			switch k {
			case domain.PayloadText, domain.PayloadDocumentID, domain.PayloadChunkIndex, domain.PayloadPointID:
			default:
				metadata[k] = v
			}
		}
		output.Results[i] = SearchResultOutput{
			PointID:    results[i].PointID,
			DocumentID: results[i].DocumentID(),
			ChunkIndex: results[i].ChunkIndex(),
			Score:      results[i].Score,
			Text:       results[i].Text(),
			Metadata:   metadata,
		}
	}

	return nil, output, nil
}

// handleIndex handles the index_record tool invocation.
func (s *Server) handleIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexInput,
) (*mcp.CallToolResult, IndexOutput, error) {
	if (input.Path == "") == (input.URL == "") {
		return nil, IndexOutput{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, errNoSource)
	}

	meta := domain.RecordMetadata{
		PatientID:  input.PatientID,
		RecordID:   input.RecordID,
		Title:      input.Title,
		RecordType: input.RecordType,
		DoctorName: input.DoctorName,
		Extra:      input.Metadata,
	}

	var (
		result *domain.IndexResult
		err    error
	)
	if input.URL != "" {
		if s.ports.Ingest == nil {
			return nil, IndexOutput{}, fmt.Errorf("%w: url ingestion is not available", domain.ErrInvalidInput)
		}
		result, err = s.ports.Ingest.IndexURL(ctx, input.URL, meta)
	} else {
		result, err = s.indexPath(ctx, input.Path, meta)
	}
	if err != nil {
		return nil, IndexOutput{}, err
	}

	return nil, IndexOutput{DocumentID: result.DocumentID, ChunkCount: result.ChunkCount}, nil
}

func (s *Server) indexPath(ctx context.Context, path string, meta domain.RecordMetadata) (*domain.IndexResult, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return s.ports.Index.Index(ctx, domain.IndexRequest{
		Content:     data,
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Metadata:    meta,
	})
}
