package mcp

import (
	"github.com/custodia-labs/medindex/internal/core/ports/driving"
)

// Ports are the services the MCP server exposes. Only Search is required;
// index_record is registered when Index is set, and accepts URLs when
// Ingest is set too.
type Ports struct {
	Search driving.SearchService
	Index  driving.IndexService
	Ingest driving.IngestService
}

// Validate reports ErrMissingSearchService when Search is nil.
func (p *Ports) Validate() error {
	if p == nil || p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
