package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CollectionURI names the collection description resource.
const CollectionURI = "medindex://collection"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         CollectionURI,
		Name:        "collection",
		Description: "Name, vector dimension, distance metric and point count of the record collection",
		MIMEType:    "application/json",
	}, s.handleCollectionResource)
}

// handleCollectionResource describes the vector collection.
func (s *Server) handleCollectionResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	info, err := s.ports.Search.Collection(ctx)
	if err != nil {
		return nil, fmt.Errorf("describing collection: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling collection: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
