// Package mcp provides an MCP (Model Context Protocol) server adapter for medindex.
// It lets AI assistants search clinical records and submit new ones.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// errNoSource is returned by index_record when neither or both of path and
// url are given.
var errNoSource = errors.New("exactly one of path or url is required")
