// Package driving declares what the CLI and the MCP server may ask of the
// record pipeline: indexing, search, ingestion and settings. The services
// package provides the implementations.
package driving
