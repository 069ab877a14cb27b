// Package connectors provides implementations of the Connector interface
// for record sources. A connector only finds files and their metadata;
// indexing is left to the ingest service.
package connectors
