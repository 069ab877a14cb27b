// Package services holds the record pipeline: the Indexer turns bytes into
// stored chunk points, the QueryService answers similarity queries, the
// Ingestor feeds connector and URL sources into the Indexer, and the
// SettingsService resolves configuration. Services depend only on ports.
package services
