// Package domain holds the record pipeline's value types and the sentinel
// errors that map to CLI exit codes. A record (IndexRequest plus
// RecordMetadata) becomes chunks, each chunk becomes a Point with a
// payload, and search answers with SearchResults over those payloads.
//
// Nothing here imports outside the standard library.
package domain
