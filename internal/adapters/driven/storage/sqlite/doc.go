// Package sqlite stores points in a single database file through the pure
// Go modernc.org/sqlite driver.
//
// Each row holds a point id, its vector as a little-endian float32 blob
// and its payload as JSON. The document id has its own column and the
// patient id an expression index over the payload. Search filters rows in
// SQL and ranks the survivors by
// cosine similarity in Go, which is exact and fits one clinic's archive.
// Use the qdrant backend beyond that.
//
// The schema is versioned by the files in migrations/. The default
// location is ~/.medindex/data/vectors.db and the database runs in WAL
// mode, so concurrent readers do not block the writer.
package sqlite
