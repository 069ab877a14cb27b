// Package file provides the TOML-backed configuration store.
//
// Keys are addressed in dot notation ("embedding.model") and written back
// as nested tables, so a hand-edited config.toml round-trips unchanged.
package file
