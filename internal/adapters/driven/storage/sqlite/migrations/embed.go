// Package migrations holds the numbered schema files for the SQLite point
// store. Each version has an .up.sql and a .down.sql file.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
