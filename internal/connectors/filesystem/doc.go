// Package filesystem implements a directory inbox connector.
//
// Files matching the include patterns are emitted with metadata read from
// an optional YAML sidecar next to them:
//
//	inbox/
//	  2024-03-labs.pdf
//	  2024-03-labs.pdf.meta.yaml   # patientId: p-123, title: Lipid panel
//
// Sidecar fields override the connector defaults. Keys that are not
// recognised record fields are kept as extra payload metadata.
package filesystem
