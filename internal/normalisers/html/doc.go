// Package html extracts readable text from HTML records such as patient
// portal exports, dropping markup, scripts and styles.
package html
