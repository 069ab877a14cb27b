package domain

import (
	"fmt"
	"strings"
)

// Payload keys written on every point. Metadata keys use the same camelCase
// names the upstream records service sends.
const (
	PayloadPatientID   = "patientId"
	PayloadRecordID    = "recordId"
	PayloadTitle       = "title"
	PayloadRecordType  = "recordType"
	PayloadDoctorName  = "doctorName"
	PayloadFileURL     = "fileUrl"
	PayloadDocumentID  = "documentId"
	PayloadChunkIndex  = "chunkIndex"
	PayloadText        = "text"
	PayloadPointID     = "pointId"
	PayloadFilename    = "filename"
	PayloadContentType = "contentType"
	PayloadIndexedAt   = "indexedAt"
)

// RecordMetadata is the typed metadata attached to a clinical record.
// Recognised keys are fields; anything else goes to Extra.
type RecordMetadata struct {
	// PatientID scopes the record to a patient. Required.
	PatientID string `json:"patientId" yaml:"patientId"`

	// RecordID becomes the document ID when set.
	RecordID string `json:"recordId,omitempty" yaml:"recordId,omitempty"`

	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	RecordType string `json:"recordType,omitempty" yaml:"recordType,omitempty"`
	DoctorName string `json:"doctorName,omitempty" yaml:"doctorName,omitempty"`

	// FileURL records where the bytes were fetched from, if anywhere.
	FileURL string `json:"fileUrl,omitempty" yaml:"fileUrl,omitempty"`

	// Extra holds caller-defined keys. Keys that collide with a recognised
	// or reserved payload key are rejected by Validate.
	Extra map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

var reservedKeys = map[string]bool{
	PayloadPatientID:   true,
	PayloadRecordID:    true,
	PayloadTitle:       true,
	PayloadRecordType:  true,
	PayloadDoctorName:  true,
	PayloadFileURL:     true,
	PayloadDocumentID:  true,
	PayloadChunkIndex:  true,
	PayloadText:        true,
	PayloadPointID:     true,
	PayloadFilename:    true,
	PayloadContentType: true,
	PayloadIndexedAt:   true,
}

// Validate checks the metadata at the ingest boundary.
func (m RecordMetadata) Validate() error {
	if strings.TrimSpace(m.PatientID) == "" {
		return fmt.Errorf("%w: patientId is required", ErrInvalidInput)
	}
	for k := range m.Extra {
		if k == "" {
			return fmt.Errorf("%w: empty metadata key", ErrInvalidInput)
		}
		if reservedKeys[k] {
			return fmt.Errorf("%w: metadata key %q is reserved", ErrInvalidInput, k)
		}
	}
	return nil
}

// Normalized returns m with the identifiers trimmed. Stored payloads and
// patient filters compare ids exactly, so both sides must be trimmed.
func (m RecordMetadata) Normalized() RecordMetadata {
	m.PatientID = strings.TrimSpace(m.PatientID)
	m.RecordID = strings.TrimSpace(m.RecordID)
	return m
}

// Payload flattens the metadata into a point payload map.
// Empty optional fields are omitted.
func (m RecordMetadata) Payload() map[string]any {
	p := make(map[string]any, len(m.Extra)+6)
	for k, v := range m.Extra {
		p[k] = v
	}
	p[PayloadPatientID] = m.PatientID
	setIfNotEmpty(p, PayloadRecordID, m.RecordID)
	setIfNotEmpty(p, PayloadTitle, m.Title)
	setIfNotEmpty(p, PayloadRecordType, m.RecordType)
	setIfNotEmpty(p, PayloadDoctorName, m.DoctorName)
	setIfNotEmpty(p, PayloadFileURL, m.FileURL)
	return p
}

// Merge returns m with every non-empty field of override applied on top.
// Extra maps are merged key by key.
func (m RecordMetadata) Merge(override RecordMetadata) RecordMetadata {
	out := m
	if override.PatientID != "" {
		out.PatientID = override.PatientID
	}
	if override.RecordID != "" {
		out.RecordID = override.RecordID
	}
	if override.Title != "" {
		out.Title = override.Title
	}
	if override.RecordType != "" {
		out.RecordType = override.RecordType
	}
	if override.DoctorName != "" {
		out.DoctorName = override.DoctorName
	}
	if override.FileURL != "" {
		out.FileURL = override.FileURL
	}
	if len(m.Extra) > 0 || len(override.Extra) > 0 {
		out.Extra = make(map[string]any, len(m.Extra)+len(override.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
		for k, v := range override.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

func setIfNotEmpty(p map[string]any, key, value string) {
	if value != "" {
		p[key] = value
	}
}

// Document is a logical record submitted for indexing.
type Document struct {
	// ID is the stable document identifier, caller supplied or content derived.
	ID string

	// Content is the raw byte payload.
	Content []byte

	// Filename and ContentType are format hints for extraction.
	Filename    string
	ContentType string

	// Metadata is the record metadata copied onto every point.
	Metadata RecordMetadata
}

// Chunk is a contiguous word-window of a document's extracted text.
type Chunk struct {
	// Index is the 0-based position within the document.
	Index int

	// Text is the joined window text.
	Text string
}

// Point is one stored (vector, payload) record.
type Point struct {
	// ID is the logical identity "{documentId}-{chunkIndex}".
	ID string

	// Vector is the embedding. Its length must equal the collection dimension.
	Vector []float32

	// Payload is the document metadata merged with documentId, chunkIndex and text.
	Payload map[string]any
}

// IndexRequest is the input of a single ingest.
type IndexRequest struct {
	Content     []byte
	Filename    string
	ContentType string
	Metadata    RecordMetadata
}

// IndexResult is the outcome of a successful ingest.
type IndexResult struct {
	DocumentID string `json:"documentId"`
	ChunkCount int    `json:"chunkCount"`
}
