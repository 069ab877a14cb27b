package domain

import "fmt"

// DefaultTopK is the number of results returned when a query does not say.
const DefaultTopK = 5

// MaxTopK caps the number of results a single query may request.
const MaxTopK = 100

// SearchQuery is the input of the query orchestrator.
type SearchQuery struct {
	// Text is the natural language query.
	Text string

	// TopK is the maximum number of results. Zero means DefaultTopK.
	TopK int

	// PatientID restricts results to a single patient when set.
	PatientID string
}

// Filter is an equality condition on a payload field, applied inside the
// index before ranking.
type Filter struct {
	Field string
	Value string
}

// Matches reports whether payload satisfies the filter. A nil filter matches
// everything.
func (f *Filter) Matches(payload map[string]any) bool {
	if f == nil {
		return true
	}
	v, ok := payload[f.Field]
	if !ok {
		return false
	}
	return fmt.Sprint(v) == f.Value
}

// PatientFilter returns the equality filter on the patientId payload field,
// or nil when patientID is empty.
func PatientFilter(patientID string) *Filter {
	if patientID == "" {
		return nil
	}
	return &Filter{Field: PayloadPatientID, Value: patientID}
}

// SearchResult is a single ranked hit. Ephemeral, never persisted.
type SearchResult struct {
	// PointID is the logical point identity "{documentId}-{chunkIndex}".
	PointID string `json:"pointId"`

	// Score is the cosine similarity; higher is more similar.
	Score float64 `json:"score"`

	// Payload is the document metadata plus chunk text.
	Payload map[string]any `json:"payload"`
}

// DocumentID returns the documentId payload field.
func (r SearchResult) DocumentID() string {
	s, _ := r.Payload[PayloadDocumentID].(string)
	return s
}

// Text returns the chunk text.
func (r SearchResult) Text() string {
	s, _ := r.Payload[PayloadText].(string)
	return s
}

// Title returns the record title, if any.
func (r SearchResult) Title() string {
	s, _ := r.Payload[PayloadTitle].(string)
	return s
}

// ChunkIndex returns the chunkIndex payload field. Stores that round-trip
// payloads through JSON hand numbers back as float64.
func (r SearchResult) ChunkIndex() int {
	switch v := r.Payload[PayloadChunkIndex].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return -1
	}
}

// Distance is the similarity metric of a collection.
type Distance string

// DistanceCosine is the only metric medindex creates collections with.
const DistanceCosine Distance = "Cosine"

// CollectionInfo describes the named vector index.
type CollectionInfo struct {
	Name       string   `json:"name"`
	Dimension  int      `json:"dimension"`
	Distance   Distance `json:"distance"`
	PointCount int      `json:"pointCount"`
}
