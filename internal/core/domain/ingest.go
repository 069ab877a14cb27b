package domain

// IngestOutcome is the result of indexing one file from a connector.
type IngestOutcome struct {
	// URI identifies the source file.
	URI string

	// Change is the event that triggered the ingest.
	Change ChangeType

	// Result is set on success.
	Result *IndexResult

	// Err is set on failure.
	Err error
}

// OK reports whether the file was indexed or deleted without error.
func (o IngestOutcome) OK() bool {
	return o.Err == nil
}

// IngestSummary totals the outcomes of a full scan.
type IngestSummary struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
	Chunks  int `json:"chunks"`
}

// Add records one outcome.
func (s *IngestSummary) Add(o IngestOutcome) {
	if !o.OK() {
		s.Failed++
		return
	}
	s.Indexed++
	if o.Result != nil {
		s.Chunks += o.Result.ChunkCount
	}
}
