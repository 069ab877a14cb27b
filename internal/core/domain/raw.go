package domain

// RawDocument is a file a connector found, with the metadata resolved from
// its sidecar and the ingest defaults. It has not been extracted yet.
type RawDocument struct {
	URI      string
	MIMEType string
	Content  []byte
	Metadata RecordMetadata
}

// ChangeType says what happened to a watched file.
type ChangeType int

const (
	ChangeCreated ChangeType = iota
	ChangeUpdated
	// ChangeDeleted also covers renames away from the watched path.
	ChangeDeleted
)

var changeNames = [...]string{
	ChangeCreated: "created",
	ChangeUpdated: "updated",
	ChangeDeleted: "deleted",
}

func (c ChangeType) String() string {
	if c < 0 || int(c) >= len(changeNames) {
		return unknownDescription
	}
	return changeNames[c]
}

// RawDocumentChange is one watch event. Document.Content is nil for
// deletions; only the URI is meaningful then.
type RawDocumentChange struct {
	Type     ChangeType
	Document RawDocument
}
