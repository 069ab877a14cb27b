package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// DocumentIDLength is the number of hex characters kept from the content hash.
const DocumentIDLength = 24

// DeriveDocumentID returns recordID when set, otherwise the first
// DocumentIDLength hex characters of the SHA-256 of content. Identical bytes
// always map to the same document, so re-ingesting them overwrites in place.
func DeriveDocumentID(recordID string, content []byte) string {
	if id := strings.TrimSpace(recordID); id != "" {
		return id
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:DocumentIDLength]
}

// PointID returns the logical identity of a chunk point.
func PointID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s-%d", documentID, chunkIndex)
}
