package filesystem

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/medindex/internal/core/domain"
)

// SidecarSuffix is appended to a record file's name to find its metadata.
const SidecarSuffix = ".meta.yaml"

// SidecarPath returns the metadata sidecar path for a record file.
func SidecarPath(path string) string {
	return path + SidecarSuffix
}

// isSidecar reports whether path is itself a sidecar.
func isSidecar(path string) bool {
	return strings.HasSuffix(path, SidecarSuffix)
}

// ownerOf returns the record file a sidecar describes.
func ownerOf(sidecar string) string {
	return strings.TrimSuffix(sidecar, SidecarSuffix)
}

// readSidecar loads the sidecar of path. A missing sidecar yields zero
// metadata and no error.
func readSidecar(path string) (domain.RecordMetadata, error) {
	data, err := os.ReadFile(SidecarPath(path))
	if errors.Is(err, os.ErrNotExist) {
		return domain.RecordMetadata{}, nil
	}
	if err != nil {
		return domain.RecordMetadata{}, err
	}
	return parseSidecar(data)
}

// parseSidecar decodes a flat YAML mapping into record metadata.
func parseSidecar(data []byte) (domain.RecordMetadata, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.RecordMetadata{}, fmt.Errorf("%w: sidecar: %v", domain.ErrInvalidInput, err)
	}

	var meta domain.RecordMetadata
	for key, value := range raw {
		if value == nil {
			continue
		}
		switch key {
		case domain.PayloadPatientID:
			meta.PatientID = scalar(value)
		case domain.PayloadRecordID:
			meta.RecordID = scalar(value)
		case domain.PayloadTitle:
			meta.Title = scalar(value)
		case domain.PayloadRecordType:
			meta.RecordType = scalar(value)
		case domain.PayloadDoctorName:
			meta.DoctorName = scalar(value)
		case domain.PayloadFileURL:
			meta.FileURL = scalar(value)
		default:
			if meta.Extra == nil {
				meta.Extra = make(map[string]any)
			}
			meta.Extra[key] = value
		}
	}
	return meta, nil
}

// scalar renders YAML scalars as strings. Unquoted ids such as 12345 decode
// as int and must still compare equal to the string "12345".
func scalar(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprint(v)
}
