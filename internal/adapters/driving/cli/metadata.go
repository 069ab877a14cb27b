package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medindex/internal/core/domain"
)

// metadataFlags collects record metadata from the command line.
type metadataFlags struct {
	patientID  string
	recordID   string
	title      string
	recordType string
	doctorName string
	extra      []string
}

func (m *metadataFlags) register(cmd *cobra.Command, withRecordID bool) {
	cmd.Flags().StringVar(&m.patientID, "patient-id", "", "patient the record belongs to")
	if withRecordID {
		cmd.Flags().StringVar(&m.recordID, "record-id", "", "stable record id (default: content hash)")
	}
	cmd.Flags().StringVar(&m.title, "title", "", "record title")
	cmd.Flags().StringVar(&m.recordType, "record-type", "", "record type, e.g. lab_result")
	cmd.Flags().StringVar(&m.doctorName, "doctor", "", "attending doctor")
	cmd.Flags().StringArrayVar(&m.extra, "meta", nil, "extra metadata as key=value (repeatable)")
}

// metadata returns the typed metadata. It does not require a patient ID;
// ingest defaults may leave it to sidecars.
func (m *metadataFlags) metadata() (domain.RecordMetadata, error) {
	meta := domain.RecordMetadata{
		PatientID:  strings.TrimSpace(m.patientID),
		RecordID:   strings.TrimSpace(m.recordID),
		Title:      m.title,
		RecordType: m.recordType,
		DoctorName: m.doctorName,
	}
	for _, kv := range m.extra {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return domain.RecordMetadata{}, fmt.Errorf("%w: --meta %q is not key=value", domain.ErrInvalidInput, kv)
		}
		if meta.Extra == nil {
			meta.Extra = make(map[string]any)
		}
		meta.Extra[key] = value
	}
	return meta, nil
}
