package driving

import (
	"context"

	"github.com/custodia-labs/medindex/internal/core/domain"
	"github.com/custodia-labs/medindex/internal/core/ports/driven"
)

// IngestService feeds records from byte sources other than a direct upload.
type IngestService interface {
	// IndexURL downloads the file at url and indexes it. The url is recorded
	// as the fileUrl metadata field.
	IndexURL(ctx context.Context, url string, meta domain.RecordMetadata) (*domain.IndexResult, error)

	// IngestAll indexes every document a connector's full scan yields.
	// A failing file is reported in its outcome and does not stop the rest.
	IngestAll(ctx context.Context, conn driven.Connector, progress func(domain.IngestOutcome)) (*domain.IngestSummary, error)

	// Follow indexes connector changes until ctx is cancelled.
	Follow(ctx context.Context, conn driven.Connector, progress func(domain.IngestOutcome)) error
}
