package tagging

import (
	"context"

	"github.com/kailas-cloud/doctagger/internal/domain/batch"
	domtag "github.com/kailas-cloud/doctagger/internal/domain/tagging"
)

// Normalizer cleans raw document content before extraction.
type Normalizer interface {
	Normalize(text string) string
}

// Extractor derives topic terms from normalized text.
type Extractor interface {
	Extract(text string) ([]string, error)
}

// Writer persists update actions and makes them visible to the next selection.
type Writer interface {
	ApplyUpdates(ctx context.Context, updates []domtag.Update) ([]batch.Result, error)
	Refresh(ctx context.Context, index string) error
}

// Progress reports per-document progress of a batch.
type Progress interface {
	Add(n int) error
	Finish() error
}
