package run

import (
	"context"

	"github.com/kailas-cloud/doctagger/internal/domain/selection"
	domtag "github.com/kailas-cloud/doctagger/internal/domain/tagging"
	"github.com/kailas-cloud/doctagger/internal/usecase/tagging"
)

// Selector picks the next batch of documents needing tags, skipping excluded IDs.
type Selector interface {
	Select(
		ctx context.Context, index string, batchSize int, retagBefore int64, exclude []string,
	) (selection.Batch, error)
}

// Tagger turns a batch into updates and writes them back.
type Tagger interface {
	Process(ctx context.Context, index string, b selection.Batch) (tagging.Outcome, error)
	Write(ctx context.Context, index string, updates []domtag.Update) (tagging.WriteSummary, error)
}

// Counter verifies the index is reachable and reports its size.
type Counter interface {
	Count(ctx context.Context, index string) (int, error)
}
