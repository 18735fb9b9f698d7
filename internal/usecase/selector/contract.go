package selector

import (
	"context"

	"github.com/kailas-cloud/doctagger/internal/domain/selection"
)

// Repository runs a two-half batch query against the index.
type Repository interface {
	SelectBatch(ctx context.Context, q selection.Query) (selection.Batch, error)
}
