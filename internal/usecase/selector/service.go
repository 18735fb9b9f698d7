// Package selector picks the next batch of documents that need tagging.
package selector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/doctagger/internal/domain"
	"github.com/kailas-cloud/doctagger/internal/domain/selection"
)

// Service selects untagged or stale documents, half from the newest end of the
// index and half from the oldest.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// New creates a selector service.
func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Select returns up to batchSize documents whose lastTagged is missing or older
// than retagBefore, skipping the IDs in exclude. A batch size below 2 yields an
// empty batch without querying.
func (s *Service) Select(
	ctx context.Context, index string, batchSize int, retagBefore int64, exclude []string,
) (selection.Batch, error) {
	q, err := selection.NewQuery(index, batchSize, retagBefore)
	if err != nil {
		return selection.Batch{}, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	q = q.Excluding(exclude)
	if q.Newest.Size == 0 {
		return selection.Batch{}, nil
	}

	b, err := s.repo.SelectBatch(ctx, q)
	if err != nil {
		return selection.Batch{}, fmt.Errorf("select batch: %w", err)
	}

	s.logger.Debug("Batch selected",
		zap.String("index", index),
		zap.Int("newest", len(b.Newest)),
		zap.Int("oldest", len(b.Oldest)),
		zap.Int("skipped", b.Skipped),
		zap.Int64("retag_before", retagBefore),
	)
	return b, nil
}
