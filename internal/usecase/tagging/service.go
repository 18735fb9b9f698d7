// Package tagging turns selected documents into tag updates and writes them back.
package tagging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/doctagger/internal/domain"
	"github.com/kailas-cloud/doctagger/internal/domain/batch"
	"github.com/kailas-cloud/doctagger/internal/domain/document"
	"github.com/kailas-cloud/doctagger/internal/domain/selection"
	domtag "github.com/kailas-cloud/doctagger/internal/domain/tagging"
	"github.com/kailas-cloud/doctagger/internal/metrics"
)

// Outcome is the result of processing one batch.
// Updates and Results hold one entry per processed hit, in hit order.
type Outcome struct {
	Updates []domtag.Update
	Results []batch.Result
}

// Failed returns the IDs of documents that produced no update.
func (o Outcome) Failed() []string {
	_, failed := batch.Summarize(o.Results)
	return failed
}

// WriteSummary reports a bulk write.
type WriteSummary struct {
	Written int
	Failed  []string
}

// Service runs normalization and extraction per document and writes the tags.
type Service struct {
	norm     Normalizer
	extract  Extractor
	writer   Writer
	logger   *zap.Logger
	now      func() time.Time
	progress func(total int) Progress
}

// New creates a tag writer service.
func New(norm Normalizer, extract Extractor, writer Writer, logger *zap.Logger) *Service {
	return &Service{
		norm:    norm,
		extract: extract,
		writer:  writer,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the time source for lastTagged.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// WithProgress enables per-batch progress reporting.
func (s *Service) WithProgress(newProgress func(total int) Progress) *Service {
	s.progress = newProgress
	return s
}

// Process tags every hit of the batch, newest half first. A document that fails
// is reported in Results and yields no update. On cancellation the updates built
// so far are returned together with the context error.
func (s *Service) Process(ctx context.Context, index string, b selection.Batch) (Outcome, error) {
	hits := b.Hits()
	out := Outcome{
		Updates: make([]domtag.Update, 0, len(hits)),
		Results: make([]batch.Result, 0, len(hits)),
	}

	var bar Progress
	if s.progress != nil {
		bar = s.progress(len(hits))
		defer func() { _ = bar.Finish() }()
	}

	for _, hit := range hits {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("process batch: %w", err)
		}

		tags, err := s.Tags(hit)
		if err != nil {
			metrics.DocumentsTotal.WithLabelValues(metrics.DocumentFailed).Inc()
			s.logger.Warn("Document processing failed",
				zap.String("index", index),
				zap.String("id", hit.ID),
				zap.Error(err),
			)
			out.Results = append(out.Results, batch.NewError(hit.ID, err))
		} else {
			out.Updates = append(out.Updates, domtag.Update{
				ID:         hit.ID,
				Index:      index,
				Tags:       tags,
				LastTagged: s.now().Unix(),
			})
			out.Results = append(out.Results, batch.NewOK(hit.ID))
		}

		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return out, nil
}

// Tags computes the tag list of one hit. Blank content yields [""]; content
// with nothing left after normalization yields an empty list.
func (s *Service) Tags(hit document.Hit) ([]string, error) {
	if hit.IsBlank() {
		metrics.DocumentsTotal.WithLabelValues(metrics.DocumentBlank).Inc()
		return domtag.NoTerms(), nil
	}

	start := time.Now()
	defer func() { metrics.ExtractDuration.Observe(time.Since(start).Seconds()) }()

	text := s.norm.Normalize(hit.Content)
	if strings.TrimSpace(text) == "" {
		metrics.DocumentsTotal.WithLabelValues(metrics.DocumentTagged).Inc()
		return []string{}, nil
	}

	tags, err := s.extract.Extract(text)
	if errors.Is(err, domain.ErrEmptyVocabulary) {
		s.logger.Debug("No countable terms", zap.String("id", hit.ID))
		metrics.DocumentsTotal.WithLabelValues(metrics.DocumentTagged).Inc()
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("extract topics: %w", err)
	}
	metrics.DocumentsTotal.WithLabelValues(metrics.DocumentTagged).Inc()
	return tags, nil
}

// Write submits all updates as one bulk operation and refreshes the index.
// Rejected items are logged and counted, never retried. A batch in which every
// update was rejected returns ErrNoProgress.
func (s *Service) Write(ctx context.Context, index string, updates []domtag.Update) (WriteSummary, error) {
	if len(updates) == 0 {
		return WriteSummary{}, nil
	}

	start := time.Now()
	results, err := s.writer.ApplyUpdates(ctx, updates)
	if err != nil {
		return WriteSummary{}, fmt.Errorf("write tags: %w", err)
	}

	summary, failed := batch.Summarize(results)
	for _, r := range results {
		if r.Err() != nil {
			s.logger.Warn("Update rejected",
				zap.String("index", index),
				zap.String("id", r.ID()),
				zap.Error(r.Err()),
			)
		}
	}
	metrics.BulkItemFailuresTotal.Add(float64(summary.Failed))

	if err := s.writer.Refresh(ctx, index); err != nil {
		return WriteSummary{}, fmt.Errorf("write tags: %w", err)
	}
	metrics.BulkDuration.Observe(time.Since(start).Seconds())

	out := WriteSummary{Written: summary.OK, Failed: failed}
	if summary.OK == 0 {
		return out, fmt.Errorf("all %d updates rejected: %w", summary.Failed, domain.ErrNoProgress)
	}
	return out, nil
}
