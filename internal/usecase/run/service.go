// Package run drives tagging batches until the index is exhausted, working
// hours begin, or the run is interrupted.
package run

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/doctagger/internal/domain"
	domrun "github.com/kailas-cloud/doctagger/internal/domain/run"
	"github.com/kailas-cloud/doctagger/internal/domain/schedule"
	"github.com/kailas-cloud/doctagger/internal/logger"
	"github.com/kailas-cloud/doctagger/internal/metrics"
)

// Options configures one run.
type Options struct {
	Index       string
	BatchSize   int
	RetagBefore int64
	Window      schedule.Window
}

// Result is the terminal state of a run.
type Result struct {
	RunID  string
	Status domrun.Status
	Stats  domrun.Stats
	Err    error
}

// Service is the run loop.
type Service struct {
	counter  Counter
	selector Selector
	tagger   Tagger
	logger   *zap.Logger
	clock    func() time.Time
	progress *Progress
}

// New creates a run loop service.
func New(counter Counter, selector Selector, tagger Tagger, logger *zap.Logger) *Service {
	return &Service{
		counter:  counter,
		selector: selector,
		tagger:   tagger,
		logger:   logger,
		clock:    time.Now,
		progress: NewProgress(),
	}
}

// WithClock overrides the local time source used by the working-hours guard.
func (s *Service) WithClock(clock func() time.Time) *Service {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Progress returns the live counters of the current run.
func (s *Service) Progress() *Progress { return s.progress }

// Run processes batches until a terminal state is reached.
func (s *Service) Run(ctx context.Context, opts Options) Result {
	runID := uuid.NewString()
	log := s.logger.With(zap.String("run_id", runID), zap.String("index", opts.Index))
	ctx = logger.ContextWithLogger(ctx, log)
	s.progress.start(runID, s.clock())
	defer s.progress.set(StateDone)

	res := Result{RunID: runID}
	finish := func(status domrun.Status, err error) Result {
		res.Status, res.Err = status, err
		fields := []zap.Field{
			zap.Stringer("status", status),
			zap.Int("batches", res.Stats.Batches),
			zap.Int("tagged", res.Stats.Tagged),
			zap.Int("failed", res.Stats.Failed),
			zap.Int("skipped", res.Stats.Skipped),
		}
		if err != nil {
			log.Error("Run finished", append(fields, zap.Error(err))...)
		} else {
			log.Info("Run finished", fields...)
		}
		return res
	}

	if s.outsideWindow(log, opts.Window) {
		return finish(domrun.OutsideWindow, nil)
	}

	s.progress.set(StateConnect)
	total, err := s.counter.Count(ctx, opts.Index)
	if err != nil {
		return finish(classify(ctx, err), fmt.Errorf("connect: %w", err))
	}
	log.Info("Run started",
		zap.Int("documents", total),
		zap.Int("batch_size", opts.BatchSize),
		zap.Int64("retag_before", opts.RetagBefore),
		zap.Stringer("working_hours", opts.Window),
	)

	quarantine := make(map[string]struct{})
	for {
		if ctx.Err() != nil {
			return finish(domrun.Interrupted, nil)
		}
		if s.outsideWindow(log, opts.Window) {
			return finish(domrun.OutsideWindow, nil)
		}

		s.progress.set(StateSelect)
		b, err := s.selector.Select(ctx, opts.Index, opts.BatchSize, opts.RetagBefore, quarantinedIDs(quarantine))
		if err != nil {
			return finish(classify(ctx, err), err)
		}
		res.Stats.Skipped += b.Skipped
		s.progress.skipped.Add(int64(b.Skipped))
		metrics.DocumentsTotal.WithLabelValues(metrics.DocumentSkipped).Add(float64(b.Skipped))
		if b.IsEmpty() {
			if len(quarantine) > 0 {
				log.Warn("Only previously failed documents remain", zap.Strings("ids", quarantinedIDs(quarantine)))
			}
			return finish(domrun.Exhausted, nil)
		}

		s.progress.set(StateProcess)
		out, err := s.tagger.Process(ctx, opts.Index, b)
		if err != nil {
			return finish(classify(ctx, err), err)
		}
		failed := out.Failed()
		for _, id := range failed {
			quarantine[id] = struct{}{}
		}

		s.progress.set(StateWrite)
		written, err := s.tagger.Write(ctx, opts.Index, out.Updates)
		for _, id := range written.Failed {
			quarantine[id] = struct{}{}
		}

		batchStats := domrun.Stats{
			Batches: 1,
			Tagged:  written.Written,
			Failed:  len(failed) + len(written.Failed),
		}
		res.Stats.Add(batchStats)
		s.progress.batches.Add(1)
		s.progress.tagged.Add(int64(batchStats.Tagged))
		s.progress.failed.Add(int64(batchStats.Failed))
		metrics.BatchesTotal.Inc()

		if err != nil {
			return finish(classify(ctx, err), err)
		}
		log.Info("Batch written",
			zap.Int("selected", b.Total()),
			zap.Int("tagged", batchStats.Tagged),
			zap.Int("failed", batchStats.Failed),
			zap.Int("skipped", b.Skipped),
		)
	}
}

func (s *Service) outsideWindow(log *zap.Logger, w schedule.Window) bool {
	now := s.clock()
	if !w.Active(now) {
		return false
	}
	log.Info("Working hours active, stopping",
		zap.Stringer("working_hours", w),
		zap.Int("hour", now.Hour()),
	)
	return true
}

// classify maps a step error to the terminal status.
func classify(ctx context.Context, err error) domrun.Status {
	switch {
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return domrun.Interrupted
	case errors.Is(err, domain.ErrConnectivity):
		return domrun.ConnectivityFailure
	case errors.Is(err, domain.ErrInvalidConfig):
		return domrun.ConfigError
	default:
		return domrun.Unexpected
	}
}

func quarantinedIDs(quarantine map[string]struct{}) []string {
	ids := make([]string, 0, len(quarantine))
	for id := range quarantine {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
