package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/doctagger/internal/domain"
	domrun "github.com/kailas-cloud/doctagger/internal/domain/run"
	logpkg "github.com/kailas-cloud/doctagger/internal/logger"
	"github.com/kailas-cloud/doctagger/internal/metrics"
	documentrepo "github.com/kailas-cloud/doctagger/internal/repository/document"
	chiTransport "github.com/kailas-cloud/doctagger/internal/transport/chi"
	healthuc "github.com/kailas-cloud/doctagger/internal/usecase/health"
	"github.com/kailas-cloud/doctagger/internal/usecase/normalize"
	runuc "github.com/kailas-cloud/doctagger/internal/usecase/run"
	"github.com/kailas-cloud/doctagger/internal/usecase/selector"
	"github.com/kailas-cloud/doctagger/internal/usecase/stopwords"
	"github.com/kailas-cloud/doctagger/internal/usecase/tagging"
	"github.com/kailas-cloud/doctagger/internal/usecase/topic"
	"github.com/kailas-cloud/doctagger/internal/version"
)

type runFlags struct {
	batchSize      int
	retagBefore    int64
	maxFeatures    int
	maxIter        int
	topWords       int
	learningOffset float64
	progress       bool
}

func (a *app) runCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Tag documents until none are left or working hours begin",
		Long: `Run selects batches of untagged and stale documents, extracts topic
terms from each and writes them back to the index.

Exit codes:
  99   no documents left to tag
  5    stopped because working hours began
  3    interrupted by SIGINT or SIGTERM
  244  index backend unreachable
  2    configuration error
  1    unexpected error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.applyRunFlags(cmd, &f); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runTagger(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), f.progress)
		},
	}

	fl := cmd.Flags()
	fl.IntVarP(&f.batchSize, "batch-size", "b", 0, "documents per batch, 0-500 (default from config, 100)")
	fl.Int64VarP(&f.retagBefore, "retag-before", "o", 0, "retag documents tagged before this epoch second")
	fl.IntVarP(&f.maxFeatures, "max-features", "f", 0, "vocabulary size cap (default from config, 1000)")
	fl.IntVarP(&f.maxIter, "max-iter", "i", 0, "topic model iterations (default from config, 1000)")
	fl.IntVar(&f.topWords, "top-words", 0, "tags per document, 0-30 (default from config, 10)")
	fl.Float64Var(&f.learningOffset, "learning-offset", 0, "topic model learning offset (default from config, 50)")
	fl.BoolVar(&f.progress, "progress", false, "show a progress bar per batch")
	return cmd
}

// applyRunFlags overrides config values with the flags that were set and
// re-validates the result.
func (a *app) applyRunFlags(cmd *cobra.Command, f *runFlags) error {
	fl := cmd.Flags()
	t := &a.cfg.Tagging
	if fl.Changed("batch-size") {
		t.BatchSize = f.batchSize
	}
	if fl.Changed("retag-before") {
		t.RetagBefore = f.retagBefore
	}
	if fl.Changed("max-features") {
		t.MaxFeatures = f.maxFeatures
	}
	if fl.Changed("max-iter") {
		t.MaxIter = f.maxIter
	}
	if fl.Changed("top-words") {
		v := f.topWords
		t.TopWords = &v
	}
	if fl.Changed("learning-offset") {
		t.LearningOffset = f.learningOffset
	}
	if t.BatchSize < 0 {
		return fmt.Errorf("%w: batch size must not be negative", domain.ErrInvalidConfig)
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	return nil
}

func (a *app) runTagger(ctx context.Context, stdout, stderr io.Writer, showProgress bool) error {
	cfg := &a.cfg
	startedAt := time.Now()

	logger, logPath, err := logpkg.NewRunLogger(a.env, cfg.Logging.Level, cfg.Logging.Dir, startedAt)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting doctagger",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.String("db_driver", cfg.Index.Driver),
		zap.String("log_file", logPath),
	)

	// The working-hours guard runs before anything touches the backend.
	window, err := cfg.Window()
	if err != nil {
		return err
	}
	if window.Active(startedAt) {
		logger.Info("Working hours active, not starting",
			zap.Stringer("working_hours", window),
			zap.Int("hour", startedAt.Hour()),
		)
		a.code = domrun.OutsideWindow.ExitCode()
		fmt.Fprintf(stdout, "run: %s (working hours %s)\n", domrun.OutsideWindow, window)
		return nil
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	stop, err := stopwords.LoadFiles(cfg.Stopwords.Paths...)
	if err != nil {
		return err
	}
	logger.Info("Stopwords loaded", zap.Int("words", stop.Len()))

	extractor, err := topic.New(cfg.Params())
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	metrics.RegisterTaggerMetrics()

	repo := documentrepo.New(store)
	tagger := tagging.New(normalize.New(stop), extractor, repo, logger)
	if showProgress {
		tagger.WithProgress(newProgressBar(stderr))
	}
	loop := runuc.New(repo, selector.New(repo, logger), tagger, logger)

	var wg sync.WaitGroup
	srvCtx, cancelSrv := context.WithCancel(ctx)
	if cfg.Status.ListenAddr != "" {
		srv := chiTransport.NewServer(
			healthuc.New(store, cfg.Index.Driver),
			loop.Progress(),
			cfg.Status.APIKeys,
			logger,
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Serve(srvCtx, cfg.Status.ListenAddr); err != nil {
				logger.Error("Status server failed", zap.Error(err))
			}
		}()
	}

	res := loop.Run(ctx, runuc.Options{
		Index:       cfg.Index.Name,
		BatchSize:   cfg.Tagging.BatchSize,
		RetagBefore: cfg.Tagging.RetagBefore,
		Window:      window,
	})
	cancelSrv()
	wg.Wait()

	a.code = res.Status.ExitCode()
	printSummary(stdout, res)
	if res.Err != nil && res.Status != domrun.Interrupted {
		fmt.Fprintln(stderr, "Error:", res.Err)
	}
	return nil
}

func printSummary(w io.Writer, res runuc.Result) {
	fmt.Fprintf(w, "run %s: %s (batches=%d tagged=%d failed=%d skipped=%d)\n",
		res.RunID, res.Status, res.Stats.Batches, res.Stats.Tagged, res.Stats.Failed, res.Stats.Skipped)
}

func newProgressBar(w io.Writer) func(total int) tagging.Progress {
	return func(total int) tagging.Progress {
		return progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Tagging[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(w)
			}),
		)
	}
}
