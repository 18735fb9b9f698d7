package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/doctagger/internal/domain"
	domdoc "github.com/kailas-cloud/doctagger/internal/domain/document"
	logpkg "github.com/kailas-cloud/doctagger/internal/logger"
	documentrepo "github.com/kailas-cloud/doctagger/internal/repository/document"
)

// importChunk is the number of documents stored per Put call.
const importChunk = 500

// importLine is one document of a JSON lines import file.
type importLine struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	LastIndexed int64  `json:"lastIndexed"`
}

func (a *app) indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the search index",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Create the search schema for the configured index if missing",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.initIndex(cmd.Context(), cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "import <file.jsonl>",
			Short: "Load documents from a JSON lines file into the configured index",
			Long: `Import stores whole documents, one JSON object per line:

  {"id": "doc-1", "content": "...", "lastIndexed": 1700000000}

Existing documents with the same id are replaced and lose their tags.`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.importDocuments(cmd.Context(), cmd.OutOrStdout(), args[0])
			},
		},
	)
	return cmd
}

func (a *app) initIndex(ctx context.Context, out io.Writer) error {
	logger, err := logpkg.NewLogger(a.env, a.cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := openStore(ctx, &a.cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureIndex(ctx, a.cfg.Index.Name); err != nil {
		return fmt.Errorf("ensure index %s: %w", a.cfg.Index.Name, err)
	}
	fmt.Fprintf(out, "index %s ready\n", a.cfg.Index.Name)
	return nil
}

func (a *app) importDocuments(ctx context.Context, out io.Writer, path string) error {
	docs, err := readDocuments(path)
	if err != nil {
		return err
	}

	logger, err := logpkg.NewLogger(a.env, a.cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := openStore(ctx, &a.cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	index := a.cfg.Index.Name
	if err := store.EnsureIndex(ctx, index); err != nil {
		return fmt.Errorf("ensure index %s: %w", index, err)
	}

	repo := documentrepo.New(store)
	for start := 0; start < len(docs); start += importChunk {
		end := min(start+importChunk, len(docs))
		if err := repo.Import(ctx, index, docs[start:end]); err != nil {
			return err
		}
	}
	logger.Info("Documents imported", zap.String("index", index), zap.Int("documents", len(docs)))
	fmt.Fprintf(out, "imported %d documents into %s\n", len(docs), index)
	return nil
}

// readDocuments parses a JSON lines file. Blank lines are skipped.
func readDocuments(path string) ([]domdoc.Document, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var docs []domdoc.Document
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var l importLine
		if err := json.Unmarshal(line, &l); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, n, err)
		}
		doc, err := domdoc.New(l.ID, l.Content, l.LastIndexed)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, n, err)
		}
		docs = append(docs, doc)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return docs, nil
}
