package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/doctagger/internal/domain"
	"github.com/kailas-cloud/doctagger/internal/usecase/stopwords"
)

func (a *app) stopwordsCmd() *cobra.Command {
	var chunks, out string
	aggregate := &cobra.Command{
		Use:   "aggregate",
		Short: "Merge stopword chunk files into the master stopword list",
		Long: `Aggregate reads every file matching the chunk glob (for example
"stopword-chunks/**/*.txt"), merges and deduplicates the words and writes
them sorted, one per line, to the first configured stopword path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if chunks == "" {
				chunks = a.cfg.Stopwords.Chunks
			}
			if out == "" && len(a.cfg.Stopwords.Paths) > 0 {
				out = a.cfg.Stopwords.Paths[0]
			}
			if chunks == "" || out == "" {
				return fmt.Errorf("%w: stopword chunks glob and output path are required", domain.ErrInvalidConfig)
			}

			files, words, err := stopwords.Aggregate(chunks, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "merged %d files into %s (%d words)\n", files, out, words)
			return nil
		},
	}
	aggregate.Flags().StringVar(&chunks, "chunks", "", "glob of chunk files (default stopwords.chunks)")
	aggregate.Flags().StringVar(&out, "out", "", "output file (default first of stopwords.paths)")

	cmd := &cobra.Command{
		Use:   "stopwords",
		Short: "Maintain custom stopword lists",
	}
	cmd.AddCommand(aggregate)
	return cmd
}
