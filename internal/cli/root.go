// Package cli implements the doctagger command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/doctagger/internal/config"
	"github.com/kailas-cloud/doctagger/internal/domain"
	domrun "github.com/kailas-cloud/doctagger/internal/domain/run"
)

// app holds state shared by all commands of one invocation.
type app struct {
	cfgFile string
	env     string
	cfg     config.Config
	code    int
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return a.code
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "doctagger",
		Short: "Tag indexed documents with their most relevant topic terms",
		Long: `doctagger selects untagged or stale documents from a search index,
extracts topic terms from each document's content and writes them back
as tags, batch by batch, until nothing is left or working hours begin.

Example usage:
  doctagger index init            # Create the search schema
  doctagger run -b 200            # Tag documents 200 at a time
  doctagger run -o 1700000000     # Also retag documents tagged before that time`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.loadConfig,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	})

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is config/<env>.yaml)")
	root.PersistentFlags().StringVar(&a.env, "env", config.GetEnv(), "environment: local, prod")

	root.AddCommand(
		a.runCmd(),
		a.indexCmd(),
		a.stopwordsCmd(),
		a.versionCmd(),
	)
	return root
}

func (a *app) loadConfig(_ *cobra.Command, _ []string) error {
	var err error
	if a.cfgFile != "" {
		a.cfg, err = config.LoadFile(a.cfgFile)
	} else {
		a.cfg, err = config.Load(a.env)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// exitCode maps a command error to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrInvalidConfig):
		return domrun.ExitConfig
	case errors.Is(err, domain.ErrConnectivity):
		return domrun.ExitConnectivity
	default:
		return domrun.ExitUnexpected
	}
}
