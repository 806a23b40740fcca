// Package cli implements the consolidator command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/todmy/doc-consolidator/internal/config"
	"github.com/todmy/doc-consolidator/internal/llm"
)

// Version is set at build time
var Version = "dev"

// app holds global flags and the injectable constructors
type app struct {
	configFile string
	verbose    bool
	noLLM      bool

	newProvider func(llm.Config) (llm.Provider, error)
}

// NewRootCommand builds the consolidator command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{newProvider: llm.NewProvider})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "consolidator",
		Short: "Detect and resolve conflicts while consolidating documents",
		Long: `Consolidator merges several documents about the same subject into one.

It splits documents into atomic claims, finds claims that disagree,
settles each disagreement by recency, source authority or an LLM, and
flags whatever it cannot settle confidently for human review.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CONSOLIDATOR_*)
3. Config file (./consolidator.yaml or ~/.config/consolidator/consolidator.yaml)
4. Defaults`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// Global flags
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVar(&a.noLLM, "no-llm", false, "run without an LLM: skip verification, extraction and smart resolution")

	root.AddCommand(
		a.newDetectCommand(),
		a.newMergeCommand(),
		a.newConsolidateCommand(),
		a.newExtractCommand(),
		a.newValidateCommand(),
		a.newServeCommand(),
		newVersionCommand(),
	)

	return root
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "consolidator %s\n", Version)
		},
	}
}

// setup loads configuration and builds the logger. Logs go to stderr so
// that stdout carries only command output.
func (a *app) setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return nil, nil, err
	}

	if a.verbose {
		cfg.Logging.Level = "debug"
	}

	return cfg, cfg.Logging.NewLogger(cmd.ErrOrStderr()), nil
}
