package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/todmy/doc-consolidator/internal/config"
	"github.com/todmy/doc-consolidator/internal/validate"
	"github.com/todmy/doc-consolidator/pkg/models"
)

// ErrValidationWarnings is returned by validate --strict when warnings exist
var ErrValidationWarnings = errors.New("claims have validation warnings")

type strategyFlags struct {
	mode      string
	policy    string
	threshold float64
	authority []string
}

func (s *strategyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.mode, "mode", "", "merge mode (newest_wins, authority_wins, smart)")
	cmd.Flags().StringVar(&s.policy, "policy", "", "conflict policy (auto, flag_all)")
	cmd.Flags().Float64Var(&s.threshold, "threshold", 0, "minimum confidence to auto-resolve a conflict")
	cmd.Flags().StringSliceVar(&s.authority, "authority", nil, "source path globs, most authoritative first")
}

// resolve layers the strategy: config, then bundle, then explicit flags
func (s *strategyFlags) resolve(cmd *cobra.Command, cfg *config.Config, bundle *models.MergeStrategy) (models.MergeStrategy, error) {
	strategy := cfg.Merge
	if bundle != nil {
		strategy = *bundle
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		strategy.Mode = models.MergeMode(s.mode)
	}
	if flags.Changed("policy") {
		strategy.ConflictResolution = models.ConflictPolicy(s.policy)
	}
	if flags.Changed("threshold") {
		strategy.ConflictThreshold = s.threshold
	}
	if flags.Changed("authority") {
		strategy.AuthorityOrder = s.authority
	}

	return strategy, strategy.Validate()
}

// collect reads inputs and extracts claims from any markdown documents
func (a *app) collect(ctx context.Context, cmd *cobra.Command, c *components, args []string) (*Bundle, error) {
	bundle, docs, err := readInputs(args, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return bundle, nil
	}

	if c.Pipeline.Extractor == nil {
		return nil, errors.New("markdown inputs need claim extraction, which requires an LLM (drop --no-llm)")
	}

	ingested, err := c.Pipeline.Ingest(ctx, docs)
	if err != nil {
		return nil, err
	}
	bundle.Documents = append(bundle.Documents, docs...)
	bundle.Claims = append(bundle.Claims, ingested.Claims...)
	bundle.Findings = append(bundle.Findings, ingested.Findings...)
	return bundle, nil
}

// run loads configuration, builds components and runs fn with them
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, log *slog.Logger, c *components) error) error {
	cfg, log, err := a.setup(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := a.build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(context.Background()); err != nil {
			log.Warn("close components", "error", err)
		}
	}()

	return fn(ctx, cfg, log, c)
}

func (a *app) newDetectCommand() *cobra.Command {
	var out outputFlags

	cmd := &cobra.Command{
		Use:   "detect <bundle|file.md>...",
		Short: "Find conflicting claims",
		Long: `Detect reads claim bundles (YAML or JSON) or markdown documents and
reports every pair of claims that conflict. The output is a bundle with the
conflicts filled in, which merge accepts as input.

Example:
  consolidator detect claims.yaml -o detected.json
  consolidator detect guide.md manual.md --format yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, cfg *config.Config, log *slog.Logger, c *components) error {
				bundle, err := a.collect(ctx, cmd, c, args)
				if err != nil {
					return err
				}

				conflicts, err := c.Pipeline.Detector.DetectConflicts(ctx, bundle.Claims)
				if err != nil {
					return fmt.Errorf("detect conflicts: %w", err)
				}
				bundle.Conflicts = conflicts

				printConflicts(cmd.ErrOrStderr(), conflicts)
				return out.write(cmd, func(w io.Writer) error { return encode(w, out.format, bundle) })
			})
		},
	}

	out.register(cmd, formatJSON, "json, yaml")
	return cmd
}

func (a *app) newMergeCommand() *cobra.Command {
	var (
		out      outputFlags
		strategy strategyFlags
	)

	cmd := &cobra.Command{
		Use:   "merge <bundle>...",
		Short: "Merge documents and settle already detected conflicts",
		Long: `Merge consolidates the documents and claims of the given bundles and
settles their conflicts with the selected strategy. Conflicts that cannot be
settled confidently are flagged for review.

Example:
  consolidator detect claims.yaml | consolidator merge - --mode newest_wins
  consolidator merge detected.json --mode authority_wins --authority "official/*" --format html`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, cfg *config.Config, log *slog.Logger, c *components) error {
				bundle, docs, err := readInputs(args, cmd.InOrStdin())
				if err != nil {
					return err
				}
				if len(docs) > 0 {
					return errors.New("merge reads bundles with detected conflicts; use consolidate for markdown documents")
				}

				s, err := strategy.resolve(cmd, cfg, bundle.Strategy)
				if err != nil {
					return err
				}

				result, err := c.Pipeline.Merger.Merge(ctx, bundle.Documents, bundle.Claims, bundle.Conflicts, s)
				if err != nil {
					return fmt.Errorf("merge: %w", err)
				}

				printSummary(cmd.ErrOrStderr(), result)
				return out.write(cmd, func(w io.Writer) error { return writeResult(w, out.format, result) })
			})
		},
	}

	out.register(cmd, formatMarkdown, "markdown, html, json")
	strategy.register(cmd)
	return cmd
}

func (a *app) newConsolidateCommand() *cobra.Command {
	var (
		out      outputFlags
		strategy strategyFlags
	)

	cmd := &cobra.Command{
		Use:   "consolidate <bundle|file.md>...",
		Short: "Detect conflicts and merge in one step",
		Long: `Consolidate runs detection and merging over claim bundles or markdown
documents. Markdown documents are split into claims by the LLM first.

Example:
  consolidator consolidate guide.md manual.md --mode newest_wins -o merged.md
  consolidator consolidate claims.yaml --policy flag_all --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, cfg *config.Config, log *slog.Logger, c *components) error {
				bundle, err := a.collect(ctx, cmd, c, args)
				if err != nil {
					return err
				}

				s, err := strategy.resolve(cmd, cfg, bundle.Strategy)
				if err != nil {
					return err
				}

				outcome, err := c.Pipeline.Consolidate(ctx, bundle.Documents, bundle.Claims, s)
				if err != nil {
					return err
				}

				printConflicts(cmd.ErrOrStderr(), outcome.Conflicts)
				printSummary(cmd.ErrOrStderr(), outcome.Result)
				return out.write(cmd, func(w io.Writer) error { return writeResult(w, out.format, outcome.Result) })
			})
		},
	}

	out.register(cmd, formatMarkdown, "markdown, html, json")
	strategy.register(cmd)
	return cmd
}

func (a *app) newExtractCommand() *cobra.Command {
	var out outputFlags

	cmd := &cobra.Command{
		Use:   "extract <file.md>...",
		Short: "Split markdown documents into atomic claims",
		Long: `Extract parses markdown documents into sections and asks the LLM for
the atomic claims of each section. The output is a claim bundle.

Example:
  consolidator extract guide.md manual.md -o claims.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if !isMarkdown(path) {
					return fmt.Errorf("%s: extract reads .md, .markdown or .txt files", path)
				}
			}

			return a.run(cmd, func(ctx context.Context, cfg *config.Config, log *slog.Logger, c *components) error {
				bundle, err := a.collect(ctx, cmd, c, args)
				if err != nil {
					return err
				}

				log.Info("extraction complete", "documents", len(bundle.Documents), "claims", len(bundle.Claims))
				printFindings(cmd.ErrOrStderr(), bundle.Findings)
				return out.write(cmd, func(w io.Writer) error { return encode(w, out.format, bundle) })
			})
		},
	}

	out.register(cmd, formatYAML, "yaml, json")
	return cmd
}

func (a *app) newValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <bundle>...",
		Short: "Report data-quality findings for claims",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, _, err := readInputs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			findings := validate.ValidateAll(bundle.Claims)
			printFindings(cmd.OutOrStdout(), findings)
			fmt.Fprintf(cmd.OutOrStdout(), "%d claim(s), %d finding(s)\n", len(bundle.Claims), len(findings))

			if strict && validate.HasWarnings(findings) {
				return ErrValidationWarnings
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any warning is found")
	return cmd
}
