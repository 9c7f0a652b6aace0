package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/skillscope/internal/engine"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/report"
	"github.com/Aman-CERP/skillscope/internal/taxonomy"
	"github.com/Aman-CERP/skillscope/internal/ui"
)

// retrieveOptions holds the flags for the retrieve command.
type retrieveOptions struct {
	query        string
	repo         string
	budget       int
	format       string
	categories   []string
	profile      string
	noTimestamps bool
}

func newRetrieveCmd(g *globalOptions) *cobra.Command {
	opts := &retrieveOptions{}

	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Select the skill documents that best fit a query within a token budget",
		Long: `Score every skill document against a free-text query and, optionally, the
technology fingerprint of a repository, then pack the best matches into a
token budget.

Categories can be pinned with --category or inline as "category:<name>".
A --profile names a project type from the profiles: section of the config;
its essential documents are packed first and its important ones ranked up.`,
		Example: `  # Query only
  skillscope retrieve --query "kafka consumer groups" --budget 4000

  # Let a repository's dependencies drive retrieval
  skillscope retrieve --repo ./service --budget 8000 --format text

  # Restrict to a category
  skillscope retrieve --query "caching" --category database

  # Start from a configured project type
  skillscope retrieve --profile saas --repo . --budget 12000`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("budget") {
				opts.budget = g.cfg.Packer.DefaultBudget
			}
			return runRetrieve(cmd, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "Free-text query")
	cmd.Flags().StringVarP(&opts.repo, "repo", "r", "", "Repository whose technologies inform the ranking")
	cmd.Flags().IntVarP(&opts.budget, "budget", "b", 0, "Token budget (default: packer.default_budget from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(report.FormatJSON), "Output format: json, jsonl, text, markdown")
	cmd.Flags().StringSliceVarP(&opts.categories, "category", "c", nil, "Pin a category (repeatable, slug, code or name)")
	cmd.Flags().StringVar(&opts.profile, "profile", "", "Project type from the profiles: config section")
	cmd.Flags().BoolVar(&opts.noTimestamps, "no-timestamps", false, "Omit durations so output is byte-stable")

	return cmd
}

func runRetrieve(cmd *cobra.Command, g *globalOptions, opts *retrieveOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	cats, err := parseCategories(opts.categories)
	if err != nil {
		return err
	}

	res := g.newEngine().Run(cmd.Context(), engine.Request{
		Mode:       engine.ModeRetrieve,
		Query:      opts.query,
		Categories: cats,
		Repo:       opts.repo,
		Budget:     opts.budget,
		Profile:    opts.profile,
	})
	out := cmd.OutOrStdout()
	styles := ui.StylesFor(out)
	ropts := report.Options{Format: format, NoTimestamps: opts.noTimestamps, Styles: &styles}
	if res.Err != nil {
		return renderFailure(out, res, ropts)
	}
	return report.Render(out, res, ropts)
}

// parseCategories resolves --category values. Unknown names are invalid
// arguments.
func parseCategories(values []string) ([]taxonomy.Category, error) {
	var out []taxonomy.Category
	for _, v := range values {
		c, ok := taxonomy.Parse(v)
		if !ok {
			return nil, serrors.ValidationError(fmt.Sprintf("unknown category %q", v), nil).
				WithSuggestion("run 'skillscope categories' to list valid names")
		}
		out = append(out, c)
	}
	return out, nil
}
