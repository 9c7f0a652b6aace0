package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/skillscope/internal/corpus"
	"github.com/Aman-CERP/skillscope/internal/output"
)

// validateReport is the JSON form of validate.
type validateReport struct {
	Corpus    string                 `json:"corpus"`
	Documents int                    `json:"documents"`
	Required  []string               `json:"required"`
	Issues    []corpus.SectionReport `json:"issues"`
}

func newValidateCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool
	var sections []string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that every skill document has the required sections",
		Long: `Parse every document in the skill library and list those missing a required
heading. Missing sections are reported, not fatal: the exit code is 0 unless
the library cannot be read.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := corpus.Options{Root: g.cfg.Corpus.Path, Include: g.cfg.Corpus.Include, Exclude: g.cfg.Corpus.Exclude}
			raws, warnings, err := corpus.Discover(cmd.Context(), opts)
			if err != nil {
				return err
			}
			required := sections
			if len(required) == 0 {
				required = corpus.RequiredSections
			}

			rep := validateReport{
				Corpus:    g.cfg.Corpus.Path,
				Documents: len(raws),
				Required:  required,
				Issues:    corpus.CheckSections(raws, required),
			}
			if rep.Issues == nil {
				rep.Issues = []corpus.SectionReport{}
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}

			out := output.New(cmd.OutOrStdout())
			for _, w := range warnings {
				out.Warning(w.String())
			}
			if len(rep.Issues) == 0 {
				out.Successf("All %d documents have: %s", rep.Documents, strings.Join(required, ", "))
				return nil
			}
			out.Warningf("%d of %d documents are missing sections", len(rep.Issues), rep.Documents)
			for _, is := range rep.Issues {
				out.Status("", is.Path+": "+strings.Join(is.Missing, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringSliceVar(&sections, "require", nil, "Required section headings (default: Overview, Best Practices)")

	return cmd
}
