package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/skillscope/internal/ui"
)

func newStatsCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show document counts per category",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			lr, err := g.newStore().Load(cmd.Context())
			if err != nil {
				return err
			}
			stats := lr.Index.ComputeStats()

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			w := cmd.OutOrStdout()
			s := ui.StylesFor(w)
			var b strings.Builder
			fmt.Fprintf(&b, "%s\n", s.Title.Render("Skill library"))
			fmt.Fprintf(&b, "%s %d documents, %d tokens, %d code examples, %d tags\n\n",
				s.Label.Render("Total:"), stats.Documents, stats.TotalTokens, stats.CodeExamples, stats.Tags)

			rows := make([][]string, 0, len(stats.Categories))
			for _, c := range stats.Categories {
				rows = append(rows, []string{c.Name, fmt.Sprint(c.Count), fmt.Sprint(c.Tokens)})
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(s.Border).
				Headers("Category", "Documents", "Tokens").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return s.Header
					}
					if col > 0 {
						return s.Score.Align(lipgloss.Right)
					}
					return s.Cell
				})
			b.WriteString(t.String())
			b.WriteString("\n")

			_, err = fmt.Fprint(w, b.String())
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
