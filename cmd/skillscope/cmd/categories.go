package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/skillscope/internal/taxonomy"
	"github.com/Aman-CERP/skillscope/internal/ui"
)

func newCategoriesCmd() *cobra.Command {
	var jsonOutput bool
	var synonyms bool

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the skill categories",
		Long: `List the fixed category taxonomy. Any of the code, slug or name may be passed
to --category; library directories named "<code>-<slug>" are assigned the
category automatically.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			all := taxonomy.All()
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(all)
			}

			headers := []string{"Code", "Slug", "Name"}
			if synonyms {
				headers = append(headers, "Synonyms")
			}
			rows := make([][]string, 0, len(all))
			for _, info := range all {
				row := []string{info.Code, string(info.Category), info.Name}
				if synonyms {
					row = append(row, strings.Join(info.Synonyms, ", "))
				}
				rows = append(rows, row)
			}

			w := cmd.OutOrStdout()
			s := ui.StylesFor(w)
			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(s.Border).
				Headers(headers...).
				Rows(rows...).
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == table.HeaderRow {
						return s.Header
					}
					return s.Cell
				})
			_, err := fmt.Fprintln(w, t.String())
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&synonyms, "synonyms", false, "Include the synonyms used for suggestions")

	return cmd
}
