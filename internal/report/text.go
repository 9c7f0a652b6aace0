package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Aman-CERP/skillscope/internal/engine"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/signals"
	"github.com/Aman-CERP/skillscope/internal/taxonomy"
	"github.com/Aman-CERP/skillscope/internal/ui"
)

// newTable builds a bordered table; columns listed in numeric are right aligned.
func newTable(s ui.Styles, headers []string, rows [][]string, numeric ...int) string {
	right := make(map[int]bool, len(numeric))
	for _, c := range numeric {
		right[c] = true
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			if right[col] {
				return s.Score.Align(lipgloss.Right)
			}
			return s.Cell
		})
	return t.String()
}

func retrieveText(w io.Writer, res *engine.Result, opts Options) error {
	s := opts.styles()
	p := res.Pack
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", s.Title.Render("Context pack"), s.Label.Render(fmt.Sprintf("for %q", queryText(res))))
	fmt.Fprintf(&b, "%s %d documents, %d / %d tokens, %d candidates\n",
		s.Label.Render("Selected:"), len(p.Entries), p.TotalTokens, p.Budget, p.Candidates)
	if name := profileName(res); name != "" {
		fmt.Fprintf(&b, "%s %s\n", s.Label.Render("Profile:"), name)
	}
	if fp := res.Fingerprint; fp != nil {
		fmt.Fprintf(&b, "%s %s\n", s.Label.Render("Signals:"), signalList(fp.Signals))
	}
	b.WriteString("\n")

	switch {
	case p.TopExceededBudget:
		b.WriteString(s.Warning.Render("The best match does not fit the budget; raise --budget to include it."))
		b.WriteString("\n")
	case len(p.Entries) == 0:
		b.WriteString(s.Dim.Render("No matching documents."))
		b.WriteString("\n")
	default:
		rows := make([][]string, 0, len(p.Entries))
		for i, e := range p.Entries {
			rows = append(rows, []string{
				fmt.Sprint(i + 1),
				e.ID,
				fmt.Sprintf("%.3f", e.Score),
				fmt.Sprint(e.Tokens),
				string(e.Category),
				strings.Join(e.MatchedSignals, " "),
			})
		}
		b.WriteString(newTable(s, []string{"#", "Document", "Score", "Tokens", "Category", "Matched"}, rows, 0, 2, 3))
		b.WriteString("\n")
	}

	writeWarningsText(&b, s, res.Warnings)
	_, err := io.WriteString(w, b.String())
	return err
}

func gapsText(w io.Writer, res *engine.Result, opts Options) error {
	s := opts.styles()
	r := res.Gaps
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", s.Title.Render("Skill gap analysis"), s.Label.Render(r.Root))
	if at := scannedAt(r.ScannedAt, opts); at != nil {
		fmt.Fprintf(&b, "%s %s\n", s.Label.Render("Scanned:"), at.Format("2006-01-02 15:04:05 UTC"))
	}
	if r.Partial {
		b.WriteString(s.Warning.Render("Partial scan: results cover only the files reached before the scan stopped."))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s\n", s.Error.Render(fmt.Sprintf("Gaps (%d)", len(r.Gaps))))
	if len(r.Gaps) == 0 {
		b.WriteString(s.Success.Render("No gaps detected."))
		b.WriteString("\n")
	} else {
		rows := make([][]string, 0, len(r.Gaps))
		for _, g := range r.Gaps {
			rows = append(rows, []string{g.Token, fmt.Sprintf("%.2f", g.Confidence), sourceList(g.Sources), suggestionText(g.Suggestion)})
		}
		b.WriteString(newTable(s, []string{"Technology", "Confidence", "Detected in", "Suggested category"}, rows, 1))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n%s\n", s.Success.Render(fmt.Sprintf("Covered (%d)", len(r.Covered))))
	if len(r.Covered) == 0 {
		b.WriteString(s.Dim.Render("No signal matched a skill document."))
		b.WriteString("\n")
	} else {
		rows := make([][]string, 0, len(r.Covered))
		for _, c := range r.Covered {
			rows = append(rows, []string{c.Token, fmt.Sprintf("%.2f", c.Confidence), c.DocumentID})
		}
		b.WriteString(newTable(s, []string{"Technology", "Confidence", "Matched skill"}, rows, 1))
		b.WriteString("\n")
	}
	if r.Filtered > 0 {
		fmt.Fprintf(&b, "%s\n", s.Dim.Render(fmt.Sprintf("%d low-confidence signals not checked", r.Filtered)))
	}

	writeWarningsText(&b, s, res.Warnings)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeWarningsText(b *strings.Builder, s ui.Styles, ws []serrors.Warning) {
	if len(ws) == 0 {
		return
	}
	b.WriteString("\n")
	for _, wn := range ws {
		b.WriteString(s.Warning.Render("warning: " + wn.String()))
		b.WriteString("\n")
	}
}

func signalList(sigs []signals.Signal) string {
	if len(sigs) == 0 {
		return "none"
	}
	parts := make([]string, len(sigs))
	for i, sg := range sigs {
		parts[i] = fmt.Sprintf("%s(%.1f)", sg.Token, sg.Confidence)
	}
	return strings.Join(parts, " ")
}

func sourceList(srcs []signals.Source) string {
	parts := make([]string, 0, len(srcs))
	for _, src := range srcs {
		if src.Path == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", src.Rule, src.Path))
	}
	return strings.Join(parts, ", ")
}

func suggestionText(sg *taxonomy.Suggestion) string {
	if sg == nil {
		return "-"
	}
	return fmt.Sprintf("%s (suggestion)", sg.Category.DisplayName())
}
