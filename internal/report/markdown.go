package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/skillscope/internal/engine"
)

// GapReportFile is the conventional file name for the markdown gap report.
const GapReportFile = "GAP_REPORT.md"

var cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ")

func cell(s string) string { return cellEscaper.Replace(s) }

func gapsMarkdown(w io.Writer, res *engine.Result, opts Options) error {
	r := res.Gaps
	var b strings.Builder

	b.WriteString("# Skill Gap Analysis Report\n\n")
	fmt.Fprintf(&b, "**Target:** `%s`\n", r.Root)
	if at := scannedAt(r.ScannedAt, opts); at != nil {
		fmt.Fprintf(&b, "**Generated:** %s\n", at.Format("2006-01-02 15:04:05 UTC"))
	}
	if r.Partial {
		b.WriteString("**Partial scan:** the scan stopped early; some technologies may be missing.\n")
	}

	b.WriteString("\n## Potential Skill Gaps\n\n")
	if len(r.Gaps) == 0 {
		b.WriteString("No gaps detected.\n")
	} else {
		b.WriteString("These technologies were detected in the repository but no skill document covers them.\n")
		b.WriteString("Suggested categories are heuristic hints, not classifications.\n\n")
		b.WriteString("| Technology | Confidence | Detected in | Suggested category |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, g := range r.Gaps {
			fmt.Fprintf(&b, "| `%s` | %.2f | %s | %s |\n",
				cell(g.Token), g.Confidence, cell(sourceList(g.Sources)), cell(suggestionText(g.Suggestion)))
		}
	}

	b.WriteString("\n## Covered Skills\n\n")
	if len(r.Covered) == 0 {
		b.WriteString("No detected technology matched a skill document.\n")
	} else {
		b.WriteString("| Technology | Confidence | Matched skill |\n")
		b.WriteString("|---|---|---|\n")
		for _, c := range r.Covered {
			fmt.Fprintf(&b, "| `%s` | %.2f | `%s` |\n", cell(c.Token), c.Confidence, cell(c.DocumentID))
		}
	}

	if len(res.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, wn := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", wn.String())
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func retrieveMarkdown(w io.Writer, res *engine.Result) error {
	p := res.Pack
	var b strings.Builder

	b.WriteString("# Context Pack\n\n")
	fmt.Fprintf(&b, "**Query:** %s\n", cell(queryText(res)))
	if name := profileName(res); name != "" {
		fmt.Fprintf(&b, "**Profile:** %s\n", cell(name))
	}
	fmt.Fprintf(&b, "**Tokens:** %d / %d\n\n", p.TotalTokens, p.Budget)

	if len(p.Entries) == 0 {
		if p.TopExceededBudget {
			b.WriteString("The best match does not fit the budget.\n")
		} else {
			b.WriteString("No matching documents.\n")
		}
	} else {
		b.WriteString("| # | Document | Score | Tokens | Category | Path |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for i, e := range p.Entries {
			fmt.Fprintf(&b, "| %d | `%s` | %.3f | %d | %s | %s |\n",
				i+1, cell(e.ID), e.Score, e.Tokens, e.Category, cell(e.Path))
		}
	}

	if len(res.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, wn := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", wn.String())
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
