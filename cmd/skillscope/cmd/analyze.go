package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/skillscope/internal/engine"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/output"
	"github.com/Aman-CERP/skillscope/internal/report"
	"github.com/Aman-CERP/skillscope/internal/signals"
	"github.com/Aman-CERP/skillscope/internal/ui"
	"github.com/Aman-CERP/skillscope/internal/watcher"
)

// analyzeOptions holds the flags for the analyze-gaps command.
type analyzeOptions struct {
	repo          string
	format        string
	out           string
	watch         bool
	minConfidence float64
	noTimestamps  bool
}

func newAnalyzeGapsCmd(g *globalOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze-gaps",
		Short: "Report technologies a repository uses that no skill document covers",
		Long: `Fingerprint a repository from its manifests, config files and source, then
check every detected technology against the skill library. Technologies with
no covering document are reported as gaps with a suggested category.

With --watch the report is regenerated whenever a manifest or config file in
the repository, or a document in the skill library, changes.`,
		Example: `  # JSON report on stdout
  skillscope analyze-gaps --repo ./service

  # Markdown report written next to the skill library, kept up to date
  skillscope analyze-gaps --repo ./service --out GAP_REPORT.md --watch

  # Only check technologies detected with high confidence
  skillscope analyze-gaps --repo . --min-confidence 0.8 --format text`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var minConf *float64
			if cmd.Flags().Changed("min-confidence") {
				minConf = &opts.minConfidence
			}
			formatSet := cmd.Flags().Changed("format")
			return runAnalyzeGaps(cmd, g, opts, minConf, formatSet)
		},
	}

	cmd.Flags().StringVarP(&opts.repo, "repo", "r", "", "Repository to analyze (required)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(report.FormatJSON), "Output format: json, jsonl, text, markdown")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the report to a file instead of stdout; format follows the extension unless --format is set")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Regenerate the report when the repository or skill library changes")
	cmd.Flags().Float64Var(&opts.minConfidence, "min-confidence", 0, "Ignore signals below this confidence (default: gaps.min_confidence from config)")
	cmd.Flags().BoolVar(&opts.noTimestamps, "no-timestamps", false, "Omit scan time and duration so output is byte-stable")

	return cmd
}

func runAnalyzeGaps(cmd *cobra.Command, g *globalOptions, opts *analyzeOptions, minConf *float64, formatSet bool) error {
	format, err := analyzeFormat(opts, formatSet)
	if err != nil {
		return err
	}

	eng := g.newEngine()
	req := engine.Request{Mode: engine.ModeAnalyzeGaps, Repo: opts.repo, MinConfidence: minConf}
	emit := func(res *engine.Result) error {
		return writeReport(cmd.OutOrStdout(), opts.out, res, report.Options{Format: format, NoTimestamps: opts.noTimestamps})
	}

	res := eng.Run(cmd.Context(), req)
	if res.Err != nil {
		return renderFailure(cmd.OutOrStdout(), res, report.Options{Format: format, NoTimestamps: opts.noTimestamps})
	}
	if err := emit(res); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}
	return watchGaps(cmd.Context(), cmd.ErrOrStderr(), g, eng, req, opts, emit)
}

// renderFailure writes the partial fingerprint a failed result still
// carries, then returns the result's error.
func renderFailure(out io.Writer, res *engine.Result, opts report.Options) error {
	if report.HasPartial(res) {
		// the engine error decides the exit code, not a render failure
		_ = report.RenderFailure(out, res, opts)
	}
	return res.Err
}

// analyzeFormat picks the output format: the flag when set, else the --out
// extension, else json.
func analyzeFormat(opts *analyzeOptions, formatSet bool) (report.Format, error) {
	if formatSet || opts.out == "" {
		return report.ParseFormat(opts.format)
	}
	switch strings.ToLower(filepath.Ext(opts.out)) {
	case ".md", ".markdown":
		return report.FormatMarkdown, nil
	case ".jsonl", ".ndjson":
		return report.FormatJSONL, nil
	case ".txt":
		return report.FormatText, nil
	default:
		return report.FormatJSON, nil
	}
}

// writeReport renders res to stdout, or atomically replaces path when set.
func writeReport(stdout io.Writer, path string, res *engine.Result, opts report.Options) error {
	if path == "" {
		styles := ui.StylesFor(stdout)
		opts.Styles = &styles
		return report.Render(stdout, res, opts)
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, res, opts); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return serrors.New(serrors.ErrCodeRenderFailed, "cannot write report", err).WithDetail("path", path)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return serrors.New(serrors.ErrCodeRenderFailed, "cannot write report", err).WithDetail("path", path)
	}
	if err := tmp.Close(); err != nil {
		return serrors.New(serrors.ErrCodeRenderFailed, "cannot write report", err).WithDetail("path", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return serrors.New(serrors.ErrCodeRenderFailed, "cannot replace report", err).WithDetail("path", path)
	}
	return nil
}

// watchGaps re-runs the analysis on every settled batch of changes until
// ctx is cancelled. Failures are reported and watching continues.
func watchGaps(ctx context.Context, stderr io.Writer, g *globalOptions, eng *engine.Engine, req engine.Request, opts *analyzeOptions, emit func(*engine.Result) error) error {
	status := output.New(stderr)
	corpusRoot := eng.Store().Root()
	repoRoot, _ := filepath.Abs(opts.repo)
	outAbs := ""
	if opts.out != "" {
		outAbs, _ = filepath.Abs(opts.out)
	}

	targets := []watcher.Target{
		{Name: "repo", Root: repoRoot, Relevant: skipFile(repoRoot, outAbs, signals.IsSignalSource)},
		{Name: "corpus", Root: corpusRoot, Relevant: skipFile(corpusRoot, outAbs, corpusFilter(g.cfg.Corpus.Include, g.cfg.Corpus.Exclude))},
	}
	wopts := watcher.DefaultOptions()
	wopts.DebounceWindow = g.cfg.WatchDebounce()
	wopts.Exclude = g.cfg.Scan.Exclude

	status.Statusf(">", "Watching %s and %s (Ctrl+C to stop)", repoRoot, corpusRoot)

	handle := func(ctx context.Context, b watcher.Batch) error {
		status.Statusf(">", "%s changed: %s", b.Target, strings.Join(b.Paths(), ", "))
		if b.Target == "corpus" {
			if _, err := eng.Reload(ctx); err != nil {
				status.Error(firstLine(serrors.FormatForCLI(err)))
				return nil
			}
		}
		res := eng.Run(ctx, req)
		if res.Err != nil {
			if ctx.Err() != nil {
				return context.Canceled
			}
			status.Error(firstLine(serrors.FormatForCLI(res.Err)))
			return nil
		}
		if err := emit(res); err != nil {
			return err
		}
		status.Successf("Report updated: %d gaps, %d covered", len(res.Gaps.Gaps), len(res.Gaps.Covered))
		return nil
	}

	return watcher.Watch(ctx, targets, wopts, handle, g.logger)
}

// corpusFilter reports whether a relative path is a corpus document.
func corpusFilter(include, exclude []string) func(string) bool {
	match := func(patterns []string, rel string) bool {
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, rel); ok {
				return true
			}
		}
		return false
	}
	return func(rel string) bool {
		return match(include, rel) && !match(exclude, rel)
	}
}

// skipFile wraps keep so that the report file itself never triggers a run.
func skipFile(root, abs string, keep func(string) bool) func(string) bool {
	return func(rel string) bool {
		if abs != "" && filepath.Join(root, filepath.FromSlash(rel)) == abs {
			return false
		}
		return keep(rel)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
