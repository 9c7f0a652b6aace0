package signals

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/skillscope/internal/config"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
)

// Options bounds a scan.
type Options struct {
	MaxDepth       int
	MaxFiles       int
	MaxFileSize    int64
	SampleBytes    int
	Timeout        time.Duration
	Workers        int
	Exclude        []string
	FollowSymlinks bool

	// RespectGitignore prunes paths matched by .gitignore files in the tree.
	RespectGitignore bool
}

// DefaultOptions returns the scan bounds used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxDepth:    12,
		MaxFiles:    20000,
		MaxFileSize: 1 << 20,
		SampleBytes: 16 << 10,
		Timeout:     30 * time.Second,
	}
}

// OptionsFromConfig converts the scan section of the configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxDepth:       cfg.Scan.MaxDepth,
		MaxFiles:       cfg.Scan.MaxFiles,
		MaxFileSize:    cfg.Scan.MaxFileSize,
		SampleBytes:    cfg.Scan.SampleBytes,
		Timeout:        cfg.ScanTimeout(),
		Workers:        cfg.Scan.Workers,
		Exclude:        cfg.Scan.Exclude,
		FollowSymlinks: cfg.Scan.FollowSymlinks,

		RespectGitignore: cfg.Scan.RespectGitignore,
	}
}

// Extractor scans repositories for technology signals. It is safe for
// concurrent use; each Scan keeps its own state.
type Extractor struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	// walkDone and beforeUnit let tests order the walker against the workers.
	walkDone   func()
	beforeUnit func()
}

// NewExtractor creates an Extractor. Zero-valued bounds fall back to
// DefaultOptions; a zero Timeout disables the wall-clock limit.
func NewExtractor(opts Options, logger *slog.Logger) *Extractor {
	def := DefaultOptions()
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = def.MaxDepth
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = def.MaxFiles
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = def.MaxFileSize
	}
	if opts.SampleBytes <= 0 {
		opts.SampleBytes = def.SampleBytes
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{opts: opts, logger: logger, now: time.Now}
}

// unit is one file handed to a worker.
type unit struct {
	rel  string
	abs  string
	size int64
}

// workerResult is a worker's private accumulation, merged after the pool drains.
type workerResult struct {
	detections []detection
	scanned    int
	skipped    int
	sampled    int
	dropped    int
}

// Scan walks root and returns its fingerprint.
//
// A root that is missing, not a directory or unreadable is a fatal
// ScanError. Hitting the file cap or the timeout yields a partial
// fingerprint with a warning and no error. Cancellation of ctx by the
// caller returns the partial fingerprint together with a ScanError.
func (e *Extractor) Scan(ctx context.Context, root string) (*Fingerprint, error) {
	start := time.Now()
	abs, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}
	fp := &Fingerprint{Root: abs, ScannedAt: e.now().UTC()}

	scanCtx, cancel := ctx, context.CancelFunc(func() {})
	if e.opts.Timeout > 0 {
		scanCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
	}
	defer cancel()

	units := make(chan unit, e.opts.Workers*4)
	w := newWalker(e.opts, units, e.logger)
	results := make([]workerResult, e.opts.Workers)

	g, gctx := errgroup.WithContext(scanCtx)
	g.Go(func() error {
		defer close(units)
		err := w.run(gctx, abs)
		if e.walkDone != nil {
			e.walkDone()
		}
		return err
	})
	for i := range results {
		r := &results[i]
		g.Go(func() error {
			for u := range units {
				if e.beforeUnit != nil {
					e.beforeUnit()
				}
				// queued units are drained but not inspected once the scan is
				// interrupted; a unit finished after that is discarded too
				if gctx.Err() != nil {
					r.dropped++
					continue
				}
				dets, outcome := e.inspect(u)
				if gctx.Err() != nil {
					r.dropped++
					continue
				}
				r.detections = append(r.detections, dets...)
				switch outcome {
				case outcomeScanned:
					r.scanned++
				case outcomeSampled:
					r.scanned++
					r.sampled++
				case outcomeSkipped:
					r.skipped++
				}
			}
			return nil
		})
	}
	waitErr := g.Wait()

	m := newMerger()
	fp.Stats = w.stats
	for _, r := range results {
		for _, d := range r.detections {
			m.add(d)
		}
		fp.Stats.FilesScanned += r.scanned
		fp.Stats.FilesSkipped += r.skipped
		fp.Stats.FilesSampled += r.sampled
		fp.Stats.FilesDropped += r.dropped
	}
	fp.Signals = m.signals()
	fp.Stats.DurationMs = time.Since(start).Milliseconds()
	fp.Warnings = w.warnings()

	// The walker may finish before the deadline while workers still drop
	// queued files, so an interruption is any error or any dropped file.
	interrupted := waitErr != nil || fp.Stats.FilesDropped > 0
	timedOut := errors.Is(waitErr, context.DeadlineExceeded) ||
		(waitErr == nil && errors.Is(scanCtx.Err(), context.DeadlineExceeded))

	switch {
	case !interrupted:
	case ctx.Err() != nil:
		fp.Partial = true
		fp.Warnings = append(fp.Warnings, serrors.Warning{
			Kind:    serrors.WarnScanTimeout,
			Stage:   "scan",
			Path:    abs,
			Message: fmt.Sprintf("scan cancelled with %d files unscanned; fingerprint is partial", fp.Stats.FilesDropped),
		})
		return fp, serrors.ScanError(serrors.ErrCodeScanCancelled, abs, "scan cancelled", ctx.Err())
	case timedOut:
		fp.Partial = true
		fp.Warnings = append(fp.Warnings, serrors.Warning{
			Kind:    serrors.WarnScanTimeout,
			Stage:   "scan",
			Path:    abs,
			Message: fmt.Sprintf("scan exceeded %s after %d files, %d unscanned; fingerprint is partial",
				e.opts.Timeout, fp.Stats.FilesScanned, fp.Stats.FilesDropped),
		})
		e.logger.Warn("scan_timeout",
			slog.String("root", abs),
			slog.Duration("timeout", e.opts.Timeout),
			slog.Int("files_scanned", fp.Stats.FilesScanned),
			slog.Int("files_dropped", fp.Stats.FilesDropped))
	default:
		return fp, serrors.ScanError(serrors.ErrCodeRepoUnreadable, abs, "scan failed", waitErr)
	}
	if w.truncated {
		fp.Partial = true
	}

	e.logger.Info("scan_complete",
		slog.String("root", abs),
		slog.Int("signals", len(fp.Signals)),
		slog.Int("files_scanned", fp.Stats.FilesScanned),
		slog.Int("files_skipped", fp.Stats.FilesSkipped),
		slog.Bool("partial", fp.Partial),
		slog.Int64("duration_ms", fp.Stats.DurationMs))
	return fp, nil
}

func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", serrors.ScanError(serrors.ErrCodeRepoNotFound, root, "invalid repository path", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", serrors.ScanError(serrors.ErrCodeRepoNotFound, abs, "repository not found", err).
				WithSuggestion("check the --repo path")
		}
		return "", serrors.ScanError(serrors.ErrCodeRepoUnreadable, abs, "repository is not accessible", err)
	}
	if !info.IsDir() {
		return "", serrors.ScanError(serrors.ErrCodeRepoNotDir, abs, "repository path is not a directory", nil)
	}
	f, err := os.Open(abs)
	if err != nil {
		return "", serrors.ScanError(serrors.ErrCodeRepoUnreadable, abs, "repository is not readable", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return "", serrors.ScanError(serrors.ErrCodeRepoUnreadable, abs, "repository is not readable", err)
	}
	return abs, nil
}

type outcome int

const (
	outcomeIgnored outcome = iota
	outcomeScanned
	outcomeSampled
	outcomeSkipped
)

// inspect applies every rule that can match u.
func (e *Extractor) inspect(u unit) ([]detection, outcome) {
	base := path.Base(u.rel)
	manifest, isManifest := matchManifest(base)
	configs := matchConfig(u.rel)
	lang := languageToken(u.rel)
	_, isText := textExtensions[strings.ToLower(path.Ext(u.rel))]

	needsContent := isManifest
	hasPresence := lang != ""
	for _, r := range configs {
		if r.inspect != nil {
			needsContent = true
		}
		if len(r.tokens) > 0 {
			hasPresence = true
		}
	}
	if !needsContent && !hasPresence && !isText {
		return nil, outcomeIgnored
	}

	limit := int64(e.opts.SampleBytes)
	if needsContent {
		limit = e.opts.MaxFileSize
	}
	data, err := readHead(u.abs, limit)
	if err != nil {
		e.logger.Debug("scan_file_unreadable", slog.String("path", u.rel), slog.String("error", err.Error()))
		return nil, outcomeSkipped
	}
	if isBinary(data) {
		e.logger.Debug("scan_file_binary", slog.String("path", u.rel))
		return nil, outcomeSkipped
	}

	var dets []detection
	emit := func(rule Rule, tokens ...string) {
		for _, t := range tokens {
			dets = append(dets, detection{token: t, rule: rule, path: u.rel})
		}
	}

	if lang != "" {
		emit(RuleConfig, lang)
	}
	for _, r := range configs {
		emit(RuleConfig, r.tokens...)
		if r.inspect != nil {
			emit(RuleConfig, r.inspect(data)...)
		}
	}
	if isManifest {
		tokens, err := manifestTokens(manifest, base, data)
		if err != nil {
			e.logger.Debug("manifest_parse_failed", slog.String("path", u.rel), slog.String("error", err.Error()))
		}
		emit(RuleManifest, tokens...)
	}
	if isText {
		sample := data
		if len(sample) > e.opts.SampleBytes {
			sample = sample[:e.opts.SampleBytes]
		}
		emit(RuleKeyword, scanKeywords(sample)...)
	}

	if u.size > e.opts.MaxFileSize {
		return dets, outcomeSampled
	}
	return dets, outcomeScanned
}

// readHead reads at most limit bytes from the start of the file.
func readHead(name string, limit int64) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, limit))
}
