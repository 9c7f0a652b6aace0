// Package engine runs retrieval and gap-analysis requests end to end.
//
// A request moves through a fixed pipeline. Retrieve optionally scans a
// repository, then scores and packs. AnalyzeGaps scans and detects gaps.
// Any fatal error moves the request to Failed with the stage that raised
// it; nothing is retried.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Aman-CERP/skillscope/internal/config"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/gaps"
	"github.com/Aman-CERP/skillscope/internal/index"
	"github.com/Aman-CERP/skillscope/internal/packer"
	"github.com/Aman-CERP/skillscope/internal/scoring"
	"github.com/Aman-CERP/skillscope/internal/signals"
	"github.com/Aman-CERP/skillscope/internal/store"
	"github.com/Aman-CERP/skillscope/internal/taxonomy"
)

// Mode selects the pipeline.
type Mode int

const (
	ModeRetrieve Mode = iota
	ModeAnalyzeGaps
)

func (m Mode) String() string {
	switch m {
	case ModeRetrieve:
		return "retrieve"
	case ModeAnalyzeGaps:
		return "analyze_gaps"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// State is the terminal state of a request.
type State string

const (
	StateRetrieve    State = "retrieve"
	StateAnalyzeGaps State = "analyze_gaps"
	StateFailed      State = "failed"
)

// Pipeline stages, as recorded on failures.
const (
	StageCorpus   = "corpus"
	StageValidate = "validate"
	StageScan     = "scan"
	StageScore    = "score"
	StagePack     = "pack"
	StageGaps     = "gaps"
)

// Request is one engine invocation.
type Request struct {
	Mode  Mode
	Query string
	// Categories pins categories in addition to "category:" words in Query.
	Categories []taxonomy.Category
	// Repo is the repository to fingerprint. Optional for Retrieve.
	Repo   string
	Budget int
	// Profile selects a configured project type. Retrieve only.
	Profile string
	// MinConfidence overrides the configured gap confidence filter when set.
	MinConfidence *float64
}

// Result is the outcome of Run. Exactly one of Pack and Gaps is set on
// success; on failure Err and Stage are set and Fingerprint may still hold
// a partial scan.
type Result struct {
	State       State                `json:"state"`
	Stage       string               `json:"stage,omitempty"`
	Query       *scoring.Query       `json:"query,omitempty"`
	Fingerprint *signals.Fingerprint `json:"fingerprint,omitempty"`
	Pack        *packer.ContextPack  `json:"pack,omitempty"`
	Gaps        *gaps.Report         `json:"gaps,omitempty"`
	Warnings    []serrors.Warning    `json:"warnings,omitempty"`
	CorpusHash  string               `json:"corpus_hash,omitempty"`
	Duration    time.Duration        `json:"-"`
	Err         error                `json:"-"`
}

// ExitCode maps the result to the process exit code.
func (r *Result) ExitCode() int {
	return serrors.ExitCode(r.Err)
}

// Engine wires the store, extractor, scorer, packer and gap detector.
// It is safe for concurrent use.
type Engine struct {
	cfg       *config.Config
	store     *store.Store
	extractor *signals.Extractor
	scorer    *scoring.Scorer
	detector  *gaps.Detector
	packOpts  packer.Options
	logger    *slog.Logger

	loadMu       sync.Mutex
	loadWarnings []serrors.Warning
}

// New creates an Engine. The store is loaded lazily on the first request.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	weights := scoring.Weights{
		Tag:           cfg.Scoring.TagWeight,
		Term:          cfg.Scoring.TermWeight,
		CategoryPrior: cfg.Scoring.CategoryPrior,
		ProfilePrior:  cfg.Scoring.ProfilePrior,
	}
	scorer := scoring.New(weights, cfg.Scoring.Workers, logger)
	return &Engine{
		cfg:       cfg,
		store:     st,
		extractor: signals.NewExtractor(signals.OptionsFromConfig(cfg), logger),
		scorer:    scorer,
		detector:  gaps.NewDetector(scorer, gaps.OptionsFromConfig(cfg), logger),
		packOpts:  packer.Options{Diversity: cfg.Packer.Diversity, DensityMargin: cfg.Packer.DensityMargin},
		logger:    logger,
	}
}

// Store returns the engine's document store.
func (e *Engine) Store() *store.Store { return e.store }

// Run executes req. It never panics on bad input; every failure is
// reported through Result.Err.
func (e *Engine) Run(ctx context.Context, req Request) *Result {
	start := time.Now()
	res := &Result{}
	defer func() {
		res.Duration = time.Since(start)
		attrs := []any{
			slog.String("mode", req.Mode.String()),
			slog.String("state", string(res.State)),
			slog.Int64("duration_ms", res.Duration.Milliseconds()),
		}
		if res.Err != nil {
			attrs = append(attrs, slog.String("stage", res.Stage), slog.String("error", res.Err.Error()))
			e.logger.Warn("request_failed", attrs...)
			return
		}
		e.logger.Info("request_complete", attrs...)
	}()

	if err := e.validate(req); err != nil {
		return fail(res, StageValidate, err)
	}

	idx, loadWarnings, err := e.snapshot(ctx)
	if err != nil {
		return fail(res, StageCorpus, err)
	}
	res.CorpusHash = idx.Hash()
	res.Warnings = append(res.Warnings, loadWarnings...)

	switch req.Mode {
	case ModeRetrieve:
		return e.retrieve(ctx, req, idx, res)
	case ModeAnalyzeGaps:
		return e.analyzeGaps(ctx, req, idx, res)
	default:
		return fail(res, StageValidate, serrors.ValidationError(fmt.Sprintf("unknown mode %s", req.Mode), nil))
	}
}

func (e *Engine) retrieve(ctx context.Context, req Request, idx *index.Index, res *Result) *Result {
	q := scoring.ParseQuery(req.Query, req.Categories...)
	if req.Profile != "" {
		p, warnings := e.resolveProfile(req.Profile, idx)
		q = q.WithProfile(p)
		res.Warnings = append(res.Warnings, warnings...)
	}
	res.Query = &q

	var fp *signals.Fingerprint
	if req.Repo != "" {
		var err error
		if fp, err = e.scan(ctx, req.Repo, res); err != nil {
			return fail(res, StageScan, err)
		}
	}
	if q.Empty() && fp == nil {
		return fail(res, StageValidate, serrors.New(serrors.ErrCodeQueryEmpty,
			"query has no searchable terms", nil).
			WithSuggestion("use more specific words, or pass --repo to retrieve by repository signals"))
	}

	scored, err := e.scorer.Score(ctx, q, fp, idx)
	if err != nil {
		return fail(res, StageScore, err)
	}
	pack, err := packer.Pack(scored, req.Budget, e.packOpts)
	if err != nil {
		return fail(res, StagePack, err)
	}
	res.Pack = pack
	res.Warnings = append(res.Warnings, pack.Warnings...)
	res.State = StateRetrieve
	return res
}

func (e *Engine) analyzeGaps(ctx context.Context, req Request, idx *index.Index, res *Result) *Result {
	fp, err := e.scan(ctx, req.Repo, res)
	if err != nil {
		return fail(res, StageScan, err)
	}

	detector := e.detector
	if req.MinConfidence != nil {
		opts := gaps.OptionsFromConfig(e.cfg)
		opts.MinConfidence = *req.MinConfidence
		detector = gaps.NewDetector(e.scorer, opts, e.logger)
	}
	report, err := detector.Detect(ctx, fp, idx)
	if err != nil {
		return fail(res, StageGaps, err)
	}
	res.Gaps = report
	res.State = StateAnalyzeGaps
	return res
}

// scan fingerprints repo. A partial fingerprint is attached to res even
// when the scan fails.
func (e *Engine) scan(ctx context.Context, repo string, res *Result) (*signals.Fingerprint, error) {
	fp, err := e.extractor.Scan(ctx, repo)
	if fp != nil {
		res.Fingerprint = fp
		res.Warnings = append(res.Warnings, fp.Warnings...)
	}
	return fp, err
}

// snapshot returns the current index and its load warnings, loading the
// store on first use.
func (e *Engine) snapshot(ctx context.Context) (*index.Index, []serrors.Warning, error) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if idx := e.store.Snapshot(); idx != nil {
		return idx, e.loadWarnings, nil
	}
	lr, err := e.store.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	e.loadWarnings = lr.Warnings
	return lr.Index, lr.Warnings, nil
}

// Reload rebuilds the store snapshot. In-flight requests keep the old one.
func (e *Engine) Reload(ctx context.Context) (*store.LoadResult, error) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	lr, err := e.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	e.loadWarnings = lr.Warnings
	return lr, nil
}

// resolveProfile maps the named profile's ids onto documents of idx.
// Ids with no document are reported and left out.
func (e *Engine) resolveProfile(name string, idx *index.Index) (scoring.Profile, []serrors.Warning) {
	pc, _ := e.cfg.Profile(name)
	p := scoring.Profile{Name: name, Tags: pc.Tags}
	var warnings []serrors.Warning
	resolve := func(refs []string) []string {
		var ids []string
		for _, ref := range refs {
			d, ok := idx.Resolve(ref)
			if !ok {
				warnings = append(warnings, serrors.Warning{
					Kind:    serrors.WarnProfileUnresolved,
					Stage:   StageScore,
					Path:    ref,
					Message: fmt.Sprintf("profile %s lists a document that is not in the library", name),
				})
				continue
			}
			ids = append(ids, d.ID)
		}
		return ids
	}
	p.Essential = resolve(pc.Essential)
	p.Important = resolve(pc.Important)
	return p, warnings
}

func (e *Engine) validate(req Request) error {
	switch req.Mode {
	case ModeRetrieve:
		if req.Budget <= 0 {
			return serrors.New(serrors.ErrCodeInvalidBudget,
				fmt.Sprintf("budget must be a positive token count, got %d", req.Budget), nil).
				WithSuggestion("pass --budget with a value greater than zero")
		}
		if req.Profile != "" {
			if _, ok := e.cfg.Profile(req.Profile); !ok {
				err := serrors.ValidationError(fmt.Sprintf("unknown profile %q", req.Profile), nil)
				if names := e.cfg.ProfileNames(); len(names) > 0 {
					return err.WithSuggestion("configured profiles: " + strings.Join(names, ", "))
				}
				return err.WithSuggestion("define it under profiles: in .skillscope.yaml")
			}
		}
		if strings.TrimSpace(req.Query) == "" && req.Repo == "" && len(req.Categories) == 0 && req.Profile == "" {
			return serrors.New(serrors.ErrCodeQueryEmpty, "retrieve needs a query or a repository", nil).
				WithSuggestion("pass --query, --repo, --profile, or a combination")
		}
	case ModeAnalyzeGaps:
		if req.Profile != "" {
			return serrors.ValidationError("--profile applies to retrieve only", nil)
		}
		if strings.TrimSpace(req.Repo) == "" {
			return serrors.ValidationError("analyze-gaps needs a repository", nil).
				WithSuggestion("pass --repo <path>")
		}
	}
	if req.MinConfidence != nil && (*req.MinConfidence < 0 || *req.MinConfidence > 1) {
		return serrors.ValidationError(fmt.Sprintf("min confidence must be between 0 and 1, got %g", *req.MinConfidence), nil)
	}
	return nil
}

// fail moves res to Failed. The error's own stage wins over the caller's
// so a scoring failure inside gap detection still reads as such.
func fail(res *Result, stage string, err error) *Result {
	var se *serrors.Error
	if errors.As(err, &se) && se.Stage == "" {
		se.WithStage(stage)
	}
	if errors.As(err, &se) {
		stage = se.Stage
	}
	res.State = StateFailed
	res.Stage = stage
	res.Err = err
	return res
}
