// Package gaps reports repository technologies the skill library does not cover.
//
// Every signal of a fingerprint is scored against the index as a query of
// its own. A signal is covered when at least one document matches it as a
// tag or mentions it often enough in the body; otherwise it is a gap and
// gets a nearest-category suggestion.
package gaps

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/Aman-CERP/skillscope/internal/config"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/index"
	"github.com/Aman-CERP/skillscope/internal/scoring"
	"github.com/Aman-CERP/skillscope/internal/signals"
	"github.com/Aman-CERP/skillscope/internal/taxonomy"
)

// Options sets the coverage threshold.
type Options struct {
	// MinTagMatches is the tag matches one document needs to cover a signal.
	MinTagMatches int
	// MinTermMatches is the body occurrences one document needs to cover a signal.
	MinTermMatches int
	// MinConfidence drops weaker signals before detection.
	MinConfidence float64
	// MaxSuggestionDistance bounds the edit distance of category suggestions.
	MaxSuggestionDistance int
}

// DefaultOptions covers a signal with one tag match or two term matches.
func DefaultOptions() Options {
	return Options{MinTagMatches: 1, MinTermMatches: 2, MaxSuggestionDistance: 3}
}

// OptionsFromConfig reads the gaps section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MinTagMatches:         cfg.Gaps.MinTagMatches,
		MinTermMatches:        cfg.Gaps.MinTermMatches,
		MinConfidence:         cfg.Gaps.MinConfidence,
		MaxSuggestionDistance: cfg.Gaps.MaxSuggestionDistance,
	}
}

// Gap is a repository signal no document covers.
type Gap struct {
	Token      string           `json:"token"`
	Confidence float64          `json:"confidence"`
	Sources    []signals.Source `json:"sources"`
	// Suggestion is a heuristic nearest category, never a classification.
	Suggestion *taxonomy.Suggestion `json:"suggested_category,omitempty"`
}

// Covered is a signal with the best document covering it.
type Covered struct {
	Token       string  `json:"token"`
	Confidence  float64 `json:"confidence"`
	DocumentID  string  `json:"document_id"`
	Score       float64 `json:"score"`
	TagMatches  int     `json:"tag_matches"`
	TermMatches int     `json:"term_matches"`
}

// Report is the result of one detection run. Gaps and Covered partition
// the signals that passed the confidence filter.
type Report struct {
	Root      string            `json:"root"`
	ScannedAt time.Time         `json:"scanned_at"`
	Partial   bool              `json:"partial"`
	Gaps      []Gap             `json:"gaps"`
	Covered   []Covered         `json:"covered"`
	Filtered  int               `json:"filtered"`
	Warnings  []serrors.Warning `json:"warnings,omitempty"`
}

// Detector finds gaps. It is safe for concurrent use.
type Detector struct {
	scorer    *scoring.Scorer
	suggester *taxonomy.Suggester
	opts      Options
	logger    *slog.Logger
}

// NewDetector creates a Detector scoring with scorer.
func NewDetector(scorer *scoring.Scorer, opts Options, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		scorer:    scorer,
		suggester: taxonomy.NewSuggester(opts.MaxSuggestionDistance),
		opts:      opts,
		logger:    logger,
	}
}

// Detect classifies every signal of fp as covered or a gap.
func (d *Detector) Detect(ctx context.Context, fp *signals.Fingerprint, idx *index.Index) (*Report, error) {
	if fp == nil || idx == nil {
		return nil, serrors.InternalError("gap detection needs a fingerprint and an index", nil)
	}
	rep := &Report{
		Root:      fp.Root,
		ScannedAt: fp.ScannedAt,
		Partial:   fp.Partial,
		Gaps:      []Gap{},
		Covered:   []Covered{},
		Warnings:  fp.Warnings,
	}

	for _, sig := range fp.Signals {
		if sig.Confidence < d.opts.MinConfidence {
			rep.Filtered++
			continue
		}
		scored, err := d.scorer.Score(ctx, scoring.TokenQuery(sig.Token), nil, idx)
		if err != nil {
			var se *serrors.Error
			if errors.As(err, &se) {
				se.WithStage("gaps").WithDetail("token", sig.Token)
			}
			return nil, err
		}

		if best, ok := d.covering(scored); ok {
			rep.Covered = append(rep.Covered, Covered{
				Token:       sig.Token,
				Confidence:  sig.Confidence,
				DocumentID:  best.ID,
				Score:       best.Score,
				TagMatches:  best.TagMatches,
				TermMatches: best.TermMatches,
			})
			continue
		}

		gap := Gap{Token: sig.Token, Confidence: sig.Confidence, Sources: sig.Sources}
		if sg, ok := d.suggester.Suggest(sig.Token); ok {
			gap.Suggestion = &sg
		}
		rep.Gaps = append(rep.Gaps, gap)
	}

	sort.SliceStable(rep.Gaps, func(i, j int) bool {
		return byConfidence(rep.Gaps[i].Confidence, rep.Gaps[j].Confidence, rep.Gaps[i].Token, rep.Gaps[j].Token)
	})
	sort.SliceStable(rep.Covered, func(i, j int) bool {
		return byConfidence(rep.Covered[i].Confidence, rep.Covered[j].Confidence, rep.Covered[i].Token, rep.Covered[j].Token)
	})

	d.logger.Info("gaps_detected",
		slog.String("root", rep.Root),
		slog.Int("signals", len(fp.Signals)),
		slog.Int("gaps", len(rep.Gaps)),
		slog.Int("covered", len(rep.Covered)),
		slog.Int("filtered", rep.Filtered),
		slog.Bool("partial", rep.Partial))
	return rep, nil
}

// covering returns the highest-ranked document meeting the threshold.
// scored is already in rank order.
func (d *Detector) covering(scored []scoring.ScoredDocument) (scoring.ScoredDocument, bool) {
	for _, s := range scored {
		if d.opts.MinTagMatches > 0 && s.TagMatches >= d.opts.MinTagMatches {
			return s, true
		}
		if d.opts.MinTermMatches > 0 && s.TermMatches >= d.opts.MinTermMatches {
			return s, true
		}
	}
	return scoring.ScoredDocument{}, false
}

func byConfidence(ci, cj float64, ti, tj string) bool {
	if ci != cj {
		return ci > cj
	}
	return ti < tj
}
