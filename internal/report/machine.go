package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/Aman-CERP/skillscope/internal/engine"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/gaps"
	"github.com/Aman-CERP/skillscope/internal/signals"
	"github.com/Aman-CERP/skillscope/internal/taxonomy"
)

// documentRecord is one packed document.
type documentRecord struct {
	Type           string            `json:"type,omitempty"`
	Rank           int               `json:"rank"`
	ID             string            `json:"id"`
	Score          float64           `json:"score"`
	Tokens         int               `json:"tokens"`
	Category       taxonomy.Category `json:"category"`
	Title          string            `json:"title"`
	Path           string            `json:"path"`
	MatchedSignals []string          `json:"matched_signals"`
	Pinned         bool              `json:"pinned,omitempty"`
}

type fingerprintSummary struct {
	Root    string           `json:"root"`
	Partial bool             `json:"partial"`
	Signals []signals.Signal `json:"signals"`
	Stats   signals.Stats    `json:"stats"`
}

type retrieveDoc struct {
	Mode              string              `json:"mode"`
	Query             string              `json:"query"`
	Profile           string              `json:"profile,omitempty"`
	Budget            int                 `json:"budget"`
	TotalTokens       int                 `json:"total_tokens"`
	Candidates        int                 `json:"candidates"`
	TopExceededBudget bool                `json:"top_exceeded_budget"`
	Records           []documentRecord    `json:"records"`
	Fingerprint       *fingerprintSummary `json:"fingerprint,omitempty"`
	Warnings          []serrors.Warning   `json:"warnings"`
}

type retrieveSummary struct {
	Type              string            `json:"type"`
	Mode              string            `json:"mode"`
	Query             string            `json:"query"`
	Profile           string            `json:"profile,omitempty"`
	Budget            int               `json:"budget"`
	TotalTokens       int               `json:"total_tokens"`
	Candidates        int               `json:"candidates"`
	Documents         int               `json:"documents"`
	TopExceededBudget bool              `json:"top_exceeded_budget"`
	Signals           []string          `json:"signals,omitempty"`
	Warnings          []serrors.Warning `json:"warnings"`
}

type gapsDoc struct {
	Mode      string            `json:"mode"`
	Root      string            `json:"root"`
	ScannedAt *time.Time        `json:"scanned_at,omitempty"`
	Partial   bool              `json:"partial"`
	Gaps      []gaps.Gap        `json:"gaps"`
	Covered   []gaps.Covered    `json:"covered"`
	Filtered  int               `json:"filtered"`
	Stats     *signals.Stats    `json:"stats,omitempty"`
	Warnings  []serrors.Warning `json:"warnings"`
}

type gapRecord struct {
	Type string `json:"type"`
	gaps.Gap
}

type coveredRecord struct {
	Type string `json:"type"`
	gaps.Covered
}

type warningRecord struct {
	Type string `json:"type"`
	serrors.Warning
}

type gapsSummary struct {
	Type      string     `json:"type"`
	Mode      string     `json:"mode"`
	Root      string     `json:"root"`
	ScannedAt *time.Time `json:"scanned_at,omitempty"`
	Partial   bool       `json:"partial"`
	Gaps      int        `json:"gaps"`
	Covered   int        `json:"covered"`
	Filtered  int        `json:"filtered"`
}

func documentRecords(res *engine.Result, typ string) []documentRecord {
	out := make([]documentRecord, 0, len(res.Pack.Entries))
	for i, e := range res.Pack.Entries {
		out = append(out, documentRecord{
			Type:           typ,
			Rank:           i + 1,
			ID:             e.ID,
			Score:          e.Score,
			Tokens:         e.Tokens,
			Category:       e.Category,
			Title:          e.Title,
			Path:           e.Path,
			MatchedSignals: e.MatchedSignals,
			Pinned:         e.Pinned,
		})
	}
	return out
}

func queryText(res *engine.Result) string {
	if res.Query == nil {
		return ""
	}
	return res.Query.Text
}

func profileName(res *engine.Result) string {
	if res.Query == nil {
		return ""
	}
	return res.Query.Profile
}

func warnings(res *engine.Result) []serrors.Warning {
	if res.Warnings == nil {
		return []serrors.Warning{}
	}
	return res.Warnings
}

func stats(fp *signals.Fingerprint, opts Options) signals.Stats {
	s := fp.Stats
	if opts.NoTimestamps {
		s.DurationMs = 0
	}
	return s
}

func scannedAt(t time.Time, opts Options) *time.Time {
	if opts.NoTimestamps || t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func retrieveJSON(w io.Writer, res *engine.Result, opts Options) error {
	doc := retrieveDoc{
		Mode:              string(engine.StateRetrieve),
		Query:             queryText(res),
		Profile:           profileName(res),
		Budget:            res.Pack.Budget,
		TotalTokens:       res.Pack.TotalTokens,
		Candidates:        res.Pack.Candidates,
		TopExceededBudget: res.Pack.TopExceededBudget,
		Records:           documentRecords(res, ""),
		Warnings:          warnings(res),
	}
	if fp := res.Fingerprint; fp != nil {
		doc.Fingerprint = &fingerprintSummary{Root: fp.Root, Partial: fp.Partial, Signals: fp.Signals, Stats: stats(fp, opts)}
	}
	return writeJSON(w, doc)
}

func retrieveJSONL(w io.Writer, res *engine.Result, _ Options) error {
	enc := json.NewEncoder(w)
	for _, r := range documentRecords(res, "document") {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return enc.Encode(retrieveSummary{
		Type:              "summary",
		Mode:              string(engine.StateRetrieve),
		Query:             queryText(res),
		Profile:           profileName(res),
		Budget:            res.Pack.Budget,
		TotalTokens:       res.Pack.TotalTokens,
		Candidates:        res.Pack.Candidates,
		Documents:         len(res.Pack.Entries),
		TopExceededBudget: res.Pack.TopExceededBudget,
		Signals:           res.Fingerprint.Tokens(),
		Warnings:          warnings(res),
	})
}

func gapsJSON(w io.Writer, res *engine.Result, opts Options) error {
	r := res.Gaps
	doc := gapsDoc{
		Mode:      string(engine.StateAnalyzeGaps),
		Root:      r.Root,
		ScannedAt: scannedAt(r.ScannedAt, opts),
		Partial:   r.Partial,
		Gaps:      r.Gaps,
		Covered:   r.Covered,
		Filtered:  r.Filtered,
		Warnings:  warnings(res),
	}
	if res.Fingerprint != nil {
		s := stats(res.Fingerprint, opts)
		doc.Stats = &s
	}
	return writeJSON(w, doc)
}

func gapsJSONL(w io.Writer, res *engine.Result, opts Options) error {
	enc := json.NewEncoder(w)
	r := res.Gaps
	for _, g := range r.Gaps {
		if err := enc.Encode(gapRecord{Type: "gap", Gap: g}); err != nil {
			return err
		}
	}
	for _, c := range r.Covered {
		if err := enc.Encode(coveredRecord{Type: "covered", Covered: c}); err != nil {
			return err
		}
	}
	for _, wn := range res.Warnings {
		if err := enc.Encode(warningRecord{Type: "warning", Warning: wn}); err != nil {
			return err
		}
	}
	return enc.Encode(gapsSummary{
		Type:      "summary",
		Mode:      string(engine.StateAnalyzeGaps),
		Root:      r.Root,
		ScannedAt: scannedAt(r.ScannedAt, opts),
		Partial:   r.Partial,
		Gaps:      len(r.Gaps),
		Covered:   len(r.Covered),
		Filtered:  r.Filtered,
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
