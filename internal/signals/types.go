// Package signals extracts a technology fingerprint from a repository.
//
// The extractor walks the repository under depth, file-count, size and
// wall-clock bounds and applies three detection rules in priority order:
// declared dependencies in package manifests, the presence of well-known
// configuration files, and a keyword scan over the head of text files.
// A token detected by several rules keeps the highest confidence.
package signals

import (
	"sort"
	"time"

	serrors "github.com/Aman-CERP/skillscope/internal/errors"
)

// Rule names a detection rule.
type Rule string

const (
	// RuleManifest detects dependencies declared in a package manifest.
	RuleManifest Rule = "manifest"
	// RuleConfig detects well-known configuration files.
	RuleConfig Rule = "config"
	// RuleKeyword detects technology names mentioned in text.
	RuleKeyword Rule = "keyword"
)

// Confidence of each rule.
const (
	ConfidenceManifest = 1.0
	ConfidenceConfig   = 0.7
	ConfidenceKeyword  = 0.3
)

// MaxSources caps the explanation sources kept per signal.
const MaxSources = 5

// Confidence returns the fixed confidence of r.
func (r Rule) Confidence() float64 {
	switch r {
	case RuleManifest:
		return ConfidenceManifest
	case RuleConfig:
		return ConfidenceConfig
	default:
		return ConfidenceKeyword
	}
}

func (r Rule) rank() int {
	switch r {
	case RuleManifest:
		return 0
	case RuleConfig:
		return 1
	default:
		return 2
	}
}

// Source explains where a signal was found.
type Source struct {
	Rule Rule   `json:"rule"`
	Path string `json:"path"`
}

// Signal is one detected technology token.
type Signal struct {
	Token      string   `json:"token"`
	Confidence float64  `json:"confidence"`
	Sources    []Source `json:"sources"`
}

// Stats counts what the walk did.
type Stats struct {
	FilesSeen     int   `json:"files_seen"`
	FilesScanned  int   `json:"files_scanned"`
	FilesSkipped  int   `json:"files_skipped"`
	FilesSampled  int   `json:"files_sampled"`
	FilesDropped  int   `json:"files_dropped"`
	Dirs          int   `json:"dirs"`
	CyclesAvoided int   `json:"cycles_avoided"`
	DepthLimited  int   `json:"depth_limited"`
	Ignored       int   `json:"ignored"`
	DurationMs    int64 `json:"duration_ms"`
}

// Fingerprint is the set of signals detected in one repository.
type Fingerprint struct {
	Root      string            `json:"root"`
	ScannedAt time.Time         `json:"scanned_at"`
	Partial   bool              `json:"partial"`
	Signals   []Signal          `json:"signals"`
	Stats     Stats             `json:"stats"`
	Warnings  []serrors.Warning `json:"warnings,omitempty"`
}

// Get returns the signal for token.
func (f *Fingerprint) Get(token string) (Signal, bool) {
	if f == nil {
		return Signal{}, false
	}
	i := sort.Search(len(f.Signals), func(i int) bool { return f.Signals[i].Token >= token })
	if i < len(f.Signals) && f.Signals[i].Token == token {
		return f.Signals[i], true
	}
	return Signal{}, false
}

// Tokens returns the signal tokens in sorted order.
func (f *Fingerprint) Tokens() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.Signals))
	for i, s := range f.Signals {
		out[i] = s.Token
	}
	return out
}

// NewFingerprint builds a fingerprint from explicit signals, sorting them
// and clamping confidences into [0, 1]. Used by callers that supply
// signals directly instead of scanning.
func NewFingerprint(root string, signals []Signal) *Fingerprint {
	merged := newMerger()
	for _, s := range signals {
		if len(s.Sources) == 0 {
			merged.addConfidence(s.Token, s.Confidence, Source{})
			continue
		}
		for _, src := range s.Sources {
			merged.addConfidence(s.Token, s.Confidence, src)
		}
	}
	return &Fingerprint{Root: root, Signals: merged.signals()}
}

// detection is one raw rule hit produced by a worker.
type detection struct {
	token string
	rule  Rule
	path  string
}
