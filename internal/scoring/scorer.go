// Package scoring ranks indexed skill documents against a query and an
// optional repository fingerprint.
//
// A document's score is the weighted sum of three components:
//
//   - tag overlap: TagWeight per distinct query or fingerprint token equal
//     to one of the document's tags; fingerprint tokens count with their
//     confidence, so a 1.0 signal adds exactly TagWeight
//   - term match: TermWeight times the length-normalized, saturated term
//     frequency of each query term in the body
//   - category prior: CategoryPrior when the query names the document's category
//
// Only documents sharing at least one token with the request are scored.
// Results with a score of zero or less are dropped.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/index"
	"github.com/Aman-CERP/skillscope/internal/signals"
	"github.com/Aman-CERP/skillscope/internal/taxonomy"
)

// Term-frequency saturation constants, as in BM25.
const (
	termK1 = 1.2
	termB  = 0.75
)

// minChunk keeps tiny candidate sets on one goroutine.
const minChunk = 64

// Weights are the score component weights.
type Weights struct {
	Tag           float64 `json:"tag"`
	Term          float64 `json:"term"`
	CategoryPrior float64 `json:"category_prior"`
	ProfilePrior  float64 `json:"profile_prior"`
}

// DefaultWeights returns the uncalibrated default weights.
func DefaultWeights() Weights {
	return Weights{Tag: 2.0, Term: 1.0, CategoryPrior: 0.1, ProfilePrior: 0.5}
}

// ScoredDocument is a document with its relevance score and the evidence
// behind it.
type ScoredDocument struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Category taxonomy.Category `json:"category"`
	Title    string            `json:"title"`
	Path     string            `json:"path"`
	// Tokens is the document's body_size.
	Tokens int `json:"tokens"`
	// MatchedSignals lists "tag:<t>", "term:<t>", "category:<c>" and
	// "profile:essential|important" evidence, sorted.
	MatchedSignals []string `json:"matched_signals"`
	// TagMatches counts distinct tokens matching a tag.
	TagMatches int `json:"tag_matches"`
	// TermMatches is the total occurrence count of query terms in the body.
	// For a compound query it is the count of the least frequent part, so
	// it is zero unless every part occurs.
	TermMatches int `json:"term_matches"`
	// Pinned marks an essential profile document. It is kept even with a
	// zero score and packed first.
	Pinned bool `json:"pinned,omitempty"`
}

// Scorer scores documents. It holds no per-request state and is safe for
// concurrent use.
type Scorer struct {
	weights Weights
	workers int
	logger  *slog.Logger
}

// New creates a Scorer. workers <= 0 means one per CPU.
func New(weights Weights, workers int, logger *slog.Logger) *Scorer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{weights: weights, workers: workers, logger: logger}
}

// tagEvidence is a token that earns tag credit, with its weight factor.
type tagEvidence struct {
	token  string
	factor float64
}

// request is the per-call state shared read-only by the workers.
type request struct {
	q       Query
	tags    []tagEvidence
	avgLen  float64
	boosted map[taxonomy.Category]struct{}
	profile map[string]string
	idx     *index.Index
	weights Weights
}

// Score ranks the documents of idx for q and fp. fp may be nil.
//
// Results are ordered by score descending, then id ascending. The output
// does not depend on the number of workers. Cancellation is checked
// between documents; a cancelled call returns no results.
func (s *Scorer) Score(ctx context.Context, q Query, fp *signals.Fingerprint, idx *index.Index) ([]ScoredDocument, error) {
	if idx == nil {
		return nil, serrors.InternalError("score called without an index", nil)
	}
	req := s.newRequest(q, fp, idx)
	candidates := req.candidates()
	if len(candidates) == 0 {
		return []ScoredDocument{}, nil
	}

	results := make([]ScoredDocument, len(candidates))
	chunk := (len(candidates) + s.workers - 1) / s.workers
	if chunk < minChunk {
		chunk = minChunk
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(candidates); start += chunk {
		end := min(start+chunk, len(candidates))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = req.score(candidates[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, serrors.New(serrors.ErrCodeScoreFailed, "scoring interrupted", err).WithStage("score")
	}

	out := results[:0]
	for _, r := range results {
		if r.Score > 0 || r.Pinned {
			out = append(out, r)
		}
	}
	SortScored(out)

	s.logger.Debug("score_complete",
		slog.Int("candidates", len(candidates)),
		slog.Int("scored", len(out)),
		slog.Int("terms", len(q.Terms)),
		slog.Int("tag_tokens", len(req.tags)))
	return out, nil
}

// SortScored orders by score descending, then id ascending.
func SortScored(docs []ScoredDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].ID < docs[j].ID
	})
}

func (s *Scorer) newRequest(q Query, fp *signals.Fingerprint, idx *index.Index) *request {
	factors := make(map[string]float64, len(q.Tokens))
	for _, t := range q.Tokens {
		factors[t] = 1.0
	}
	if fp != nil {
		for _, sig := range fp.Signals {
			if sig.Confidence > factors[sig.Token] {
				factors[sig.Token] = sig.Confidence
			}
		}
	}
	tags := make([]tagEvidence, 0, len(factors))
	for t, f := range factors {
		tags = append(tags, tagEvidence{token: t, factor: f})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].token < tags[j].token })

	var total int
	for _, d := range idx.Docs() {
		total += d.Length
	}
	avg := 1.0
	if idx.Len() > 0 && total > 0 {
		avg = float64(total) / float64(idx.Len())
	}

	boosted := make(map[taxonomy.Category]struct{}, len(q.Categories))
	for _, c := range q.Categories {
		boosted[c] = struct{}{}
	}
	profile := make(map[string]string, len(q.Essential)+len(q.Important))
	for _, id := range q.Important {
		profile[id] = "important"
	}
	for _, id := range q.Essential {
		profile[id] = "essential"
	}
	return &request{q: q, tags: tags, avgLen: avg, boosted: boosted, profile: profile, idx: idx, weights: s.weights}
}

// candidates returns the documents sharing a token with the request,
// belonging to a pinned category or listed by the profile, ordered by id.
func (r *request) candidates() []*index.Document {
	set := make(map[string]struct{})
	for _, t := range r.tags {
		for _, id := range r.idx.TagPostings(t.token) {
			set[id] = struct{}{}
		}
	}
	for _, term := range r.q.Terms {
		for id := range r.idx.Postings(term) {
			set[id] = struct{}{}
		}
	}
	for id := range r.profile {
		set[id] = struct{}{}
	}
	if len(r.q.Pinned) > 0 {
		pinned := make(map[taxonomy.Category]struct{}, len(r.q.Pinned))
		for _, c := range r.q.Pinned {
			pinned[c] = struct{}{}
		}
		for _, d := range r.idx.Docs() {
			if _, ok := pinned[d.Category]; ok {
				set[d.ID] = struct{}{}
			}
		}
	}

	out := make([]*index.Document, 0, len(set))
	for id := range set {
		if d, ok := r.idx.Doc(id); ok {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// score computes one document's score. Components are summed in a fixed
// order over sorted inputs so the float result is reproducible.
func (r *request) score(d *index.Document) ScoredDocument {
	sd := ScoredDocument{
		ID:       d.ID,
		Category: d.Category,
		Title:    d.Title,
		Path:     d.Path,
		Tokens:   d.BodySize,
	}
	var matched []string

	var tagScore float64
	for _, t := range r.tags {
		if t.factor <= 0 || !d.HasTag(t.token) {
			continue
		}
		tagScore += r.weights.Tag * t.factor
		sd.TagMatches++
		matched = append(matched, "tag:"+t.token)
	}

	var termScore float64
	if d.Length > 0 {
		norm := termK1 * (1 - termB + termB*float64(d.Length)/r.avgLen)
		least := -1
		for _, term := range r.q.Terms {
			tf := d.TermFreq[term]
			if least < 0 || tf < least {
				least = tf
			}
			if tf == 0 {
				continue
			}
			sd.TermMatches += tf
			termScore += r.weights.Term * float64(tf) * (termK1 + 1) / (float64(tf) + norm)
			matched = append(matched, "term:"+term)
		}
		if r.q.Compound && least >= 0 {
			sd.TermMatches = least
		}
	}

	var prior float64
	if _, ok := r.boosted[d.Category]; ok {
		prior = r.weights.CategoryPrior
		matched = append(matched, fmt.Sprintf("category:%s", d.Category))
	}

	var profile float64
	if role, ok := r.profile[d.ID]; ok {
		profile = r.weights.ProfilePrior
		sd.Pinned = role == "essential"
		matched = append(matched, "profile:"+role)
	}

	sd.Score = tagScore + termScore + prior + profile
	sort.Strings(matched)
	if matched == nil {
		matched = []string{}
	}
	sd.MatchedSignals = matched
	return sd
}
