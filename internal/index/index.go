// Package index builds the immutable document index the scorer reads.
//
// An Index is built once per corpus snapshot and never mutated afterwards,
// so it can be shared by concurrent scoring workers without locking.
package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Aman-CERP/skillscope/internal/corpus"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/taxonomy"
)

// Document is an indexed skill document.
type Document struct {
	ID           string            `json:"id"`
	Category     taxonomy.Category `json:"category"`
	Title        string            `json:"title"`
	Summary      string            `json:"summary,omitempty"`
	Path         string            `json:"path"`
	Tags         []string          `json:"tags"`
	Technologies []string          `json:"technologies,omitempty"`
	// Terms is the de-duplicated, sorted body_terms set.
	Terms []string `json:"terms"`
	// TermFreq maps each term to its occurrence count in the body.
	TermFreq map[string]int `json:"term_freq"`
	// Length is the number of body terms counted with repetition.
	Length int `json:"length"`
	// BodySize is the estimated token cost of handing the body to an assistant.
	BodySize   int `json:"body_size"`
	CodeBlocks int `json:"code_blocks"`
}

// HasTag reports whether tag is one of the document's tags.
func (d *Document) HasTag(tag string) bool {
	i := sort.SearchStrings(d.Tags, tag)
	return i < len(d.Tags) && d.Tags[i] == tag
}

// Index is an immutable snapshot of the indexed corpus.
type Index struct {
	hash     string
	docs     []*Document
	byID     map[string]*Document
	postings map[string]map[string]int
	tags     map[string][]string
	warnings []serrors.Warning
}

// Build parses raw documents and builds the term and tag indexes.
//
// Documents that fail to parse, or whose id is already taken, are skipped
// and returned as warnings. Zero surviving documents is a fatal corpus error.
func Build(raws []corpus.RawDocument) (*Index, []serrors.Warning, error) {
	sorted := make([]corpus.RawDocument, len(raws))
	copy(sorted, raws)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var warnings []serrors.Warning
	docs := make([]*Document, 0, len(sorted))
	seen := make(map[string]string, len(sorted))

	for _, raw := range sorted {
		sd, err := corpus.Parse(raw)
		if err != nil {
			warnings = append(warnings, serrors.PartialParseWarning("index", raw.Path, err))
			continue
		}
		if first, dup := seen[sd.ID]; dup {
			warnings = append(warnings, serrors.Warning{
				Kind:    serrors.WarnDuplicateID,
				Stage:   "index",
				Path:    raw.Path,
				Message: fmt.Sprintf("id %q already defined by %s", sd.ID, first),
			})
			continue
		}
		seen[sd.ID] = raw.Path
		docs = append(docs, newDocument(sd))
	}

	if len(docs) == 0 {
		return nil, warnings, serrors.CorpusError(serrors.ErrCodeCorpusEmpty, "",
			fmt.Sprintf("no documents parsed out of %d corpus files", len(raws)), nil).
			WithSuggestion("check that the corpus contains markdown documents with a non-empty body")
	}

	idx := assemble(corpus.Hash(raws), docs)
	idx.warnings = warnings
	return idx, warnings, nil
}

func newDocument(sd corpus.SkillDocument) *Document {
	terms := Tokenize(sd.Text)
	tf := make(map[string]int, len(terms))
	for _, t := range terms {
		tf[t]++
	}
	distinct := make([]string, 0, len(tf))
	for t := range tf {
		distinct = append(distinct, t)
	}
	sort.Strings(distinct)

	return &Document{
		ID:           sd.ID,
		Category:     sd.Category,
		Title:        sd.Title,
		Summary:      sd.Summary,
		Path:         sd.Path,
		Tags:         sd.Tags,
		Technologies: sd.Technologies,
		Terms:        distinct,
		TermFreq:     tf,
		Length:       len(terms),
		BodySize:     EstimateTokens(sd.Body),
		CodeBlocks:   sd.CodeBlocks,
	}
}

// assemble derives the lookup structures from docs. Docs are ordered by id.
func assemble(hash string, docs []*Document) *Index {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	idx := &Index{
		hash:     hash,
		docs:     docs,
		byID:     make(map[string]*Document, len(docs)),
		postings: make(map[string]map[string]int),
		tags:     make(map[string][]string),
	}
	for _, d := range docs {
		if d.Tags == nil {
			d.Tags = []string{}
		}
		sort.Strings(d.Tags)
		idx.byID[d.ID] = d
		for term, n := range d.TermFreq {
			p := idx.postings[term]
			if p == nil {
				p = make(map[string]int)
				idx.postings[term] = p
			}
			p[d.ID] = n
		}
		// docs are visited in id order, so tag lists come out sorted
		for _, tag := range d.Tags {
			idx.tags[tag] = append(idx.tags[tag], d.ID)
		}
	}
	return idx
}

// BuildWarnings returns the warnings raised while the index was built.
// They survive a round trip through the snapshot cache.
func (x *Index) BuildWarnings() []serrors.Warning { return x.warnings }

// Hash is the content hash of the corpus the index was built from.
func (x *Index) Hash() string { return x.hash }

// Len returns the number of indexed documents.
func (x *Index) Len() int { return len(x.docs) }

// Doc returns the document with the given id.
func (x *Index) Doc(id string) (*Document, bool) {
	d, ok := x.byID[id]
	return d, ok
}

// Resolve finds a document by id or by library path. "02-frontend/nextjs",
// "frontend/nextjs" and "02-frontend/nextjs/SKILL.md" all name the same
// document.
func (x *Index) Resolve(ref string) (*Document, bool) {
	ref = strings.ToLower(strings.Trim(strings.TrimSpace(ref), "/"))
	if ref == "" {
		return nil, false
	}
	if d, ok := x.byID[ref]; ok {
		return d, true
	}
	ref = strings.TrimSuffix(strings.TrimSuffix(ref, "/skill.md"), ".md")
	if head, rest, ok := strings.Cut(ref, "/"); ok {
		if c, ok := taxonomy.Parse(head); ok {
			if d, ok := x.byID[string(c)+"/"+rest]; ok {
				return d, true
			}
		}
	}
	for _, d := range x.docs {
		p := strings.ToLower(d.Path)
		if p == ref+".md" || p == ref+"/skill.md" {
			return d, true
		}
	}
	return nil, false
}

// Docs returns all documents ordered by id. Callers must not modify them.
func (x *Index) Docs() []*Document { return x.docs }

// Postings returns doc id -> term frequency for term.
func (x *Index) Postings(term string) map[string]int { return x.postings[term] }

// TagPostings returns the sorted ids of documents carrying tag.
func (x *Index) TagPostings(tag string) []string { return x.tags[tag] }

// Tags returns every tag in the index, sorted.
func (x *Index) Tags() []string {
	out := make([]string, 0, len(x.tags))
	for t := range x.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Categories returns the categories represented in the index, sorted.
func (x *Index) Categories() []taxonomy.Category {
	set := make(map[taxonomy.Category]struct{})
	for _, d := range x.docs {
		set[d.Category] = struct{}{}
	}
	out := make([]taxonomy.Category, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CoveredTechnologies returns the union of declared technologies across
// all documents, sorted.
func (x *Index) CoveredTechnologies() []string {
	set := make(map[string]struct{})
	for _, d := range x.docs {
		for _, t := range d.Technologies {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
