package scoring

import (
	"sort"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/skillscope/internal/corpus"
	"github.com/Aman-CERP/skillscope/internal/index"
	"github.com/Aman-CERP/skillscope/internal/taxonomy"
)

// categoryPrefix pins a category explicitly: "category:messaging".
const categoryPrefix = "category:"

// queryCacheSize bounds the memoized parsed queries. Gap detection and
// watch mode re-parse the same signal tokens on every run.
const queryCacheSize = 2048

var queryCache, _ = lru.New[string, Query](queryCacheSize)

// Query is a parsed retrieval request. Slices are shared with the parse
// cache and must not be modified.
type Query struct {
	Text string `json:"text"`
	// Terms are the distinct body terms of Text, as the index tokenizes them.
	Terms []string `json:"terms"`
	// Tokens are the distinct tag candidates: normalized words of Text and
	// hyphen-joined adjacent pairs.
	Tokens []string `json:"tokens"`
	// Categories are every category Text names; matching documents get the prior.
	Categories []taxonomy.Category `json:"categories,omitempty"`
	// Pinned are categories named explicitly; their documents are candidates
	// even without token overlap.
	Pinned []taxonomy.Category `json:"pinned,omitempty"`
	// Compound marks Terms as the parts of one hyphenated token. A document
	// matches it only as often as its least frequent part occurs.
	Compound bool `json:"compound,omitempty"`

	// Profile names the project type the request was made for.
	Profile string `json:"profile,omitempty"`
	// Essential are document ids packed ahead of every other candidate.
	Essential []string `json:"essential,omitempty"`
	// Important are document ids that are candidates with the profile prior.
	Important []string `json:"important,omitempty"`
}

// Profile is a project type resolved against an index: Essential and
// Important hold document ids, Tags are tag tokens.
type Profile struct {
	Name      string
	Essential []string
	Important []string
	Tags      []string
}

// Empty reports whether the query carries no evidence at all.
func (q Query) Empty() bool {
	return len(q.Terms) == 0 && len(q.Tokens) == 0 && len(q.Pinned) == 0 &&
		len(q.Essential) == 0 && len(q.Important) == 0
}

// WithProfile returns a copy of q carrying p. Profile tags join the tag
// tokens; an id listed as both essential and important is essential.
func (q Query) WithProfile(p Profile) Query {
	tokens := make(map[string]struct{}, len(q.Tokens)+len(p.Tags))
	for _, t := range q.Tokens {
		tokens[t] = struct{}{}
	}
	for _, t := range p.Tags {
		if t = corpus.NormalizeTag(t); t != "" {
			tokens[t] = struct{}{}
		}
	}

	essential := make(map[string]struct{}, len(p.Essential))
	for _, id := range p.Essential {
		essential[id] = struct{}{}
	}
	important := make(map[string]struct{}, len(p.Important))
	for _, id := range p.Important {
		if _, ok := essential[id]; !ok {
			important[id] = struct{}{}
		}
	}

	out := q
	out.Tokens = sortedSet(tokens)
	out.Profile = p.Name
	out.Essential = sortedSet(essential)
	out.Important = sortedSet(important)
	return out
}

// ParseQuery parses free text into terms, tag tokens and categories.
// pinned categories (for example from a --category flag) are added to the
// ones named with the "category:" prefix.
func ParseQuery(text string, pinned ...taxonomy.Category) Query {
	key := text
	for _, c := range pinned {
		key += "\x00" + string(c)
	}
	if q, ok := queryCache.Get(key); ok {
		return q
	}
	q := parseQuery(text, pinned)
	queryCache.Add(key, q)
	return q
}

func parseQuery(text string, pinned []taxonomy.Category) Query {
	q := Query{Text: text}
	cats := make(map[taxonomy.Category]struct{})
	pins := make(map[taxonomy.Category]struct{})
	for _, c := range pinned {
		if c.Valid() {
			pins[c] = struct{}{}
		}
	}

	tokens := make(map[string]struct{})
	var words []string
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(`,;()"'`+"`", r)
	})
	for _, f := range fields {
		if strings.HasPrefix(strings.ToLower(f), categoryPrefix) {
			if c, ok := taxonomy.Parse(f[len(categoryPrefix):]); ok {
				pins[c] = struct{}{}
			}
			continue
		}
		tok := corpus.NormalizeTag(f)
		if len(tok) < index.MinTokenLength || index.IsStopWord(tok) {
			words = append(words, "")
			continue
		}
		words = append(words, tok)
		tokens[tok] = struct{}{}
		if c, ok := taxonomy.ParseName(tok); ok {
			cats[c] = struct{}{}
		}
	}
	for i := 0; i+1 < len(words); i++ {
		if words[i] == "" || words[i+1] == "" {
			continue
		}
		pair := words[i] + "-" + words[i+1]
		tokens[pair] = struct{}{}
		if c, ok := taxonomy.ParseName(pair); ok {
			cats[c] = struct{}{}
		}
	}

	terms := make(map[string]struct{})
	for _, t := range index.Tokenize(stripPins(text)) {
		terms[t] = struct{}{}
	}

	for c := range pins {
		cats[c] = struct{}{}
	}
	q.Terms = sortedSet(terms)
	q.Tokens = sortedSet(tokens)
	q.Categories = sortedCategories(cats)
	q.Pinned = sortedCategories(pins)
	return q
}

// stripPins removes "category:x" fields so category names pinned that way
// do not also count as body terms.
func stripPins(text string) string {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		if !strings.HasPrefix(strings.ToLower(f), categoryPrefix) {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

func sortedSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedCategories(m map[taxonomy.Category]struct{}) []taxonomy.Category {
	if len(m) == 0 {
		return nil
	}
	out := make([]taxonomy.Category, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TokenQuery builds the query for a single signal token: the token itself
// is the only tag candidate, its tokenized parts are the terms, and no
// category is implied. A token with several parts ("next-auth") is
// compound: body mentions of one part alone do not count toward it.
func TokenQuery(token string) Query {
	terms := make(map[string]struct{})
	for _, t := range index.Tokenize(token) {
		terms[t] = struct{}{}
	}
	q := Query{Text: token, Terms: sortedSet(terms), Tokens: []string{}}
	q.Compound = len(q.Terms) > 1
	if token != "" {
		q.Tokens = []string{token}
	}
	return q
}
