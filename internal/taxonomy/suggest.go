package taxonomy

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSuggestCacheSize bounds the memoized suggestion results.
const DefaultSuggestCacheSize = 1024

// minSubstringLen keeps very short tokens ("ci", "go") from matching
// inside unrelated words.
const minSubstringLen = 3

// Match methods, in decreasing order of trust.
const (
	MethodSynonym      = "synonym"
	MethodSubstring    = "substring"
	MethodEditDistance = "edit_distance"
)

// Suggestion is a nearest-category hint for a token. It is a heuristic
// and must be presented as a suggestion, never as a classification.
type Suggestion struct {
	Category Category `json:"category"`
	Method   string   `json:"method"`
	Distance int      `json:"distance"`
}

type suggestResult struct {
	s  Suggestion
	ok bool
}

// Suggester finds the nearest category for a token and memoizes results.
// It is safe for concurrent use.
type Suggester struct {
	maxDistance int
	cache       *lru.Cache[string, suggestResult]
}

// NewSuggester creates a Suggester accepting edit distances up to maxDistance.
func NewSuggester(maxDistance int) *Suggester {
	cache, _ := lru.New[string, suggestResult](DefaultSuggestCacheSize)
	return &Suggester{maxDistance: maxDistance, cache: cache}
}

// Suggest returns the nearest category for token, trying exact
// slug/name/synonym first, then substring containment, then edit distance.
// Ties resolve to the earlier category in enum order.
func (s *Suggester) Suggest(token string) (Suggestion, bool) {
	key := slugify(token)
	if key == "" {
		return Suggestion{}, false
	}
	if r, ok := s.cache.Get(key); ok {
		return r.s, r.ok
	}
	sg, ok := suggest(key, s.maxDistance)
	s.cache.Add(key, suggestResult{s: sg, ok: ok})
	return sg, ok
}

func suggest(key string, maxDistance int) (Suggestion, bool) {
	if c, ok := lookupKey(key); ok {
		return Suggestion{Category: c, Method: MethodSynonym}, true
	}

	if len(key) >= minSubstringLen {
		for _, info := range infos {
			for _, cand := range candidates(info) {
				if len(cand) < minSubstringLen {
					continue
				}
				if strings.Contains(key, cand) || strings.Contains(cand, key) {
					return Suggestion{Category: info.Category, Method: MethodSubstring}, true
				}
			}
		}
	}

	best := Suggestion{Distance: maxDistance + 1}
	for _, info := range infos {
		for _, cand := range candidates(info) {
			// Distances over half the token length match noise, not typos.
			if d := levenshtein(key, cand); d < best.Distance && d*2 <= len(key) {
				best = Suggestion{Category: info.Category, Method: MethodEditDistance, Distance: d}
			}
		}
	}
	if best.Distance <= maxDistance && best.Category != "" {
		return best, true
	}
	return Suggestion{}, false
}

func candidates(info Info) []string {
	out := make([]string, 0, len(info.Synonyms)+2)
	out = append(out, string(info.Category), slugify(info.Name))
	return append(out, info.Synonyms...)
}

// levenshtein computes the edit distance between a and b over bytes.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
