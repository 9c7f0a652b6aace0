// Package packer selects ranked documents into a token-bounded context pack.
package packer

import (
	"fmt"
	"sort"

	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/scoring"
	"github.com/Aman-CERP/skillscope/internal/taxonomy"
)

// Options tunes the diversity pass.
type Options struct {
	Diversity bool
	// DensityMargin is the factor by which a replacement's score per token
	// must exceed the document it displaces.
	DensityMargin float64
}

// DefaultOptions enables diversity with a 25% density margin.
func DefaultOptions() Options {
	return Options{Diversity: true, DensityMargin: 1.25}
}

// Entry is one document in a pack.
type Entry struct {
	ID             string            `json:"id"`
	Score          float64           `json:"score"`
	Tokens         int               `json:"tokens"`
	Category       taxonomy.Category `json:"category"`
	Title          string            `json:"title"`
	Path           string            `json:"path"`
	MatchedSignals []string          `json:"matched_signals"`
	Pinned         bool              `json:"pinned,omitempty"`
}

// ContextPack is the selected document set. TotalTokens never exceeds Budget.
type ContextPack struct {
	Entries     []Entry `json:"entries"`
	TotalTokens int     `json:"total_tokens"`
	Budget      int     `json:"budget"`
	// Candidates is the number of positively scored documents considered.
	Candidates int `json:"candidates"`
	// TopExceededBudget is set when the best document alone does not fit;
	// the pack is then empty.
	TopExceededBudget bool              `json:"top_exceeded_budget"`
	Warnings          []serrors.Warning `json:"warnings,omitempty"`
}

// IDs returns the packed document ids in pack order.
func (p *ContextPack) IDs() []string {
	out := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = e.ID
	}
	return out
}

// Pack fills budget tokens with scored documents.
//
// Pinned documents go in first, in rank order; one that does not fit is
// skipped with a warning. The rest are then taken in rank order; one that would overflow is skipped
// and the next one tried, so small relevant documents still fit after a
// large one is passed over. When nothing is pinned and the top-ranked
// document alone exceeds the budget, the pack is empty and flagged instead. An optional single
// diversity pass may then trade a document of an over-represented category
// for one from an unrepresented category, never exceeding the budget.
func Pack(scored []scoring.ScoredDocument, budget int, opts Options) (*ContextPack, error) {
	if budget <= 0 {
		return nil, serrors.New(serrors.ErrCodeInvalidBudget,
			fmt.Sprintf("budget must be a positive token count, got %d", budget), nil).
			WithStage("pack").
			WithSuggestion("pass --budget with a value greater than zero")
	}

	ranked := make([]scoring.ScoredDocument, 0, len(scored))
	for _, d := range scored {
		if d.Score > 0 || d.Pinned {
			ranked = append(ranked, d)
		}
	}
	scoring.SortScored(ranked)

	pack := &ContextPack{Entries: []Entry{}, Budget: budget, Candidates: len(ranked)}
	if len(ranked) == 0 {
		return pack, nil
	}

	included := make([]bool, len(ranked))
	total := 0
	pinned := 0
	for i, d := range ranked {
		if !d.Pinned {
			continue
		}
		if total+d.Tokens > budget {
			pack.Warnings = append(pack.Warnings, serrors.Warning{
				Kind:    serrors.WarnPinnedSkipped,
				Stage:   "pack",
				Path:    d.ID,
				Message: fmt.Sprintf("essential document needs %d tokens, %d of %d left", d.Tokens, budget-total, budget),
			})
			continue
		}
		included[i] = true
		total += d.Tokens
		pinned++
	}

	if top := ranked[0]; pinned == 0 && top.Tokens > budget {
		pack.TopExceededBudget = true
		pack.Warnings = append(pack.Warnings, serrors.BudgetExceededWarning(top.ID, top.Tokens, budget))
		return pack, nil
	}

	for i, d := range ranked {
		if d.Pinned {
			continue
		}
		if total+d.Tokens <= budget {
			included[i] = true
			total += d.Tokens
		}
	}

	if opts.Diversity {
		var swaps []serrors.Warning
		total, swaps = diversify(ranked, included, total, budget, opts.DensityMargin)
		pack.Warnings = append(pack.Warnings, swaps...)
	}

	for _, wantPinned := range []bool{true, false} {
		for i, d := range ranked {
			if !included[i] || d.Pinned != wantPinned {
				continue
			}
			pack.Entries = append(pack.Entries, Entry{
				ID:             d.ID,
				Score:          d.Score,
				Tokens:         d.Tokens,
				Category:       d.Category,
				Title:          d.Title,
				Path:           d.Path,
				MatchedSignals: d.MatchedSignals,
				Pinned:         d.Pinned,
			})
		}
	}
	pack.TotalTokens = total
	return pack, nil
}

func density(d scoring.ScoredDocument) float64 {
	return d.Score / float64(max(d.Tokens, 1))
}

// diversify runs one pass over the categories holding two or more packed
// documents. Pinned documents are never displaced. A category is reshuffled only when the greedy pass left out a
// document of that same category whose score per token is at least margin
// times that of the category's least dense packed document (never the
// top-ranked one). The reshuffle then replaces that least dense document
// with the densest unpacked document from a category not yet in the pack,
// provided it is no less dense and the budget still holds. At most one
// swap per category.
func diversify(ranked []scoring.ScoredDocument, included []bool, total, budget int, margin float64) (int, []serrors.Warning) {
	if margin < 1 {
		margin = 1
	}
	counts := make(map[taxonomy.Category]int)
	for i, d := range ranked {
		if included[i] {
			counts[d.Category]++
		}
	}
	var crowded []taxonomy.Category
	for c, n := range counts {
		if n >= 2 {
			crowded = append(crowded, c)
		}
	}
	sort.Slice(crowded, func(i, j int) bool { return crowded[i] < crowded[j] })

	var warnings []serrors.Warning
	for _, c := range crowded {
		if counts[c] < 2 {
			continue
		}
		victim := -1
		for i := 1; i < len(ranked); i++ {
			if !included[i] || ranked[i].Pinned || ranked[i].Category != c {
				continue
			}
			if victim < 0 || density(ranked[i]) <= density(ranked[victim]) {
				victim = i
			}
		}
		if victim < 0 || !denserLeftOut(ranked, included, c, density(ranked[victim])*margin) {
			continue
		}

		floor := density(ranked[victim])
		best := -1
		for i, d := range ranked {
			if included[i] || counts[d.Category] > 0 {
				continue
			}
			if total-ranked[victim].Tokens+d.Tokens > budget || density(d) < floor {
				continue
			}
			if best < 0 || density(d) > density(ranked[best]) {
				best = i
			}
		}
		if best < 0 {
			continue
		}

		included[victim] = false
		included[best] = true
		total += ranked[best].Tokens - ranked[victim].Tokens
		counts[c]--
		counts[ranked[best].Category]++
		warnings = append(warnings, serrors.Warning{
			Kind:    serrors.WarnDiversitySwap,
			Stage:   "pack",
			Path:    ranked[best].ID,
			Message: fmt.Sprintf("replaced %s (%s) to add category %s", ranked[victim].ID, c, ranked[best].Category),
		})
	}
	return total, warnings
}

// denserLeftOut reports whether an unpacked document of category c reaches
// the given score density.
func denserLeftOut(ranked []scoring.ScoredDocument, included []bool, c taxonomy.Category, floor float64) bool {
	for i, d := range ranked {
		if !included[i] && d.Category == c && density(d) >= floor {
			return true
		}
	}
	return false
}
