package index

import (
	"sort"

	"github.com/Aman-CERP/skillscope/internal/taxonomy"
)

// CategoryCount is the number of documents in one category.
type CategoryCount struct {
	Category taxonomy.Category `json:"category"`
	Name     string            `json:"name"`
	Count    int               `json:"count"`
	Tokens   int               `json:"tokens"`
}

// Stats summarises an index for the stats command.
type Stats struct {
	Documents    int             `json:"documents"`
	TotalTokens  int             `json:"total_tokens"`
	CodeExamples int             `json:"code_examples"`
	Terms        int             `json:"terms"`
	Tags         int             `json:"tags"`
	Categories   []CategoryCount `json:"categories"`
}

// ComputeStats returns per-category document counts and corpus totals.
// Categories are listed in taxonomy order, Uncategorized last.
func (x *Index) ComputeStats() Stats {
	s := Stats{
		Documents: len(x.docs),
		Terms:     len(x.postings),
		Tags:      len(x.tags),
	}
	counts := make(map[taxonomy.Category]*CategoryCount)
	for _, d := range x.docs {
		s.TotalTokens += d.BodySize
		s.CodeExamples += d.CodeBlocks
		c := counts[d.Category]
		if c == nil {
			c = &CategoryCount{Category: d.Category, Name: d.Category.DisplayName()}
			counts[d.Category] = c
		}
		c.Count++
		c.Tokens += d.BodySize
	}

	order := make(map[taxonomy.Category]int)
	for i, info := range taxonomy.All() {
		order[info.Category] = i
	}
	rank := func(c taxonomy.Category) int {
		if i, ok := order[c]; ok {
			return i
		}
		return len(order)
	}
	for _, c := range counts {
		s.Categories = append(s.Categories, *c)
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		return rank(s.Categories[i].Category) < rank(s.Categories[j].Category)
	})
	return s
}
