package packer

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/scoring"
	"github.com/Aman-CERP/skillscope/internal/taxonomy"
)

func doc(id string, score float64, tokens int, cat taxonomy.Category) scoring.ScoredDocument {
	return scoring.ScoredDocument{ID: id, Score: score, Tokens: tokens, Category: cat}
}

// Scenario C: the only document is larger than the budget.
func TestPack_TopDocumentExceedsBudget(t *testing.T) {
	scored := []scoring.ScoredDocument{doc("big", 5, 5000, taxonomy.Database)}

	pack, err := Pack(scored, 1000, DefaultOptions())

	require.NoError(t, err)
	assert.Empty(t, pack.Entries)
	assert.NotNil(t, pack.Entries)
	assert.True(t, pack.TopExceededBudget)
	assert.Equal(t, 0, pack.TotalTokens)
	require.Len(t, pack.Warnings, 1)
	assert.Equal(t, serrors.WarnBudgetExceeded, pack.Warnings[0].Kind)
	assert.Equal(t, "big", pack.Warnings[0].Path)
}

func TestPack_SkipsOverflowAndContinues(t *testing.T) {
	scored := []scoring.ScoredDocument{
		doc("a", 5, 800, taxonomy.Database),
		doc("b", 4, 600, taxonomy.Messaging),
		doc("c", 3, 150, taxonomy.Testing),
	}

	pack, err := Pack(scored, 1000, DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, pack.IDs())
	assert.Equal(t, 950, pack.TotalTokens)
	assert.False(t, pack.TopExceededBudget)
}

func TestPack_InvalidBudget(t *testing.T) {
	for _, budget := range []int{0, -5} {
		t.Run(fmt.Sprint(budget), func(t *testing.T) {
			pack, err := Pack(nil, budget, DefaultOptions())

			assert.Nil(t, pack)
			assert.Equal(t, serrors.ErrCodeInvalidBudget, serrors.GetCode(err))
			assert.Equal(t, serrors.ExitInvalid, serrors.ExitCode(err))
		})
	}
}

func TestPack_DropsNonPositiveScores(t *testing.T) {
	scored := []scoring.ScoredDocument{
		doc("zero", 0, 10, taxonomy.Database),
		doc("neg", -1, 10, taxonomy.Database),
		doc("ok", 0.1, 10, taxonomy.Database),
	}

	pack, err := Pack(scored, 100, DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, pack.IDs())
	assert.Equal(t, 1, pack.Candidates)
}

func TestPack_OrdersByScoreThenID(t *testing.T) {
	scored := []scoring.ScoredDocument{
		doc("b", 8, 10, taxonomy.Database),
		doc("c", 9, 10, taxonomy.Messaging),
		doc("a", 8, 10, taxonomy.Testing),
	}

	pack, err := Pack(scored, 100, DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, pack.IDs())
}

func TestPack_DiversitySwap(t *testing.T) {
	scored := []scoring.ScoredDocument{
		doc("db-1", 10, 400, taxonomy.Database),
		doc("db-2", 9, 400, taxonomy.Database),
		doc("mq-1", 8.5, 300, taxonomy.Messaging),
		// left out by the greedy pass, and denser than db-2
		doc("db-3", 8, 250, taxonomy.Database),
	}

	tests := []struct {
		name      string
		opts      Options
		wantIDs   []string
		wantSwaps int
	}{
		{name: "diversity on", opts: DefaultOptions(), wantIDs: []string{"db-1", "mq-1"}, wantSwaps: 1},
		{name: "diversity off", opts: Options{Diversity: false}, wantIDs: []string{"db-1", "db-2"}},
		{name: "margin too strict", opts: Options{Diversity: true, DensityMargin: 2}, wantIDs: []string{"db-1", "db-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pack, err := Pack(scored, 1000, tt.opts)

			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, pack.IDs())
			assert.LessOrEqual(t, pack.TotalTokens, 1000)
			swaps := 0
			for _, w := range pack.Warnings {
				if w.Kind == serrors.WarnDiversitySwap {
					swaps++
				}
			}
			assert.Equal(t, tt.wantSwaps, swaps)
		})
	}
}

func TestPack_DiversityNeedsDenserSameCategoryLeftOut(t *testing.T) {
	// Given: two packed database documents and a denser messaging document
	// left out, but no better database document left out
	scored := []scoring.ScoredDocument{
		doc("db-1", 10, 400, taxonomy.Database),
		doc("db-2", 9, 400, taxonomy.Database),
		doc("mq-1", 8.5, 300, taxonomy.Messaging),
	}

	// When: packing with diversity on
	pack, err := Pack(scored, 1000, DefaultOptions())

	// Then: the greedy selection stands
	require.NoError(t, err)
	assert.Equal(t, []string{"db-1", "db-2"}, pack.IDs())
	assert.Empty(t, pack.Warnings)
}

func TestPack_DiversityNeverDisplacesTopDocument(t *testing.T) {
	scored := []scoring.ScoredDocument{
		doc("db-top", 10, 900, taxonomy.Database),
		doc("db-small", 1, 100, taxonomy.Database),
		doc("mq", 5, 100, taxonomy.Messaging),
	}

	pack, err := Pack(scored, 1000, DefaultOptions())

	require.NoError(t, err)
	assert.Equal(t, []string{"db-top", "mq"}, pack.IDs())
	assert.Equal(t, 1000, pack.TotalTokens)
}

func pinned(d scoring.ScoredDocument) scoring.ScoredDocument {
	d.Pinned = true
	return d
}

func TestPack_PinnedDocumentsGoFirst(t *testing.T) {
	// Given: an essential document ranked below two stronger matches
	scored := []scoring.ScoredDocument{
		doc("kafka", 6, 400, taxonomy.Messaging),
		doc("redis", 5, 400, taxonomy.Database),
		pinned(doc("nextjs", 0.5, 300, taxonomy.Frontend)),
	}

	// When: the budget fits only two documents
	pack, err := Pack(scored, 800, DefaultOptions())

	// Then: the essential document is packed ahead of the ranking
	require.NoError(t, err)
	assert.Equal(t, []string{"nextjs", "kafka"}, pack.IDs())
	assert.True(t, pack.Entries[0].Pinned)
	assert.False(t, pack.Entries[1].Pinned)
	assert.Equal(t, 700, pack.TotalTokens)
}

func TestPack_PinnedDocumentKeptWithZeroScore(t *testing.T) {
	// Given: an essential document with no query evidence at all
	scored := []scoring.ScoredDocument{pinned(doc("nextjs", 0, 300, taxonomy.Frontend))}

	// When: it is packed
	pack, err := Pack(scored, 1000, DefaultOptions())

	// Then: it is still included
	require.NoError(t, err)
	assert.Equal(t, []string{"nextjs"}, pack.IDs())
	assert.Equal(t, 1, pack.Candidates)
}

func TestPack_PinnedDocumentTooLargeIsSkipped(t *testing.T) {
	// Given: two essential documents, the second larger than what is left
	scored := []scoring.ScoredDocument{
		pinned(doc("nextjs", 2, 600, taxonomy.Frontend)),
		pinned(doc("jwt", 1, 600, taxonomy.Auth)),
		doc("redis", 5, 300, taxonomy.Database),
	}

	// When: packed into 1000 tokens
	pack, err := Pack(scored, 1000, DefaultOptions())

	// Then: the oversized one is reported and the rest still fills the budget
	require.NoError(t, err)
	assert.Equal(t, []string{"nextjs", "redis"}, pack.IDs())
	assert.False(t, pack.TopExceededBudget)
	require.Len(t, pack.Warnings, 1)
	assert.Equal(t, serrors.WarnPinnedSkipped, pack.Warnings[0].Kind)
	assert.Equal(t, "jwt", pack.Warnings[0].Path)
}

func TestPack_DiversityNeverDisplacesPinned(t *testing.T) {
	// Given: two packed database documents, the less dense one essential,
	// and a denser database document plus a testing document left out
	scored := []scoring.ScoredDocument{
		doc("db-1", 10, 300, taxonomy.Database),
		pinned(doc("db-2", 1, 300, taxonomy.Database)),
		doc("db-3", 8, 500, taxonomy.Database),
		doc("test-1", 6, 200, taxonomy.Testing),
	}

	// When: the diversity pass runs
	pack, err := Pack(scored, 700, DefaultOptions())

	// Then: the essential document stays
	require.NoError(t, err)
	assert.Contains(t, pack.IDs(), "db-2")
	assert.Contains(t, pack.IDs(), "db-1")
}

func TestPack_BudgetInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cats := []taxonomy.Category{taxonomy.Database, taxonomy.Messaging, taxonomy.Testing, taxonomy.DevOps}

	for iter := 0; iter < 500; iter++ {
		n := rng.Intn(30)
		scored := make([]scoring.ScoredDocument, n)
		for i := range scored {
			scored[i] = doc(fmt.Sprintf("d%02d", i), rng.Float64()*10-1, rng.Intn(3000), cats[rng.Intn(len(cats))])
		}
		budget := rng.Intn(8000) + 1

		pack, err := Pack(scored, budget, DefaultOptions())
		require.NoError(t, err)

		sum := 0
		for _, e := range pack.Entries {
			sum += e.Tokens
			assert.Greater(t, e.Score, 0.0)
		}
		assert.Equal(t, sum, pack.TotalTokens)
		assert.LessOrEqual(t, pack.TotalTokens, budget, "iteration %d", iter)
	}
}
