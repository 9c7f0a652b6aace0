package scoring

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/skillscope/internal/corpus"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/index"
	"github.com/Aman-CERP/skillscope/internal/signals"
	"github.com/Aman-CERP/skillscope/internal/taxonomy"
)

func raw(path, content string) corpus.RawDocument {
	return corpus.RawDocument{Path: path, Content: []byte(content)}
}

func buildIndex(t *testing.T, raws ...corpus.RawDocument) *index.Index {
	t.Helper()
	idx, _, err := index.Build(raws)
	require.NoError(t, err)
	return idx
}

func sampleIndex(t *testing.T) *index.Index {
	return buildIndex(t,
		raw("08-messaging-queue/kafka/SKILL.md", "---\ntags: [messaging, kafka]\n---\n# Kafka\n\nKafka topics, consumer groups and partitions.\n"),
		raw("04-database/redis/SKILL.md", "---\ntags: [redis]\n---\n# Redis\n\nCaching with redis and eviction policies.\n"),
		raw("04-database/postgres/SKILL.md", "---\ntags: [postgresql]\n---\n# Postgres\n\nIndexes, vacuum and replication.\n"),
	)
}

func ids(docs []ScoredDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestParseQuery(t *testing.T) {
	q := ParseQuery("Kafka consumer groups, category:messaging")

	assert.Equal(t, []string{"consumer", "consumer-groups", "groups", "kafka", "kafka-consumer"}, q.Tokens)
	assert.Equal(t, []string{"consumer", "groups", "kafka"}, q.Terms)
	assert.Equal(t, []taxonomy.Category{taxonomy.Messaging}, q.Pinned)
	assert.Equal(t, []taxonomy.Category{taxonomy.Messaging}, q.Categories)
	assert.False(t, q.Empty())
}

func TestParseQuery_BareCategoryBoostsWithoutPinning(t *testing.T) {
	q := ParseQuery("messaging retries")

	assert.Equal(t, []taxonomy.Category{taxonomy.Messaging}, q.Categories)
	assert.Empty(t, q.Pinned)
}

func TestParseQuery_TechnologyWordIsNotCategory(t *testing.T) {
	q := ParseQuery("kafka")

	assert.Empty(t, q.Categories)
	assert.Equal(t, []string{"kafka"}, q.Tokens)
}

func TestParseQuery_Empty(t *testing.T) {
	assert.True(t, ParseQuery("  the and  ").Empty())
}

// Scenario A: a document tagged kafka is returned for the query "kafka".
func TestScore_TagMatch(t *testing.T) {
	idx := buildIndex(t, raw("08-messaging-queue/kafka/SKILL.md",
		"---\ntags: [messaging, kafka]\n---\n# Streams\n\nTopics and partitions.\n"))
	s := New(DefaultWeights(), 2, nil)

	got, err := s.Score(context.Background(), ParseQuery("kafka"), nil, idx)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "messaging/kafka", got[0].ID)
	assert.Equal(t, 2.0, got[0].Score)
	assert.Equal(t, 1, got[0].TagMatches)
	assert.Equal(t, []string{"tag:kafka"}, got[0].MatchedSignals)
}

// Scenario D: equal scores are ordered by ascending id, stably across runs.
func TestScore_TieBreakByID(t *testing.T) {
	idx := buildIndex(t,
		raw("b.md", "---\nid: b-doc\ntags: [alpha, beta, gamma, delta]\n---\nFirst body text.\n"),
		raw("a.md", "---\nid: a-doc\ntags: [alpha, beta, gamma, delta]\n---\nSecond body text.\n"),
	)
	s := New(DefaultWeights(), 4, nil)
	q := ParseQuery("alpha beta gamma delta")

	var runs [][]ScoredDocument
	for i := 0; i < 3; i++ {
		got, err := s.Score(context.Background(), q, nil, idx)
		require.NoError(t, err)
		runs = append(runs, got)
	}

	require.Len(t, runs[0], 2)
	assert.Equal(t, 8.0, runs[0][0].Score)
	assert.Equal(t, 8.0, runs[0][1].Score)
	assert.Equal(t, []string{"a-doc", "b-doc"}, ids(runs[0]))
	assert.Equal(t, runs[0], runs[1])
	assert.Equal(t, runs[1], runs[2])
}

func TestScore_FingerprintWeightedByConfidence(t *testing.T) {
	idx := sampleIndex(t)
	s := New(DefaultWeights(), 1, nil)

	tests := []struct {
		name       string
		confidence float64
		want       float64
	}{
		{name: "manifest signal", confidence: 1.0, want: 2.0},
		{name: "keyword signal", confidence: 0.5, want: 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := signals.NewFingerprint("/repo", []signals.Signal{{Token: "redis", Confidence: tt.confidence}})

			got, err := s.Score(context.Background(), Query{}, fp, idx)

			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "database/redis", got[0].ID)
			assert.InDelta(t, tt.want, got[0].Score, 1e-9)
		})
	}
}

func TestScore_ExcludesNonPositive(t *testing.T) {
	idx := sampleIndex(t)
	s := New(DefaultWeights(), 1, nil)

	// zero-confidence signal matches a tag but earns nothing
	fp := signals.NewFingerprint("/repo", []signals.Signal{{Token: "redis", Confidence: 0}})
	got, err := s.Score(context.Background(), ParseQuery("blockchain"), fp, idx)
	require.NoError(t, err)
	assert.Empty(t, got)

	// zero weights turn every match into a zero score
	zero := New(Weights{}, 1, nil)
	got, err = zero.Score(context.Background(), ParseQuery("kafka redis"), nil, idx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScore_TermMatchesAreLengthNormalized(t *testing.T) {
	idx := sampleIndex(t)
	s := New(DefaultWeights(), 1, nil)

	got, err := s.Score(context.Background(), ParseQuery("eviction"), nil, idx)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "database/redis", got[0].ID)
	assert.Equal(t, 1, got[0].TermMatches)
	assert.Equal(t, 0, got[0].TagMatches)
	assert.Greater(t, got[0].Score, 0.0)
	assert.Less(t, got[0].Score, 2.2)
	assert.Equal(t, []string{"term:eviction"}, got[0].MatchedSignals)
}

func TestScore_CompoundTokenCountsLeastFrequentPart(t *testing.T) {
	// Given a body naming "next" three times and "auth" once
	idx := buildIndex(t,
		raw("02-frontend/web/SKILL.md", "# Web\n\nnext routing, next pages, next-auth sessions.\n"),
	)
	s := New(DefaultWeights(), 1, nil)
	q := TokenQuery("next-auth")

	// When the hyphenated token is scored
	got, err := s.Score(context.Background(), q, nil, idx)

	// Then the document matches it once, not four times
	require.NoError(t, err)
	assert.True(t, q.Compound)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].TermMatches)
	assert.Equal(t, []string{"term:auth", "term:next"}, got[0].MatchedSignals)
}

func TestScore_CompoundTokenMissingPartMatchesZero(t *testing.T) {
	// Given a body that names only the first part
	idx := buildIndex(t,
		raw("02-frontend/web/SKILL.md", "# Web\n\nnext routing and next pages.\n"),
	)
	s := New(DefaultWeights(), 1, nil)

	// When the hyphenated token is scored
	got, err := s.Score(context.Background(), TokenQuery("next-auth"), nil, idx)

	// Then the document still ranks but carries no term matches
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].TermMatches)
	assert.False(t, TokenQuery("kafka").Compound)
}

func TestQuery_WithProfile(t *testing.T) {
	// Given: a parsed query shared with the parse cache
	base := ParseQuery("kafka")

	// When: a profile is applied
	q := base.WithProfile(Profile{
		Name:      "saas",
		Essential: []string{"frontend/nextjs", "auth/jwt"},
		Important: []string{"billing/stripe", "auth/jwt"},
		Tags:      []string{" Stripe ", "kafka"},
	})

	// Then: tags join the tokens and essential wins over important
	assert.Equal(t, "saas", q.Profile)
	assert.Equal(t, []string{"auth/jwt", "frontend/nextjs"}, q.Essential)
	assert.Equal(t, []string{"billing/stripe"}, q.Important)
	assert.Equal(t, []string{"kafka", "stripe"}, q.Tokens)
	assert.Equal(t, []string{"kafka"}, ParseQuery("kafka").Tokens)
	assert.False(t, Query{}.WithProfile(Profile{Essential: []string{"auth/jwt"}}).Empty())
}

func TestScore_ProfileDocuments(t *testing.T) {
	// Given: a profile pinning postgres and preferring redis
	idx := sampleIndex(t)
	s := New(DefaultWeights(), 1, nil)
	q := ParseQuery("kafka").WithProfile(Profile{
		Essential: []string{"database/postgres"},
		Important: []string{"database/redis"},
	})

	// When: scored
	got, err := s.Score(context.Background(), q, nil, idx)

	// Then: both are candidates with the profile prior, only postgres pinned
	require.NoError(t, err)
	byID := make(map[string]ScoredDocument)
	for _, d := range got {
		byID[d.ID] = d
	}
	require.Len(t, byID, 3)
	assert.True(t, byID["database/postgres"].Pinned)
	assert.InDelta(t, 0.5, byID["database/postgres"].Score, 1e-9)
	assert.Equal(t, []string{"profile:essential"}, byID["database/postgres"].MatchedSignals)
	assert.False(t, byID["database/redis"].Pinned)
	assert.Equal(t, []string{"profile:important"}, byID["database/redis"].MatchedSignals)
	assert.Equal(t, "messaging/kafka", got[0].ID)
}

func TestScore_PinnedKeptWithZeroWeights(t *testing.T) {
	// Given: all weights zero and an essential document
	idx := sampleIndex(t)
	q := Query{}.WithProfile(Profile{Essential: []string{"database/redis"}})

	// When: scored
	got, err := New(Weights{}, 1, nil).Score(context.Background(), q, nil, idx)

	// Then: the pinned document survives the positive-score filter
	require.NoError(t, err)
	assert.Equal(t, []string{"database/redis"}, ids(got))
}

func TestScore_CategoryPrior(t *testing.T) {
	idx := sampleIndex(t)
	s := New(DefaultWeights(), 1, nil)

	// Pinned category makes every document of it a candidate
	got, err := s.Score(context.Background(), ParseQuery("category:database"), nil, idx)
	require.NoError(t, err)
	assert.Equal(t, []string{"database/postgres", "database/redis"}, ids(got))
	for _, d := range got {
		assert.InDelta(t, 0.1, d.Score, 1e-9)
		assert.Equal(t, []string{"category:database"}, d.MatchedSignals)
	}

	// A bare category word only boosts documents that already match
	got, err = s.Score(context.Background(), ParseQuery("database redis"), nil, idx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].MatchedSignals, "category:database")
	assert.Contains(t, got[0].MatchedSignals, "tag:redis")
}

func TestScore_ParallelMatchesSequential(t *testing.T) {
	var raws []corpus.RawDocument
	for i := 0; i < 300; i++ {
		raws = append(raws, raw(fmt.Sprintf("d%03d.md", i), fmt.Sprintf(
			"---\nid: doc-%03d\ntags: [t%d, shared]\n---\nbody about kafka %s queue %d\n",
			i, i%7, repeatWord("kafka", i%5), i)))
	}
	idx := buildIndex(t, raws...)
	q := ParseQuery("kafka queue shared")

	seq, err := New(DefaultWeights(), 1, nil).Score(context.Background(), q, nil, idx)
	require.NoError(t, err)
	par, err := New(DefaultWeights(), 8, nil).Score(context.Background(), q, nil, idx)
	require.NoError(t, err)

	assert.Equal(t, seq, par)
	assert.Len(t, seq, 300)
}

func TestScore_Cancelled(t *testing.T) {
	idx := sampleIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := New(DefaultWeights(), 2, nil).Score(ctx, ParseQuery("kafka"), nil, idx)

	assert.Nil(t, got)
	assert.Equal(t, serrors.ErrCodeScoreFailed, serrors.GetCode(err))
}

func TestScore_IdempotentIndexBuild(t *testing.T) {
	s := New(DefaultWeights(), 2, nil)
	q := ParseQuery("kafka caching replication")

	a, err := s.Score(context.Background(), q, nil, sampleIndex(t))
	require.NoError(t, err)
	b, err := s.Score(context.Background(), q, nil, sampleIndex(t))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func repeatWord(w string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += w + " "
	}
	return out
}
