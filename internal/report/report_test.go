package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/Aman-CERP/skillscope/internal/config"
	"github.com/Aman-CERP/skillscope/internal/corpus"
	"github.com/Aman-CERP/skillscope/internal/engine"
	serrors "github.com/Aman-CERP/skillscope/internal/errors"
	"github.com/Aman-CERP/skillscope/internal/gaps"
	"github.com/Aman-CERP/skillscope/internal/packer"
	"github.com/Aman-CERP/skillscope/internal/scoring"
	"github.com/Aman-CERP/skillscope/internal/signals"
	"github.com/Aman-CERP/skillscope/internal/store"
	"github.com/Aman-CERP/skillscope/internal/taxonomy"
)

func retrieveResult() *engine.Result {
	q := scoring.ParseQuery("kafka consumer")
	return &engine.Result{
		State: engine.StateRetrieve,
		Query: &q,
		Pack: &packer.ContextPack{
			Entries: []packer.Entry{
				{ID: "messaging/kafka", Score: 3.25, Tokens: 420, Category: taxonomy.Messaging, Title: "Kafka", Path: "08-messaging-queue/kafka/SKILL.md", MatchedSignals: []string{"tag:kafka", "term:consumer"}},
				{ID: "messaging/queues", Score: 1.5, Tokens: 300, Category: taxonomy.Messaging, Title: "Queues | patterns", Path: "08-messaging-queue/queues/SKILL.md", MatchedSignals: []string{"term:consumer"}},
			},
			TotalTokens: 720,
			Budget:      1000,
			Candidates:  3,
		},
	}
}

func gapsResult() *engine.Result {
	sg := taxonomy.Suggestion{Category: taxonomy.BackendAPI, Method: taxonomy.MethodSynonym}
	fp := signals.NewFingerprint("/work/app", nil)
	fp.Stats = signals.Stats{FilesSeen: 12, FilesScanned: 10, DurationMs: 37}
	return &engine.Result{
		State:       engine.StateAnalyzeGaps,
		Fingerprint: fp,
		Gaps: &gaps.Report{
			Root:      "/work/app",
			ScannedAt: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
			Gaps: []gaps.Gap{{
				Token:      "graphql",
				Confidence: 1.0,
				Sources:    []signals.Source{{Rule: signals.RuleManifest, Path: "package.json"}},
				Suggestion: &sg,
			}},
			Covered: []gaps.Covered{{Token: "redis", Confidence: 1.0, DocumentID: "database/redis", Score: 2, TagMatches: 1}},
		},
		Warnings: []serrors.Warning{{Kind: serrors.WarnScanTruncated, Stage: "scan", Message: "depth limit reached"}},
	}
}

func render(t *testing.T, res *engine.Result, opts Options) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, res, opts))
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{"JSONL", FormatJSONL},
		{" text ", FormatText},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFormat("yaml")
	assert.Equal(t, serrors.ErrCodeInvalidFormat, serrors.GetCode(err))
	assert.Equal(t, serrors.ExitInvalid, serrors.ExitCode(err))
}

func TestRetrieveJSON(t *testing.T) {
	out := render(t, retrieveResult(), Options{Format: FormatJSON})

	require.True(t, gjson.Valid(out))
	assert.Equal(t, "retrieve", gjson.Get(out, "mode").String())
	assert.Equal(t, "kafka consumer", gjson.Get(out, "query").String())
	assert.Equal(t, int64(720), gjson.Get(out, "total_tokens").Int())
	assert.Equal(t, `["messaging/kafka","messaging/queues"]`, gjson.Get(out, "records.#.id").Raw)
	assert.Equal(t, int64(2), gjson.Get(out, "records.1.rank").Int())
	assert.Equal(t, "[]", gjson.Get(out, "warnings").Raw)
	assert.False(t, gjson.Get(out, "fingerprint").Exists())
}

func TestRetrieveJSONL(t *testing.T) {
	out := render(t, retrieveResult(), Options{Format: FormatJSONL})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "document", gjson.Get(lines[0], "type").String())
	assert.Equal(t, "messaging/kafka", gjson.Get(lines[0], "id").String())
	assert.Equal(t, "summary", gjson.Get(lines[2], "type").String())
	assert.Equal(t, int64(2), gjson.Get(lines[2], "documents").Int())
}

func TestRetrieveText(t *testing.T) {
	out := render(t, retrieveResult(), Options{Format: FormatText})

	assert.Contains(t, out, "Context pack")
	assert.Contains(t, out, "2 documents, 720 / 1000 tokens")
	assert.Contains(t, out, "messaging/kafka")
	assert.Contains(t, out, "3.250")
}

func TestRetrieveMarkdown_EscapesCells(t *testing.T) {
	res := retrieveResult()
	res.Pack.Entries[1].Path = "a|b.md"

	out := render(t, res, Options{Format: FormatMarkdown})

	assert.Contains(t, out, "# Context Pack")
	assert.Contains(t, out, `a\|b.md`)
}

func TestRetrieve_EmptyPackStillRenders(t *testing.T) {
	res := retrieveResult()
	res.Pack = &packer.ContextPack{Entries: []packer.Entry{}, Budget: 100, TopExceededBudget: true}

	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			out := render(t, res, Options{Format: f})
			assert.NotEmpty(t, out)
		})
	}
	out := render(t, res, Options{Format: FormatJSON})
	assert.Equal(t, "[]", gjson.Get(out, "records").Raw)
	assert.True(t, gjson.Get(out, "top_exceeded_budget").Bool())
}

func TestGapsJSON(t *testing.T) {
	out := render(t, gapsResult(), Options{Format: FormatJSON})

	assert.Equal(t, "graphql", gjson.Get(out, "gaps.0.token").String())
	assert.Equal(t, "backend-api", gjson.Get(out, "gaps.0.suggested_category.category").String())
	assert.Equal(t, "synonym", gjson.Get(out, "gaps.0.suggested_category.method").String())
	assert.Equal(t, "database/redis", gjson.Get(out, "covered.0.document_id").String())
	assert.Equal(t, "2026-03-01T12:30:00Z", gjson.Get(out, "scanned_at").String())
	assert.Equal(t, int64(37), gjson.Get(out, "stats.duration_ms").Int())
}

func TestGaps_NoTimestampsIsByteStable(t *testing.T) {
	a := gapsResult()
	b := gapsResult()
	b.Gaps.ScannedAt = a.Gaps.ScannedAt.Add(time.Hour)
	b.Fingerprint.Stats.DurationMs = 999

	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			opts := Options{Format: f, NoTimestamps: true}
			assert.Equal(t, render(t, a, opts), render(t, b, opts))
		})
	}
}

func TestGapsJSONL(t *testing.T) {
	out := render(t, gapsResult(), Options{Format: FormatJSONL, NoTimestamps: true})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	var types []string
	for _, l := range lines {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &rec))
		types = append(types, rec["type"].(string))
	}
	assert.Equal(t, []string{"gap", "covered", "warning", "summary"}, types)
	assert.False(t, gjson.Get(lines[3], "scanned_at").Exists())
}

func TestGapsMarkdown(t *testing.T) {
	out := render(t, gapsResult(), Options{Format: FormatMarkdown})

	assert.True(t, strings.HasPrefix(out, "# Skill Gap Analysis Report\n"))
	assert.Contains(t, out, "**Target:** `/work/app`")
	assert.Contains(t, out, "**Generated:** 2026-03-01 12:30:00 UTC")
	assert.Contains(t, out, "| `graphql` | 1.00 | manifest: package.json | Backend API (suggestion) |")
	assert.Contains(t, out, "| `redis` | 1.00 | `database/redis` |")
	assert.Contains(t, out, "## Warnings")
}

func TestGapsText(t *testing.T) {
	res := gapsResult()
	res.Gaps.Partial = true

	out := render(t, res, Options{Format: FormatText})

	assert.Contains(t, out, "Gaps (1)")
	assert.Contains(t, out, "Covered (1)")
	assert.Contains(t, out, "graphql")
	assert.Contains(t, out, "Backend API (suggestion)")
	assert.Contains(t, out, "Partial scan")
	assert.Contains(t, out, "warning: scan/scan_truncated: depth limit reached")
}

func TestRender_RejectsFailedResult(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, &engine.Result{State: engine.StateFailed, Err: errors.New("boom")}, Options{})

	assert.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestRetrieveJSON_SameBytesFromCache(t *testing.T) {
	// Given: a corpus with a malformed document and an index cache
	root := t.TempDir()
	for rel, content := range map[string]string{
		"08-messaging-queue/kafka/SKILL.md":  "---\ntags: [kafka]\n---\n# Kafka\n\nConsumer groups.\n",
		"08-messaging-queue/broken/SKILL.md": "---\ntags: [broken]\n---\n",
	} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	cfg := config.NewConfig()
	cacheDir := t.TempDir()

	run := func() string {
		st := store.New(store.Options{
			Corpus:   corpus.Options{Root: root, Include: cfg.Corpus.Include, Exclude: cfg.Corpus.Exclude},
			CacheDir: cacheDir,
		}, nil)
		res := engine.New(cfg, st, nil).Run(context.Background(),
			engine.Request{Mode: engine.ModeRetrieve, Query: "kafka", Budget: 4000})
		require.NoError(t, res.Err)
		return render(t, res, Options{Format: FormatJSON})
	}

	// When: a fresh engine builds the index, then another reads it from the cache
	built := run()
	cached := run()

	// Then: the output is identical, partial parse warning included
	assert.Equal(t, built, cached)
	assert.Equal(t, "partial_parse", gjson.Get(cached, "warnings.0.kind").String())
}

func TestRenderFailure_MarksFingerprintPartial(t *testing.T) {
	// Given: a scan cancelled after detecting one signal
	fp := signals.NewFingerprint("/work/app", nil)
	res := &engine.Result{
		State:       engine.StateFailed,
		Stage:       engine.StageScan,
		Fingerprint: fp,
		Err:         serrors.ScanError(serrors.ErrCodeScanCancelled, "/work/app", "scan cancelled", nil),
	}

	// When: rendering as json and jsonl
	out := func(f Format) string {
		var buf bytes.Buffer
		require.NoError(t, RenderFailure(&buf, res, Options{Format: f}))
		return buf.String()
	}
	js := out(FormatJSON)
	jl := out(FormatJSONL)

	// Then: the record carries the failed state, the stage and a partial fingerprint
	assert.Equal(t, "failed", gjson.Get(js, "state").String())
	assert.Equal(t, "scan", gjson.Get(js, "stage").String())
	assert.Equal(t, serrors.ErrCodeScanCancelled, gjson.Get(js, "code").String())
	assert.True(t, gjson.Get(js, "fingerprint.partial").Bool())
	assert.Equal(t, "failed", gjson.Get(jl, "type").String())
	assert.NotEmpty(t, out(FormatText))

	assert.Error(t, RenderFailure(&bytes.Buffer{}, &engine.Result{State: engine.StateFailed, Err: errors.New("boom")}, Options{}))
}
