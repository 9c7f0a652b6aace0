package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestOptions_WithDefaults(t *testing.T) {
	// Given: empty options
	opts := Options{}.WithDefaults()

	// Then: defaults are filled in
	assert.Equal(t, 500*time.Millisecond, opts.DebounceWindow)
	assert.Equal(t, 5*time.Second, opts.PollInterval)
	assert.Equal(t, 100, opts.EventBufferSize)
}

func TestFilter(t *testing.T) {
	f := newFilter(Options{
		Exclude:  []string{"**/node_modules/**", "dist/**"},
		Relevant: func(rel string) bool { return strings.HasSuffix(rel, ".json") },
	})

	assert.True(t, f.keep("package.json", false))
	assert.True(t, f.keep("web/package.json", false))
	assert.False(t, f.keep("README.md", false), "irrelevant file")
	assert.False(t, f.keep("node_modules/x/package.json", false), "excluded")
	assert.False(t, f.keep("web", true), "directories never produce events")

	assert.True(t, f.skipDir(".git"))
	assert.False(t, f.skipDir(".github"))
	assert.True(t, f.skipDir("dist"))
	assert.False(t, f.skipDir("."))
}

func TestPoller_DetectsCreateModifyDelete(t *testing.T) {
	// Given: a tree with two files and a baseline snapshot
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module a\n")
	writeFile(t, root, "old.json", "{}")
	p := newPoller(root, newFilter(Options{}))
	p.baseline()

	// When: one file grows, one is removed and one appears
	writeFile(t, root, "go.mod", "module a\n\ngo 1.22\n")
	require.NoError(t, os.Remove(filepath.Join(root, "old.json")))
	writeFile(t, root, "sub/new.json", "{}")
	events := p.detectChanges()

	// Then: each change is reported in path order
	require.Len(t, events, 3)
	assert.Equal(t, "go.mod", events[0].Path)
	assert.Equal(t, OpModify, events[0].Operation)
	assert.Equal(t, "old.json", events[1].Path)
	assert.Equal(t, OpDelete, events[1].Operation)
	assert.Equal(t, "sub/new.json", events[2].Path)
	assert.Equal(t, OpCreate, events[2].Operation)

	// And: a second scan with no changes is quiet
	assert.Empty(t, p.detectChanges())
}

func TestPoller_SkipsHiddenAndExcludedDirs(t *testing.T) {
	// Given: files under .git and an excluded directory
	root := t.TempDir()
	p := newPoller(root, newFilter(Options{Exclude: []string{"**/node_modules/**"}}))
	p.baseline()

	// When: files appear in those directories
	writeFile(t, root, ".git/HEAD", "ref")
	writeFile(t, root, "node_modules/lib/package.json", "{}")

	// Then: nothing is reported
	assert.Empty(t, p.detectChanges())
}

func TestNew_RejectsMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), Options{}, nil)
	assert.Error(t, err)
}

func TestWatch_PollingDeliversBatch(t *testing.T) {
	// Given: a repo target watched by polling with a relevance filter
	root := t.TempDir()
	writeFile(t, root, "README.md", "hello")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []Batch
	done := make(chan struct{})
	handle := func(_ context.Context, b Batch) error {
		mu.Lock()
		got = append(got, b)
		mu.Unlock()
		close(done)
		return context.Canceled
	}

	opts := Options{DebounceWindow: 20 * time.Millisecond, PollInterval: 20 * time.Millisecond, ForcePolling: true}
	targets := []Target{{
		Name:     "repo",
		Root:     root,
		Relevant: func(rel string) bool { return strings.HasSuffix(rel, ".json") },
	}}

	errCh := make(chan error, 1)
	go func() { errCh <- Watch(ctx, targets, opts, handle, nil) }()

	// When: an irrelevant and a relevant file change after the baseline
	time.Sleep(100 * time.Millisecond)
	writeFile(t, root, "notes.txt", "ignored")
	writeFile(t, root, "package.json", `{"dependencies":{"graphql":"^16"}}`)

	// Then: one batch with only the relevant file arrives, and the session ends
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("no batch delivered")
	}
	require.NoError(t, <-errCh)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "repo", got[0].Target)
	assert.Equal(t, []string{"package.json"}, got[0].Paths())
}

func TestWatch_RequiresTargets(t *testing.T) {
	err := Watch(context.Background(), nil, Options{}, func(context.Context, Batch) error { return nil }, nil)
	assert.Error(t, err)
}
