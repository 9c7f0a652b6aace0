package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/skillscope/internal/corpus"
	"github.com/Aman-CERP/skillscope/internal/index"
)

func buildIndex(t *testing.T, body string) *index.Index {
	t.Helper()
	idx, _, err := index.Build([]corpus.RawDocument{
		{Path: "08-messaging-queue/kafka/SKILL.md", Content: []byte("---\ntags: [kafka]\n---\n" + body)},
	})
	require.NoError(t, err)
	return idx
}

func TestCache_PutGet(t *testing.T) {
	ctx := context.Background()
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	idx := buildIndex(t, "Kafka consumers.\n")

	// miss before put
	got, err := c.Get(ctx, idx.Hash())
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Put(ctx, idx))

	got, err = c.Get(ctx, idx.Hash())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, idx.Hash(), got.Hash())
	assert.Equal(t, idx.Postings("consumers"), got.Postings("consumers"))

	// putting again replaces rather than duplicates
	require.NoError(t, c.Put(ctx, idx))
	entries, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].DocCount)
}

func TestCache_PruneAndClear(t *testing.T) {
	ctx := context.Background()
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	a := buildIndex(t, "first body\n")
	b := buildIndex(t, "second body\n")
	require.NoError(t, c.Put(ctx, a))
	require.NoError(t, c.Put(ctx, b))

	removed, err := c.Prune(ctx, b.Hash())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	require.NoError(t, c.Clear(ctx))
	entries, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpen_CorruptDatabaseIsReplaced(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("definitely not sqlite"), 0644))

	c, err := Open(dir)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	entries, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileLock_UnlockWithoutLock(t *testing.T) {
	l := NewFileLock(t.TempDir())
	assert.NoError(t, l.Unlock())
	require.NoError(t, l.Lock())
	assert.FileExists(t, l.Path())
	assert.NoError(t, l.Unlock())
}
