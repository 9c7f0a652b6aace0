package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// isolate keeps user config and the index cache inside the test's temp dirs.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SKILLSCOPE_CACHE_DIR", t.TempDir())
	t.Setenv("NO_COLOR", "1")
}

func setupCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "08-messaging-queue", "kafka", "SKILL.md"),
		"---\ntags: [messaging, kafka]\n---\n# Kafka\n\n## Overview\n\nTopics, partitions and consumer groups.\n\n## Best Practices\n\nCommit offsets after processing.\n")
	writeFile(t, filepath.Join(dir, "04-database", "redis", "SKILL.md"),
		"---\ntags: [redis]\n---\n# Redis\n\n## Overview\n\nCaching patterns and eviction.\n")
	return dir
}

func setupRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{"dependencies": {"graphql": "^16.8.0", "redis": "^4.6.0"}}`)
	return dir
}

// execute runs the CLI and returns stdout, stderr and the exit code.
func execute(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// Then: every command is registered
	want := []string{"retrieve", "analyze-gaps", "index", "stats", "validate", "categories", "config", "version"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "missing command %s", name)
	}
}

func TestRun_UsageErrorsExitTwo(t *testing.T) {
	isolate(t)
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"retrieve", "--nope"}},
		{"unknown command", []string{"frobnicate"}},
		{"positional argument", []string{"retrieve", "kafka"}},
		{"bad budget type", []string{"retrieve", "--budget", "lots"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When: running with invalid arguments
			stdout, stderr, code := execute(t, tt.args...)

			// Then: exit 2 with a formatted error and nothing on stdout
			assert.Equal(t, 2, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, "Error:")
			assert.Contains(t, stderr, "ERR_401")
		})
	}
}

func TestRun_InvalidConfigExitsTwo(t *testing.T) {
	isolate(t)

	// Given: a config file with a negative weight
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "scoring:\n  tag_weight: -1\n")

	// When: any command loads it
	_, stderr, code := execute(t, "--config", path, "stats")

	// Then: the config error is a usage error
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "tag_weight")
}

func TestVersionCmd(t *testing.T) {
	isolate(t)

	stdout, _, code := execute(t, "version", "--json")

	require.Equal(t, 0, code)
	assert.True(t, gjson.Valid(stdout))
	assert.NotEmpty(t, gjson.Get(stdout, "version").String())

	stdout, _, code = execute(t, "version", "--short")
	require.Equal(t, 0, code)
	assert.NotEmpty(t, strings.TrimSpace(stdout))
}

func TestCategoriesCmd(t *testing.T) {
	isolate(t)

	// When: listing categories as JSON
	stdout, _, code := execute(t, "categories", "--json")

	// Then: the fixed taxonomy is listed in order
	require.Equal(t, 0, code)
	assert.Equal(t, "foundations", gjson.Get(stdout, "0.category").String())
	assert.Equal(t, "08", gjson.Get(stdout, `#(category=="messaging").code`).String())

	stdout, _, code = execute(t, "categories")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Messaging & Queue")
}
