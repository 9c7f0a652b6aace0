package gitignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Patterns(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		path    string
		isDir   bool
		ignored bool
	}{
		{"basename anywhere", []string{"*.log"}, "a/b/debug.log", false, true},
		{"basename at root", []string{"*.log"}, "debug.log", false, true},
		{"no match", []string{"*.log"}, "main.go", false, false},
		{"dir only matches dir", []string{"build/"}, "build", true, true},
		{"dir only skips file", []string{"build/"}, "build", false, false},
		{"dir only nested", []string{"build/"}, "web/build", true, true},
		{"anchored leading slash", []string{"/dist"}, "dist", true, true},
		{"anchored does not float", []string{"/dist"}, "web/dist", true, false},
		{"inner slash anchors", []string{"docs/gen"}, "docs/gen", true, true},
		{"inner slash anchors nested", []string{"docs/gen"}, "x/docs/gen", true, false},
		{"double star", []string{"**/fixtures/*.json"}, "a/b/fixtures/package.json", false, true},
		{"negation re-includes", []string{"*.json", "!package.json"}, "package.json", false, false},
		{"negation order matters", []string{"!package.json", "*.json"}, "package.json", false, true},
		{"comment ignored", []string{"# package.json"}, "package.json", false, false},
		{"escaped hash", []string{`\#notes`}, "#notes", false, true},
		{"escaped bang", []string{`\!important`}, "!important", false, true},
		{"trailing spaces trimmed", []string{"tmp   "}, "tmp", false, true},
		{"braces are literal", []string{"{a,b}.txt"}, "a.txt", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a matcher with the root rules
			m := New()
			for _, l := range tt.lines {
				m.Add(l, "")
			}

			// Then: the path is matched as expected
			assert.Equal(t, tt.ignored, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestMatcher_NestedBase(t *testing.T) {
	// Given: a rule from services/api/.gitignore
	m := New()
	m.Add("generated/", "services/api")
	m.Add("*.pb.go", "services/api")

	// Then: it applies only below that directory
	assert.True(t, m.Match("services/api/generated", true))
	assert.True(t, m.Match("services/api/v1/user.pb.go", false))
	assert.False(t, m.Match("generated", true))
	assert.False(t, m.Match("services/web/user.pb.go", false))
}

func TestMatcher_NestedOverridesRoot(t *testing.T) {
	// Given: the root ignores json and a nested file re-includes manifests
	m := New()
	m.Add("*.json", "")
	m.Add("!package.json", "web")

	assert.True(t, m.Match("package.json", false))
	assert.False(t, m.Match("web/package.json", false))
	assert.True(t, m.Match("web/tsconfig.json", false))
}

func TestMatcher_AddFile(t *testing.T) {
	// Given: a .gitignore on disk
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("# deps\nnode_modules/\r\n\n*.tmp\n"), 0o644))

	// When: loading it
	m := New()
	require.NoError(t, m.AddFile(path, ""))

	// Then: both rules are active
	assert.Equal(t, 2, m.Len())
	assert.True(t, m.Match("node_modules", true))
	assert.True(t, m.Match("x.tmp", false))

	assert.Error(t, m.AddFile(filepath.Join(dir, "missing"), ""))
}

func TestMatcher_EmptyAndRoot(t *testing.T) {
	m := New()
	m.Add("", "")
	m.Add("   ", "")
	m.Add("!", "")
	m.Add("*", "")

	assert.Equal(t, 1, m.Len())
	assert.False(t, m.Match("", true))
	assert.False(t, m.Match(".", true))
	assert.True(t, m.Match("anything", false))
}
