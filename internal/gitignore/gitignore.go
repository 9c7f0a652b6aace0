// Package gitignore matches repository paths against .gitignore rules.
//
// Patterns are translated to doublestar globs. Rules from a nested
// .gitignore apply only below the directory that holds it, and the last
// matching rule wins, so a later "!pattern" re-includes a path.
package gitignore

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileName is the per-directory ignore file.
const FileName = ".gitignore"

// Matcher holds compiled rules. It is not safe for concurrent mutation;
// build it first, then match from any goroutine.
type Matcher struct {
	rules []rule
}

type rule struct {
	glob    string
	base    string
	negate  bool
	dirOnly bool
}

// New creates an empty Matcher.
func New() *Matcher {
	return &Matcher{}
}

// Len returns the number of rules.
func (m *Matcher) Len() int { return len(m.rules) }

// Add compiles one .gitignore line found in the directory base
// (slash-separated, relative to the repository root; "" for the root).
// Blank lines and comments are ignored.
func (m *Matcher) Add(line, base string) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasSuffix(line, `\ `) {
		line = strings.TrimRight(line, " \t")
	}
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	r := rule{base: strings.Trim(base, "/")}
	switch {
	case strings.HasPrefix(line, `\#`), strings.HasPrefix(line, `\!`):
		line = line[1:]
	case strings.HasPrefix(line, "!"):
		r.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	if line == "" {
		return
	}

	// A slash anywhere but the end anchors the pattern to base.
	anchored := strings.Contains(line, "/")
	line = strings.TrimPrefix(line, "/")
	glob := escapeBraces(line)
	if !anchored {
		glob = "**/" + glob
	}
	if !doublestar.ValidatePattern(glob) {
		return
	}
	r.glob = glob
	m.rules = append(m.rules, r)
}

// AddFile reads the ignore file at path, whose rules apply below base.
func (m *Matcher) AddFile(path, base string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.Add(sc.Text(), base)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// Match reports whether rel (slash-separated, relative to the repository
// root) is ignored. Callers walking a tree should prune ignored
// directories; paths inside them are not re-checked against the parent.
func (m *Matcher) Match(rel string, isDir bool) bool {
	rel = strings.Trim(path.Clean("/"+rel), "/")
	if rel == "" {
		return false
	}
	ignored := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		sub := rel
		if r.base != "" {
			if !strings.HasPrefix(rel, r.base+"/") {
				continue
			}
			sub = rel[len(r.base)+1:]
		}
		if ok, _ := doublestar.Match(r.glob, sub); ok {
			ignored = !r.negate
		}
	}
	return ignored
}

func escapeBraces(s string) string {
	return strings.NewReplacer("{", `\{`, "}", `\}`).Replace(s)
}
