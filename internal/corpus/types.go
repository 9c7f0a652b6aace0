// Package corpus discovers and parses skill documents.
//
// A corpus is a directory tree of markdown files, typically laid out as
// NN-category-slug/skill-name/SKILL.md, each starting with a YAML
// frontmatter header. The engine only ever reads the corpus.
package corpus

import "github.com/Aman-CERP/skillscope/internal/taxonomy"

// RawDocument is a corpus file as read from disk.
type RawDocument struct {
	// Path is relative to the corpus root, slash-separated.
	Path    string
	Content []byte
}

// SkillDocument is a parsed skill document before indexing.
type SkillDocument struct {
	ID       string
	Category taxonomy.Category
	Title    string
	Summary  string
	Path     string

	// Tags are lower-cased and de-duplicated. Declared technologies and
	// fenced-code languages are folded in.
	Tags         []string
	Technologies []string

	// Body is the markdown after the frontmatter, as handed to an assistant.
	Body string
	// Text is the plain text of Body used for term extraction.
	Text string

	Headings      []string
	CodeLanguages []string
	CodeBlocks    int
}
