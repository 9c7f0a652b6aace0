package corpus

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/Aman-CERP/skillscope/internal/taxonomy"
)

// SkillFileName is the conventional document name inside a skill directory.
const SkillFileName = "SKILL.md"

var markdown = goldmark.New(goldmark.WithExtensions(meta.Meta))

// Parse turns a raw corpus file into a SkillDocument.
//
// Frontmatter keys: id, name, category, tags, keywords, technologies, title,
// description / summary. Missing values are derived from the path and the
// markdown itself. A document with no body text is an error.
func Parse(raw RawDocument) (SkillDocument, error) {
	pctx := parser.NewContext()
	root := markdown.Parser().Parse(text.NewReader(raw.Content), parser.WithContext(pctx))

	fm, err := meta.TryGet(pctx)
	if err != nil {
		return SkillDocument{}, fmt.Errorf("invalid frontmatter: %w", err)
	}

	doc := SkillDocument{Path: raw.Path}
	doc.Body = strings.TrimSpace(stripFrontmatter(string(raw.Content)))

	w := walkMarkdown(root, raw.Content)
	doc.Text = strings.TrimSpace(w.text.String())
	if doc.Text == "" {
		return SkillDocument{}, fmt.Errorf("empty body")
	}
	doc.Headings = w.headings
	doc.CodeBlocks = w.codeBlocks
	doc.CodeLanguages = normalizeList(w.languages)

	doc.Category = resolveCategory(stringValue(fm, "category"), raw.Path)

	doc.ID = strings.TrimSpace(stringValue(fm, "id"))
	if doc.ID == "" {
		doc.ID = string(doc.Category) + "/" + slugFromPath(raw.Path, stringValue(fm, "name"))
	}
	doc.ID = strings.ToLower(doc.ID)

	doc.Title = firstNonEmpty(stringValue(fm, "title"), w.h1, stringValue(fm, "name"), humanize(slugFromPath(raw.Path, "")))
	doc.Summary = firstNonEmpty(stringValue(fm, "description"), stringValue(fm, "summary"), w.firstParagraph)

	doc.Technologies = normalizeList(listValue(fm, "technologies"))

	tags := listValue(fm, "tags")
	tags = append(tags, listValue(fm, "keywords")...)
	tags = append(tags, doc.Technologies...)
	tags = append(tags, doc.CodeLanguages...)
	doc.Tags = normalizeList(tags)

	return doc, nil
}

// NormalizeTag lower-cases and trims a tag, keeping the punctuation that
// distinguishes technology names (socket.io, c++, next-auth, c#).
func NormalizeTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "-")
	return strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

func normalizeList(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		t := NormalizeTag(v)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

type mdWalk struct {
	text           strings.Builder
	h1             string
	firstParagraph string
	headings       []string
	languages      []string
	codeBlocks     int
}

func walkMarkdown(root ast.Node, src []byte) *mdWalk {
	w := &mdWalk{}
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			h := inlineText(node, src)
			if node.Level == 1 && w.h1 == "" {
				w.h1 = h
			}
			w.headings = append(w.headings, h)
			w.appendText(h)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			p := inlineText(node, src)
			if w.firstParagraph == "" && node.Parent() != nil && node.Parent().Kind() == ast.KindDocument {
				w.firstParagraph = p
			}
			w.appendText(p)
			return ast.WalkSkipChildren, nil
		case *ast.TextBlock:
			w.appendText(inlineText(node, src))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			w.codeBlocks++
			if lang := strings.TrimSpace(string(node.Language(src))); lang != "" {
				w.languages = append(w.languages, lang)
			}
			w.appendText(blockLines(node, src))
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			w.codeBlocks++
			w.appendText(blockLines(node, src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return w
}

func (w *mdWalk) appendText(s string) {
	if s == "" {
		return
	}
	if w.text.Len() > 0 {
		w.text.WriteByte('\n')
	}
	w.text.WriteString(s)
}

// inlineText concatenates the text segments below n.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return strings.TrimSpace(buf.String())
}

// stripFrontmatter removes a leading "---" delimited YAML block.
func stripFrontmatter(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}
	lines := strings.Split(content, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[i+1:], "\n")
		}
	}
	return content
}

// resolveCategory prefers the frontmatter value and falls back to the
// nearest numbered ancestor directory (08-messaging-queue/...).
func resolveCategory(declared, relPath string) taxonomy.Category {
	if declared != "" {
		if c, ok := taxonomy.Parse(declared); ok {
			return c
		}
	}
	dir := path.Dir(relPath)
	for dir != "." && dir != "/" && dir != "" {
		if c, ok := taxonomy.ParseDirName(path.Base(dir)); ok {
			return c
		}
		dir = path.Dir(dir)
	}
	return taxonomy.Uncategorized
}

// slugFromPath derives the document slug: the skill directory for
// SKILL.md files, otherwise the file stem.
func slugFromPath(relPath, name string) string {
	if name != "" {
		return slug(name)
	}
	base := path.Base(relPath)
	if strings.EqualFold(base, SkillFileName) {
		if dir := path.Dir(relPath); dir != "." {
			return slug(path.Base(dir))
		}
	}
	return slug(strings.TrimSuffix(base, path.Ext(base)))
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '+' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func humanize(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func stringValue(fm map[string]interface{}, key string) string {
	switch v := fm[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// listValue accepts a YAML list or a comma-separated string.
func listValue(fm map[string]interface{}, key string) []string {
	switch v := fm[key].(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case []string:
		return v
	case string:
		return strings.Split(v, ",")
	default:
		return nil
	}
}
