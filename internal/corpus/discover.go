package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	serrors "github.com/Aman-CERP/skillscope/internal/errors"
)

// Options controls corpus discovery.
type Options struct {
	Root    string
	Include []string
	Exclude []string
}

// Discover reads every corpus file matching Include and not Exclude.
// Results are sorted by path. Unreadable files become warnings; a missing
// or non-directory root is a fatal corpus error.
func Discover(ctx context.Context, opts Options) ([]RawDocument, []serrors.Warning, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, nil, serrors.CorpusError(serrors.ErrCodeCorpusNotFound, opts.Root, "invalid corpus path", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, serrors.CorpusError(serrors.ErrCodeCorpusNotFound, root, "corpus directory not found", err).
			WithSuggestion("pass --corpus or set corpus.path in .skillscope.yaml")
	}
	if !info.IsDir() {
		return nil, nil, serrors.CorpusError(serrors.ErrCodeCorpusNotFound, root, "corpus path is not a directory", nil)
	}

	include := opts.Include
	if len(include) == 0 {
		include = []string{"**/*.md"}
	}

	var docs []RawDocument
	var warnings []serrors.Warning

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if walkErr != nil {
			if path == root {
				return walkErr
			}
			warnings = append(warnings, serrors.PartialParseWarning("corpus", rel, walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if rel != "." && matchAny(opts.Exclude, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !matchAny(include, rel) || matchAny(opts.Exclude, rel) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			warnings = append(warnings, serrors.PartialParseWarning("corpus", rel, err))
			return nil
		}
		docs = append(docs, RawDocument{Path: rel, Content: content})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, warnings, ctx.Err()
		}
		return nil, warnings, serrors.CorpusError(serrors.ErrCodeCorpusRead, root, "failed to walk corpus", err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, warnings, nil
}

// matchAny reports whether rel matches one of the doublestar patterns.
// Directory paths are passed with a trailing slash so "**/vendor/**"
// prunes the directory itself.
func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Hash returns a content hash over the (path, content) pairs of docs.
// Order-independent: docs are hashed in path order.
func Hash(docs []RawDocument) string {
	sorted := make([]RawDocument, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h := sha256.New()
	for _, d := range sorted {
		h.Write([]byte(d.Path))
		h.Write([]byte{0})
		h.Write(d.Content)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
