package signals

import (
	"bytes"
	"regexp"
	"sort"
	"strings"
)

var keywordWord = regexp.MustCompile(`[A-Za-z0-9][A-Za-z0-9.+#_-]*`)

// scanKeywords returns the distinct vocabulary tokens mentioned in text as
// whole words, with spelling variants folded.
func scanKeywords(text []byte) []string {
	seen := make(map[string]struct{})
	add := func(word string) bool {
		if _, ok := keywordVocabulary[word]; !ok {
			return false
		}
		if alias, ok := keywordAliases[word]; ok {
			word = alias
		}
		seen[word] = struct{}{}
		return true
	}
	for _, w := range keywordWord.FindAll(text, -1) {
		word := strings.ToLower(string(bytes.TrimRight(w, ".-_")))
		if add(word) {
			continue
		}
		// qualified identifiers: kafka.NewWriter, redis_client
		for _, part := range strings.FieldsFunc(word, func(r rune) bool { return r == '.' || r == '_' }) {
			add(part)
		}
	}
	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// isBinary reports whether data looks binary: a NUL byte in the first 512 bytes.
func isBinary(data []byte) bool {
	if len(data) > 512 {
		data = data[:512]
	}
	return bytes.IndexByte(data, 0) >= 0
}
