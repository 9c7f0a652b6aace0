package index

import (
	"regexp"
	"strings"
	"unicode"
)

// wordRegex matches alphanumeric runs, underscores included for the snake_case split.
var wordRegex = regexp.MustCompile(`[A-Za-z0-9_]+`)

// MinTokenLength drops one-character tokens.
const MinTokenLength = 2

// Tokenize splits text into lower-cased, stopword-filtered terms.
//
// camelCase, PascalCase and snake_case identifiers are split into their
// parts, and the joined word is kept as well so "PostgreSQL" yields
// "postgre", "sql" and "postgresql".
func Tokenize(text string) []string {
	var tokens []string
	for _, word := range wordRegex.FindAllString(text, -1) {
		parts := SplitCodeToken(word)
		for _, p := range parts {
			tokens = appendTerm(tokens, strings.ToLower(p))
		}
		if len(parts) > 1 {
			tokens = appendTerm(tokens, strings.ToLower(strings.ReplaceAll(word, "_", "")))
		}
	}
	return tokens
}

func appendTerm(tokens []string, t string) []string {
	if len(t) < MinTokenLength {
		return tokens
	}
	if _, stop := stopWords[t]; stop {
		return tokens
	}
	return append(tokens, t)
}

// SplitCodeToken splits snake_case, then camelCase within each part.
func SplitCodeToken(token string) []string {
	if !strings.Contains(token, "_") {
		return SplitCamelCase(token)
	}
	var result []string
	for _, part := range strings.Split(token, "_") {
		if part != "" {
			result = append(result, SplitCamelCase(part)...)
		}
	}
	return result
}

// SplitCamelCase splits camelCase and PascalCase identifiers:
//   - "getUserById" -> ["get", "User", "By", "Id"]
//   - "parseHTTPRequest" -> ["parse", "HTTP", "Request"]
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if (prevIsLower || nextIsLower) && current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// EstimateTokens approximates the assistant-side token count of text
// at four characters per token, rounded up.
func EstimateTokens(text string) int {
	n := len([]rune(text))
	return (n + 3) / 4
}

// stopWords covers English function words, markdown/prose filler and
// code keywords that carry no topical signal.
var stopWords = buildStopWordMap([]string{
	"a", "an", "and", "are", "as", "at", "be", "been", "but", "by", "can", "do", "does",
	"for", "from", "has", "have", "how", "if", "in", "into", "is", "it", "its", "may",
	"more", "most", "not", "of", "on", "or", "our", "should", "so", "such", "than",
	"that", "the", "their", "them", "then", "there", "these", "they", "this", "those",
	"to", "use", "used", "using", "via", "was", "we", "were", "what", "when", "where",
	"which", "while", "who", "will", "with", "you", "your", "also", "all", "any", "each",
	"other", "some", "only", "just", "very", "like", "e.g", "etc", "ie", "eg",
	"example", "examples", "see", "note", "md", "www", "com",
	"var", "let", "const", "func", "function", "def", "class", "return", "else",
	"true", "false", "null", "nil", "none",
})

func buildStopWordMap(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}

// IsStopWord reports whether t is filtered by Tokenize.
func IsStopWord(t string) bool {
	_, ok := stopWords[strings.ToLower(t)]
	return ok
}
