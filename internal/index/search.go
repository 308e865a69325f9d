package index

import (
	"strings"
	"unicode/utf8"
)

// DefaultSearchLimit caps search results when the caller passes no limit.
const DefaultSearchLimit = 20

// searchTerms splits a search string on whitespace. Every term must match.
func searchTerms(q string) []string {
	return strings.Fields(q)
}

// ftsQuery quotes each term as an FTS5 string so punctuation such as the
// hyphen in CVE-2024-1 is matched literally rather than read as syntax.
func ftsQuery(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

// likePattern builds a LIKE pattern matching term anywhere, with the
// wildcards it contains escaped by a backslash.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

// snippetRadius is how many bytes of context surround a fallback snippet hit.
const snippetRadius = 60

// snippet cuts the context around the first case-insensitive occurrence of
// any term in text. It returns the start of text when no term occurs.
func snippet(text string, terms []string) string {
	lower := strings.ToLower(text)
	at := -1
	for _, t := range terms {
		if i := strings.Index(lower, strings.ToLower(t)); i >= 0 && (at < 0 || i < at) {
			at = i
		}
	}
	if at < 0 {
		at = 0
	}
	start, end := max(at-snippetRadius, 0), min(at+snippetRadius, len(text))
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	out := strings.Join(strings.Fields(text[start:end]), " ")
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}
