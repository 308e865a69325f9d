package query

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Index locates a parse failure. Offset is in bytes; Line and Column start
// at 1 and Column counts runes.
type Index struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

// ParseError reports where a query stopped parsing and what would have been
// accepted there. Expected is sorted and free of duplicates.
type ParseError struct {
	Query    string   `json:"-"`
	Index    Index    `json:"index"`
	Expected []string `json:"expected"`
}

func indexOf(src string, offset int) Index {
	if offset < 0 {
		offset = 0
	}
	line, start := 1, 0
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			line++
			start = i + 1
		}
	}
	return Index{Offset: offset, Line: line, Column: utf8.RuneCountInString(src[start:offset]) + 1}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid query at line %d, column %d: expected %s", e.Index.Line, e.Index.Column, e.expectation())
}

func (e *ParseError) expectation() string {
	switch len(e.Expected) {
	case 0:
		return "nothing"
	case 1:
		return e.Expected[0]
	}
	return "one of " + strings.Join(e.Expected, ", ")
}

// Caret renders the failing line of the query with a marker under the
// failure position, followed by the expectation.
func (e *ParseError) Caret() string {
	lines := strings.Split(e.Query, "\n")
	line := ""
	if e.Index.Line-1 < len(lines) {
		line = lines[e.Index.Line-1]
	}
	var b strings.Builder
	b.WriteString(line)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", e.Index.Column-1))
	b.WriteString("^\n")
	b.WriteString("expected ")
	b.WriteString(e.expectation())
	return b.String()
}
