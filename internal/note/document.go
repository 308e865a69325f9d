// Package note reads and writes changelog notes: markdown files whose YAML
// front matter carries typed field values.
package note

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// Document is a note file split into its raw parts, before any typing.
type Document struct {
	Header  map[string]any
	Summary string
	Content string
}

// Parse splits raw markdown into front matter, summary and content.
// A file without front matter has a nil header.
func Parse(data []byte) (*Document, error) {
	header, body, err := splitFrontMatter(data)
	if err != nil {
		return nil, err
	}
	summary, content := splitBody(body)
	return &Document{Header: header, Summary: summary, Content: content}, nil
}

// splitFrontMatter separates YAML front matter (between leading --- lines)
// from the markdown body. Without an opening delimiter the whole input is
// body; an opening delimiter without a closing one is an error.
func splitFrontMatter(data []byte) (map[string]any, string, error) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", fmt.Errorf("note: front matter is not closed by %q", delim)
	}

	block := rest[:idx]
	after := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(after), "\n\r")

	var header map[string]any
	if err := yaml.Unmarshal(block, &header); err != nil {
		return nil, "", fmt.Errorf("note: front matter: %w", err)
	}
	return header, body, nil
}

// splitBody takes the first non-blank line, minus any leading '#', as the
// summary. The rest, trimmed, is the content.
func splitBody(body string) (string, string) {
	for body != "" {
		line, rest, _ := strings.Cut(body, "\n")
		body = rest
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		summary := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		return summary, strings.TrimSpace(body)
	}
	return "", ""
}
