// Package export renders decoded notes for output.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/notelog/internal/note"
	"github.com/starford/notelog/internal/schema"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists the supported formats.
func Formats() []Format { return []Format{FormatText, FormatJSON, FormatYAML} }

// ParseFormat resolves a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Record is the serialised form of a note. Fields holds encoded header
// values, so a record re-decodes to the same typed values.
type Record struct {
	Path      string         `json:"path" yaml:"path"`
	Summary   string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Content   string         `json:"content,omitempty" yaml:"content,omitempty"`
	Fields    map[string]any `json:"fields" yaml:"fields"`
	Checksum  string         `json:"checksum,omitempty" yaml:"checksum,omitempty"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Options control what a record carries.
type Options struct {
	Content  bool
	Metadata bool
}

// NewRecord builds the record of n.
func NewRecord(s *schema.Schema, n *note.Note, o Options) Record {
	r := Record{
		Path:    n.Path,
		Summary: n.Summary(),
		Fields:  note.Header(s, n),
	}
	if o.Content {
		r.Content = n.Content()
	}
	if o.Metadata {
		r.Checksum = n.Checksum
		if !n.UpdatedAt.IsZero() {
			t := n.UpdatedAt
			r.UpdatedAt = &t
		}
	}
	return r
}

// Records builds one record per note, keeping order.
func Records(s *schema.Schema, notes []*note.Note, o Options) []Record {
	out := make([]Record, len(notes))
	for i, n := range notes {
		out[i] = NewRecord(s, n, o)
	}
	return out
}

// Write renders notes to w in format f.
func Write(w io.Writer, s *schema.Schema, notes []*note.Note, f Format, o Options) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Records(s, notes, o))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Records(s, notes, o)); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		return writeText(w, notes, o)
	}
	return fmt.Errorf("unknown format %q", f)
}

func writeText(w io.Writer, notes []*note.Note, o Options) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, n := range notes {
		fmt.Fprintf(tw, "%s\t%s\n", n.Path, n.Summary())
		if o.Content && n.Content() != "" {
			for _, line := range strings.Split(n.Content(), "\n") {
				fmt.Fprintf(tw, "    %s\n", line)
			}
		}
	}
	return tw.Flush()
}
