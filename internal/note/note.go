package note

import (
	"bytes"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/notelog/internal/apperr"
	"github.com/starford/notelog/internal/schema"
	"github.com/starford/notelog/internal/value"
)

// Note is a decoded changelog note.
type Note struct {
	Path      string
	Values    value.Values
	Checksum  string
	UpdatedAt time.Time
}

// Summary returns the implicit summary field.
func (n *Note) Summary() string { return str(n.Values.Get(schema.SummaryField)) }

// Content returns the implicit content field.
func (n *Note) Content() string { return str(n.Values.Get(schema.ContentField)) }

func str(v value.Value) string {
	if s, ok := v.(value.String); ok {
		return string(s)
	}
	return ""
}

// With returns a copy of n with field name set to v.
func (n *Note) With(name string, v value.Value) *Note {
	c := *n
	c.Values = n.Values.Clone()
	c.Values[name] = v
	return &c
}

// Without returns a copy of n with field name removed.
func (n *Note) Without(name string) *Note {
	c := *n
	c.Values = n.Values.Clone()
	delete(c.Values, name)
	return &c
}

// DecodeError lists everything wrong with one note. It matches
// apperr.ErrInvalidNote.
type DecodeError struct {
	Path   string   `json:"path"`
	Errors []string `json:"errors"`
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, strings.Join(e.Errors, "; "))
}

func (e *DecodeError) Unwrap() error { return apperr.ErrInvalidNote }

// Decode types every header value of doc against s. It does not stop at the
// first bad field: all problems are collected into a *DecodeError. Header
// keys the schema does not declare and missing required fields are errors;
// a null value counts as absent.
func Decode(s *schema.Schema, path string, doc *Document) (*Note, error) {
	vals := make(value.Values, len(doc.Header)+2)
	var errs []string

	declared := make(map[string]struct{})
	for _, f := range s.Fields() {
		declared[f.Name] = struct{}{}
		raw, ok := doc.Header[f.Name]
		if !ok || raw == nil {
			if !f.Optional {
				errs = append(errs, f.Name+": missing required field")
			}
			continue
		}
		v, err := value.Decode(f, raw)
		if err != nil {
			errs = append(errs, fieldErrors(f.Name, err)...)
			continue
		}
		vals[f.Name] = v
	}

	var unknown []string
	for k := range doc.Header {
		if _, ok := declared[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		errs = append(errs, k+": unknown field")
	}

	if len(errs) > 0 {
		return nil, &DecodeError{Path: path, Errors: errs}
	}
	if doc.Summary != "" {
		vals[schema.SummaryField] = value.String(doc.Summary)
	}
	if doc.Content != "" {
		vals[schema.ContentField] = value.String(doc.Content)
	}
	return &Note{Path: path, Values: vals}, nil
}

func fieldErrors(name string, err error) []string {
	msgs, ok := err.(value.Errors)
	if !ok {
		return []string{name + ": " + err.Error()}
	}
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = name + ": " + m
	}
	return out
}

// Header returns the encoded header of n in raw form, keyed by field name.
// Absent fields are left out.
func Header(s *schema.Schema, n *Note) map[string]any {
	out := make(map[string]any)
	for _, f := range s.Fields() {
		if v := n.Values.Get(f.Name); v != nil {
			out[f.Name] = value.Encode(f, v)
		}
	}
	return out
}

// Encode renders n as markdown: front matter in schema order, then the
// summary as a heading and the content.
func Encode(s *schema.Schema, n *Note) ([]byte, error) {
	var buf bytes.Buffer

	header := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range s.Fields() {
		v := n.Values.Get(f.Name)
		if v == nil {
			continue
		}
		node, err := encodeNode(f, v)
		if err != nil {
			return nil, fmt.Errorf("note: encode %s: %w", f.Name, err)
		}
		header.Content = append(header.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: f.Name}, node)
	}
	if len(header.Content) > 0 {
		buf.WriteString(delim + "\n")
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(header); err != nil {
			return nil, fmt.Errorf("note: encode header: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("note: encode header: %w", err)
		}
		buf.WriteString(delim + "\n\n")
	}

	if summary := n.Summary(); summary != "" {
		buf.WriteString("# " + summary + "\n")
	}
	if content := n.Content(); content != "" {
		buf.WriteString("\n" + content + "\n")
	}
	return buf.Bytes(), nil
}

// encodeNode writes dates as plain, unquoted scalars.
func encodeNode(f schema.Field, v value.Value) (*yaml.Node, error) {
	if f.Type == schema.TypeDate {
		plain := func(v value.Value) *yaml.Node {
			return &yaml.Node{Kind: yaml.ScalarNode, Value: v.String()}
		}
		if l, ok := v.(value.List); ok {
			seq := &yaml.Node{Kind: yaml.SequenceNode}
			for _, item := range l.Items {
				seq.Content = append(seq.Content, plain(item))
			}
			return seq, nil
		}
		return plain(v), nil
	}
	node := &yaml.Node{}
	if err := node.Encode(value.Encode(f, v)); err != nil {
		return nil, err
	}
	return node, nil
}

// Sort orders notes by field f under policy p. Ties keep their order.
func Sort(notes []*Note, f schema.Field, p value.SortPolicy) {
	slices.SortStableFunc(notes, func(a, b *Note) int {
		return value.CompareField(f, a.Values.Get(f.Name), b.Values.Get(f.Name), p)
	})
}
