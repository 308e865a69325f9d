// Package schema describes the fields a note header may carry.
//
// A Schema is built once per configuration load and never mutated, so it may be
// shared by any number of goroutines.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Names of the implicit fields derived from the note body rather than its header.
const (
	SummaryField = "summary"
	ContentField = "content"
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// Field declares one header field.
type Field struct {
	Name        string   `yaml:"name" json:"name"`
	Type        Type     `yaml:"type" json:"type"`
	List        bool     `yaml:"list,omitempty" json:"list,omitempty"`
	Enum        []string `yaml:"enum,omitempty" json:"enum,omitempty"`
	Optional    bool     `yaml:"optional,omitempty" json:"optional,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

// Implicit reports whether the field is derived from the note body.
func (f Field) Implicit() bool {
	return f.Name == SummaryField || f.Name == ContentField
}

// Validate checks a single field declaration.
func (f *Field) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Name,
			validation.Required,
			validation.Match(namePattern).Error("must start with a letter or underscore and contain only letters, digits, '_', '.' or '-'"),
			validation.NotIn(SummaryField, ContentField).Error("is reserved for an implicit field"),
		),
		validation.Field(&f.Type, validation.By(func(v any) error {
			if t, ok := v.(Type); !ok || !t.Valid() {
				return errors.New("unknown field type")
			}
			return nil
		})),
		validation.Field(&f.Enum,
			validation.When(f.Type != TypeString, validation.Empty.Error("is only allowed on string fields")),
			validation.Each(validation.Required),
		),
	)
}

var implicitFields = []Field{
	{Name: SummaryField, Type: TypeString, Optional: true, Description: "First heading line of the note body."},
	{Name: ContentField, Type: TypeString, Optional: true, Description: "Note body below the summary line."},
}

// Schema is an ordered, validated set of fields.
type Schema struct {
	fields []Field
	byName map[string]Field
}

// New validates the declared fields and builds a Schema that also knows the
// implicit summary and content fields.
func New(fields []Field) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, 0, len(fields)),
		byName: make(map[string]Field, len(fields)+len(implicitFields)),
	}
	for i := range fields {
		f := fields[i]
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("fields[%d] %q: %w", i, f.Name, err)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("fields[%d]: duplicate field name %q", i, f.Name)
		}
		f.Enum = append([]string(nil), f.Enum...)
		s.fields = append(s.fields, f)
		s.byName[f.Name] = f
	}
	for _, f := range implicitFields {
		s.byName[f.Name] = f
	}
	return s, nil
}

// MustNew is New that panics on error. Intended for tests and static schemas.
func MustNew(fields []Field) *Schema {
	s, err := New(fields)
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the field with the given name, including implicit fields.
func (s *Schema) Lookup(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Fields returns the declared header fields in declaration order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// All returns the declared fields followed by the implicit ones.
func (s *Schema) All() []Field {
	out := make([]Field, 0, len(s.fields)+len(implicitFields))
	out = append(out, s.fields...)
	return append(out, implicitFields...)
}

// Names returns every queryable field name, sorted.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
