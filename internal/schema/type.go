package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Type is the closed set of field types.
type Type int

const (
	TypeString Type = iota
	TypeBoolean
	TypeNumber
	TypeDate
	TypeSemver
	TypeFFVersion
)

var typeNames = [...]string{
	TypeString:    "string",
	TypeBoolean:   "boolean",
	TypeNumber:    "number",
	TypeDate:      "date",
	TypeSemver:    "semver",
	TypeFFVersion: "ffversion",
}

// Types returns every field type in declaration order.
func Types() []Type {
	return []Type{TypeString, TypeBoolean, TypeNumber, TypeDate, TypeSemver, TypeFFVersion}
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// Valid reports whether t is one of the declared types.
func (t Type) Valid() bool {
	return t >= 0 && int(t) < len(typeNames)
}

// Ordered reports whether values of t support the ordering operators.
func (t Type) Ordered() bool {
	switch t {
	case TypeNumber, TypeDate, TypeSemver, TypeFFVersion:
		return true
	case TypeString, TypeBoolean:
		return false
	}
	panic(fmt.Sprintf("schema: unknown field type %d", int(t)))
}

// ParseType resolves a type name as written in the configuration file.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown field type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UnmarshalYAML reads the type from its name.
func (t *Type) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}

// MarshalYAML writes the type as its name.
func (t Type) MarshalYAML() (any, error) {
	return t.String(), nil
}
