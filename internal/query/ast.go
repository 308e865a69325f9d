package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/notelog/internal/value"
)

// Operator is the comparison in a single expression.
type Operator int

const (
	OpLess Operator = iota
	OpLessEqual
	OpGreaterEqual
	OpGreater
	OpEqual
	OpNotEqual
	OpContains
	OpFuzzy
	// OpStatus checks presence or absence; see Single.Status.
	OpStatus
)

var operatorSymbols = [...]string{
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreaterEqual: ">=",
	OpGreater:      ">",
	OpEqual:        "=",
	OpNotEqual:     "!=",
	OpContains:     "~",
	OpFuzzy:        "~~",
	OpStatus:       "status",
}

func (o Operator) String() string {
	if o < 0 || int(o) >= len(operatorSymbols) {
		return fmt.Sprintf("Operator(%d)", int(o))
	}
	return operatorSymbols[o]
}

// Status is the operand of a status check.
type Status int

const (
	Present Status = iota + 1
	Absent
)

func (s Status) String() string {
	switch s {
	case Present:
		return "present"
	case Absent:
		return "absent"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Conj joins two expressions.
type Conj int

const (
	And Conj = iota
	Or
)

func (c Conj) String() string {
	if c == Or {
		return "or"
	}
	return "and"
}

// Expr is a parsed query. Implementations are MatchAll, Single and Binary.
type Expr interface {
	// String renders the expression as a query that parses back to the
	// same tree.
	String() string
	expr()
}

// MatchAll is the expression of an empty query.
type MatchAll struct{}

func (MatchAll) expr()          {}
func (MatchAll) String() string { return "" }

// MarshalJSON renders the universal expression as true.
func (MatchAll) MarshalJSON() ([]byte, error) { return []byte("true"), nil }

// Single compares one field against a literal, or checks its status.
type Single struct {
	Field string
	Op    Operator
	// Value is the typed literal; nil for status checks.
	Value  value.Value
	Status Status
}

func (Single) expr() {}

// String renders the check in query syntax. Quoted literals have no
// escapes, so a string value holding both ' and " does not parse back;
// the parser never produces one.
func (s Single) String() string {
	if s.Op == OpStatus {
		return s.Field + " " + s.Status.String()
	}
	return s.Field + " " + s.Op.String() + " " + literal(s.Value)
}

// MarshalJSON renders {"field", "operator", "value"}.
func (s Single) MarshalJSON() ([]byte, error) {
	out := struct {
		Field    string `json:"field"`
		Operator string `json:"operator"`
		Value    string `json:"value"`
	}{Field: s.Field, Operator: s.Op.String()}
	if s.Op == OpStatus {
		out.Value = s.Status.String()
	} else {
		out.Value = s.Value.String()
	}
	return json.Marshal(out)
}

// literal quotes string values that would not survive as a bare token.
func literal(v value.Value) string {
	s := v.String()
	if _, ok := v.(value.String); !ok {
		return s
	}
	if s != "" && !strings.ContainsFunc(s, func(r rune) bool { return !isBareRune(r) }) {
		return s
	}
	if strings.ContainsRune(s, '"') {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}

// Binary combines two expressions. Left is never itself an unparenthesised
// Binary; chains lean right.
type Binary struct {
	Left  Expr
	Conj  Conj
	Right Expr
}

func (Binary) expr() {}

func (b Binary) String() string {
	left := b.Left.String()
	if _, ok := b.Left.(Binary); ok {
		left = "(" + left + ")"
	}
	return left + " " + b.Conj.String() + " " + b.Right.String()
}

// MarshalJSON renders [left, "and"|"or", right].
func (b Binary) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{b.Left, b.Conj.String(), b.Right})
}
