package query

import (
	"fmt"
	"strings"

	"github.com/starford/notelog/internal/schema"
	"github.com/starford/notelog/internal/value"
)

// Matcher reports whether a note's values satisfy a compiled expression.
type Matcher func(value.Values) bool

// Option configures Compile.
type Option func(*compiler)

// WithFuzzyThreshold overrides DefaultFuzzyThreshold for '~~'.
func WithFuzzyThreshold(t float64) Option {
	return func(c *compiler) { c.fuzzy = NewFuzzy(t) }
}

type compiler struct {
	schema *schema.Schema
	fuzzy  Fuzzy
}

// Compile turns a parsed expression into a Matcher. Every field the
// expression names must exist in s; Compile panics otherwise, since Parse
// already rejects unknown fields.
func Compile(s *schema.Schema, e Expr, opts ...Option) Matcher {
	c := &compiler{schema: s, fuzzy: NewFuzzy(DefaultFuzzyThreshold)}
	for _, o := range opts {
		o(c)
	}
	return c.compile(e)
}

func (c *compiler) compile(e Expr) Matcher {
	switch e := e.(type) {
	case MatchAll:
		return func(value.Values) bool { return true }
	case Binary:
		left, right := c.compile(e.Left), c.compile(e.Right)
		if e.Conj == Or {
			return func(v value.Values) bool { return left(v) || right(v) }
		}
		return func(v value.Values) bool { return left(v) && right(v) }
	case Single:
		return c.single(e)
	}
	panic(fmt.Sprintf("query: unknown expression %T", e))
}

func (c *compiler) single(e Single) Matcher {
	f, ok := c.schema.Lookup(e.Field)
	if !ok {
		panic(fmt.Sprintf("query: field %q is not in the schema", e.Field))
	}
	name := f.Name

	if e.Op == OpStatus {
		want := e.Status == Present
		return func(v value.Values) bool { return v.Present(name) == want }
	}

	test := c.test(f.Type, e.Op, e.Value)
	if f.List {
		return func(v value.Values) bool {
			l, ok := v.Get(name).(value.List)
			if !ok {
				return false
			}
			for _, item := range l.Items {
				if test(item) {
					return true
				}
			}
			return false
		}
	}
	return func(v value.Values) bool {
		x := v.Get(name)
		return x != nil && test(x)
	}
}

// test builds the per-element predicate for op against the literal q.
func (c *compiler) test(t schema.Type, op Operator, q value.Value) func(value.Value) bool {
	switch t {
	case schema.TypeString:
		want := string(q.(value.String))
		switch op {
		case OpEqual:
			return func(x value.Value) bool { return string(x.(value.String)) == want }
		case OpNotEqual:
			return func(x value.Value) bool { return string(x.(value.String)) != want }
		case OpContains:
			return func(x value.Value) bool { return strings.Contains(string(x.(value.String)), want) }
		case OpFuzzy:
			fz := c.fuzzy
			return func(x value.Value) bool { return fz.Match(string(x.(value.String)), want) }
		}
	case schema.TypeBoolean:
		want := bool(q.(value.Boolean))
		switch op {
		case OpEqual:
			return func(x value.Value) bool { return bool(x.(value.Boolean)) == want }
		case OpNotEqual:
			return func(x value.Value) bool { return bool(x.(value.Boolean)) != want }
		}
	case schema.TypeSemver:
		return semverTest(op, q.(value.Semver))
	case schema.TypeNumber, schema.TypeDate, schema.TypeFFVersion:
		if op.ordering() {
			return func(x value.Value) bool { return op.holds(value.Compare(t, x, q)) }
		}
	default:
		panic(fmt.Sprintf("query: unknown field type %d", int(t)))
	}
	panic(fmt.Sprintf("query: operator %s does not apply to %s", op, t))
}

// semverTest orders versions by semver precedence, except that a prerelease
// note version only satisfies <, <=, >= and > when the literal is itself a
// prerelease of the same major.minor.patch.
func semverTest(op Operator, q value.Semver) func(value.Value) bool {
	if !op.ordering() {
		panic(fmt.Sprintf("query: operator %s does not apply to semver", op))
	}
	return func(x value.Value) bool {
		v := x.(value.Semver)
		c := v.Compare(q.Version)
		if op == OpEqual || op == OpNotEqual {
			return op.holds(c)
		}
		if !v.Release() && (q.Release() || !v.SameCore(q)) {
			return false
		}
		return op.holds(c)
	}
}

func (o Operator) ordering() bool {
	return o >= OpLess && o <= OpNotEqual
}

// holds applies an ordering operator to a comparison result.
func (o Operator) holds(c int) bool {
	switch o {
	case OpLess:
		return c < 0
	case OpLessEqual:
		return c <= 0
	case OpGreaterEqual:
		return c >= 0
	case OpGreater:
		return c > 0
	case OpEqual:
		return c == 0
	case OpNotEqual:
		return c != 0
	}
	panic(fmt.Sprintf("query: %s is not an ordering operator", o))
}
